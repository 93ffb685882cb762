package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains Cloudinary credentials and the target folder for
// proctoring snapshots.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// SnapshotStore uploads incident snapshots to Cloudinary and hands back
// their secure URLs for the audit trail.
type SnapshotStore struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary backed snapshot store.
func New(cfg Config, logger zerolog.Logger) (*SnapshotStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &SnapshotStore{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "snapshot_store").Logger(),
	}, nil
}

// Upload stores one snapshot frame and returns its secure URL. The name is
// sanitized into a Cloudinary public ID; slashes survive so sessions keep
// their own folders.
func (s *SnapshotStore) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:       strings.Trim(s.folder, "/"),
		PublicID:     sanitizePublicID(name),
		ResourceType: "image",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	s.logger.Debug().Str("public_id", result.PublicID).Msg("snapshot uploaded")

	return result.SecureURL, nil
}

func sanitizePublicID(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '/' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, name)

	return strings.Trim(cleaned, "-/")
}
