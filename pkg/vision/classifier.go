package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/proctor-go-api/internal/dto"
)

// Config holds connection settings for the object-classification service.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Client calls the remote object-classification service over HTTP. The
// service receives a base64 encoded frame and returns labeled detections
// with confidence scores and bounding boxes.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient constructs a classifier client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("classifier base URL must be provided")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger.With().Str("component", "classifier").Logger(),
	}, nil
}

type classifyRequest struct {
	Image         string  `json:"image"`
	MinConfidence float64 `json:"min_confidence"`
}

type classifyResponse struct {
	Detections []dto.Detection `json:"detections"`
}

// Classify sends one frame to the classification service and returns the
// detections it reports. Detections below the confidence floor are filtered
// server side.
func (c *Client) Classify(ctx context.Context, image []byte, confidenceFloor float64) ([]dto.Detection, error) {
	payload, err := json.Marshal(classifyRequest{
		Image:         base64.StdEncoding.EncodeToString(image),
		MinConfidence: confidenceFloor,
	})
	if err != nil {
		return nil, fmt.Errorf("encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode classify response: %w", err)
	}

	c.logger.Debug().
		Int("detections", len(decoded.Detections)).
		Dur("latency", time.Since(start)).
		Msg("frame classified")

	return decoded.Detections, nil
}
