package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "proctor",
		Subsystem: "sandbox",
		Name:      "run_duration_seconds",
		Help:      "Duration of sandboxed code runs",
		Buckets:   prometheus.DefBuckets,
	}, []string{"language"})

	runTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proctor",
		Subsystem: "sandbox",
		Name:      "run_timeouts_total",
		Help:      "Number of code runs that hit the timeout",
	}, []string{"language"})

	runFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proctor",
		Subsystem: "sandbox",
		Name:      "run_failures_total",
		Help:      "Number of code runs that resulted in an error",
	}, []string{"language"})
)

// ErrUnsupportedLanguage indicates no sandbox image exists for the language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// language describes how one language's submissions run inside a container.
type language struct {
	image  string
	file   string
	invoke string
}

var languages = map[string]language{
	"python":     {image: "python:3.12-alpine", file: "main.py", invoke: "python3 /tmp/main.py"},
	"javascript": {image: "node:20-alpine", file: "main.js", invoke: "node /tmp/main.js"},
	"go":         {image: "golang:1.22-alpine", file: "main.go", invoke: "go run /tmp/main.go"},
	"c":          {image: "gcc:13", file: "main.c", invoke: "gcc -O2 -o /tmp/main /tmp/main.c && /tmp/main"},
}

// Config groups runner configuration values.
type Config struct {
	Host          string
	Timeout       time.Duration
	MemoryLimitMB int64
	CPUShares     int64
	Logger        zerolog.Logger
}

// RunResult summarises the outcome of one sandboxed code run.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// DockerRunner grades code submissions inside throwaway Docker containers.
// Containers run with no network and hard memory/CPU limits.
type DockerRunner struct {
	client *client.Client
	cfg    Config
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewDockerRunner constructs a Docker backed code runner.
func NewDockerRunner(cfg Config) (*DockerRunner, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &DockerRunner{
		client: cli,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/proctor-go-api/pkg/sandbox"),
		logger: logger.With().Str("component", "sandbox").Logger(),
	}, nil
}

// RunCode executes a submission against one stdin payload and returns the
// captured stdout/stderr. The source and stdin travel into the container as
// environment variables, so no host filesystem is ever shared.
func (r *DockerRunner) RunCode(parent context.Context, lang, source, stdin string) (string, string, error) {
	key := strings.ToLower(strings.TrimSpace(lang))
	spec, ok := languages[key]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}

	result, err := r.run(parent, key, spec, source, stdin)
	if err != nil {
		return "", "", err
	}
	if result.TimedOut {
		return result.Stdout, result.Stderr, fmt.Errorf("run timed out after %s", r.cfg.Timeout)
	}
	if result.ExitCode != 0 {
		return result.Stdout, result.Stderr, fmt.Errorf("run exited with code %d", result.ExitCode)
	}
	return result.Stdout, result.Stderr, nil
}

func (r *DockerRunner) run(parent context.Context, langLabel string, spec language, source, stdin string) (RunResult, error) {
	ctx, span := r.tracer.Start(parent, "sandbox.run", trace.WithAttributes(
		attribute.String("sandbox.language", langLabel),
		attribute.String("sandbox.image", spec.image),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	script := fmt.Sprintf(
		`printf '%%s' "$SANDBOX_SOURCE" > /tmp/%s && printf '%%s' "$SANDBOX_STDIN" | { %s; }`,
		spec.file, spec.invoke,
	)

	config := &container.Config{
		Image: spec.image,
		Cmd:   []string{"sh", "-c", script},
		Env: []string{
			"SANDBOX_SOURCE=" + source,
			"SANDBOX_STDIN=" + stdin,
		},
		AttachStdout: true,
		AttachStderr: true,
	}

	hostCfg := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:    r.cfg.MemoryLimitMB * 1024 * 1024,
			CPUShares: r.cfg.CPUShares,
		},
	}

	start := time.Now()
	result := RunResult{}

	resp, err := r.client.ContainerCreate(ctx, config, hostCfg, &network.NetworkingConfig{}, nil, "")
	if err != nil {
		runFailures.WithLabelValues(langLabel).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("container create: %w", err)
	}

	containerID := resp.ID
	defer func() {
		removeCtx, cancelRemove := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelRemove()
		if err := r.client.ContainerRemove(removeCtx, containerID, container.RemoveOptions{Force: true}); err != nil {
			r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to remove container")
		}
	}()

	if err := r.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		runFailures.WithLabelValues(langLabel).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("container start: %w", err)
	}

	statusCh, errCh := r.client.ContainerWait(ctx, containerID, container.WaitConditionNextExit)

	var waitErr error
	select {
	case err := <-errCh:
		waitErr = err
	case status := <-statusCh:
		result.ExitCode = int(status.StatusCode)
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	result.Duration = time.Since(start)
	runDuration.WithLabelValues(langLabel).Observe(result.Duration.Seconds())

	if waitErr != nil {
		if errors.Is(waitErr, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			runTimeouts.WithLabelValues(langLabel).Inc()
			killCtx, cancelKill := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancelKill()
			if err := r.client.ContainerKill(killCtx, containerID, "KILL"); err != nil {
				r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to kill timed out container")
			}
			span.SetStatus(codes.Error, "run timed out")
		} else if !errors.Is(waitErr, context.Canceled) {
			runFailures.WithLabelValues(langLabel).Inc()
			span.RecordError(waitErr)
			span.SetStatus(codes.Error, waitErr.Error())
			return result, fmt.Errorf("container wait: %w", waitErr)
		}
	}

	logReader, err := r.client.ContainerLogs(parent, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to fetch container logs")
		return result, nil
	}
	defer logReader.Close()

	stdout, stderr, err := splitLogs(logReader)
	if err != nil {
		r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to read container logs")
		return result, nil
	}
	result.Stdout = stdout
	result.Stderr = stderr

	return result, nil
}

func splitLogs(reader io.Reader) (string, string, error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdoutBuf, &stderrBuf, reader); err != nil {
		return "", "", err
	}
	return stdoutBuf.String(), stderrBuf.String(), nil
}

// Close shuts down the runner's underlying client.
func (r *DockerRunner) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
