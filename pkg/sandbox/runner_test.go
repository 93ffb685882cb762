package sandbox

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestRunCodeRejectsUnsupportedLanguage(t *testing.T) {
	runner := &DockerRunner{tracer: otel.Tracer("test")}

	_, _, err := runner.RunCode(context.Background(), "cobol", "DISPLAY 'HI'.", "")
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestLanguageSpecsComplete(t *testing.T) {
	for key, spec := range languages {
		require.Equal(t, key, strings.ToLower(key))
		require.NotEmpty(t, spec.image, key)
		require.NotEmpty(t, spec.file, key)
		require.NotEmpty(t, spec.invoke, key)
	}
}
