package logging_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/careops/visitsync/pkg/logging"
)

func TestDefaultLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := zerolog.New(buf).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	logging.SetDefault(logger)

	logging.Debug().Msg("checking pair")
	logging.Info().Msg("pass finished")
	logging.Warn().Msg("source slow")
	logging.Error().Msg("write failed")

	output := buf.String()
	for _, want := range []string{"checking pair", "pass finished", "source slow", "write failed"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got: %s", want, output)
		}
	}
}

func TestContextLogger(t *testing.T) {
	testLogger := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), testLogger.Logger)
	ctx = logging.WithSystem(ctx, "openphone")
	ctx = logging.WithSubject(ctx, "cg-7")
	ctx = logging.WithFailure(ctx, "abc123")

	logging.FromContext(ctx).Info().Msg("mismatch detected")

	testLogger.AssertContains(t, "openphone")
	testLogger.AssertContains(t, "cg-7")
	testLogger.AssertContains(t, "abc123")
	testLogger.AssertContains(t, "mismatch detected")
}

func TestConfiguredLevels(t *testing.T) {
	t.Run("debug level passes debug events", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := logging.NewLoggerFromConfig(&logging.Config{Level: "debug", Format: "json"}).Output(buf)

		logger.Debug().Msg("debug")
		if !strings.Contains(buf.String(), `"level":"debug"`) {
			t.Errorf("Expected debug level in output, got: %s", buf.String())
		}
	})

	t.Run("error level drops info events", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := logging.NewLoggerFromConfig(&logging.Config{Level: "error", Format: "json"}).Output(buf)

		logger.Info().Msg("info")
		logger.Error().Msg("error")
		if strings.Contains(buf.String(), `"level":"info"`) {
			t.Errorf("Should not contain info level when set to error")
		}
	})
}

func TestTestLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	tl.Logger.Info().Msg("first line")
	tl.Logger.Error().Msg("second line")

	tl.AssertContains(t, "first line")
	tl.AssertNotContains(t, "third line")

	if !tl.ContainsAll("first line", "second line") {
		t.Error("Should contain both messages")
	}
	if tl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", tl.Count())
	}

	tl.Clear()
	if tl.Count() != 0 {
		t.Error("Should have 0 entries after clear")
	}
}
