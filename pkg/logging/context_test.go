package logging_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/careops/visitsync/pkg/logging"
)

func TestContextCarriesFields(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want []string
	}{
		{
			name: "system",
			ctx:  logging.WithSystem(context.Background(), "openphone"),
			want: []string{"system", "openphone"},
		},
		{
			name: "subject",
			ctx:  logging.WithSubject(context.Background(), "1-512-555-1234"),
			want: []string{"subject_id", "1-512-555-1234"},
		},
		{
			name: "operation",
			ctx:  logging.WithOperation(context.Background(), "run_pass"),
			want: []string{"operation", "run_pass"},
		},
		{
			name: "failure",
			ctx:  logging.WithFailure(context.Background(), "f-8c72aa91"),
			want: []string{"failure_id", "f-8c72aa91"},
		},
		{
			name: "custom fields",
			ctx: logging.WithFields(context.Background(), map[string]interface{}{
				"request_id": "abc-def",
			}),
			want: []string{"request_id", "abc-def"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.FromContext(tt.ctx).Output(&buf)
			logger.Info().Msg("probe")

			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestContextChaining(t *testing.T) {
	ctx := context.Background()
	ctx = logging.WithSystem(ctx, "axiscare")
	ctx = logging.WithSubject(ctx, "cg-7")
	ctx = logging.WithOperation(ctx, "validate")
	ctx = logging.WithFailure(ctx, "f-0001")

	var buf bytes.Buffer
	logger := logging.FromContext(ctx).Output(&buf)
	logger.Info().Msg("probe")

	out := buf.String()
	assert.Contains(t, out, "axiscare")
	assert.Contains(t, out, "cg-7")
	assert.Contains(t, out, "validate")
	assert.Contains(t, out, "f-0001")
}

func TestFromContextWithoutLogger(t *testing.T) {
	// A bare context still yields a usable logger.
	logger := logging.FromContext(context.Background())
	assert.NotNil(t, logger)
	logger.Debug().Msg("no panic")

	assert.NotNil(t, logging.Ctx(context.Background()))
}
