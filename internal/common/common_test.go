package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)

	logger.Info("imported", "count", 5)
	assert.Contains(t, buf.String(), `"count":5`)

	_, err = NewLogger(&buf, slog.LevelInfo, "xml")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestUserError(t *testing.T) {
	err := NewUserError("could not import file", ErrMalformedSource)
	assert.Equal(t, "could not import file: malformed source", err.Error())
	assert.ErrorIs(t, err, ErrMalformedSource)

	var ue *UserError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "could not import file", ue.UserMessage)
}

func TestMalformed(t *testing.T) {
	err := Malformed("stmt.csv", "no header row found")
	assert.ErrorIs(t, err, ErrMalformedSource)
	assert.Contains(t, err.Error(), "stmt.csv")
}

func TestCompileInsensitive(t *testing.T) {
	re, err := CompileInsensitive(`^aws.*\d+$`)
	require.NoError(t, err)
	assert.True(t, re.MatchString("AWS Services 12345"))

	_, err = CompileInsensitive("([")
	assert.Error(t, err)
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()
	opts := RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	t.Run("retries locked database", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			if calls < 3 {
				return fmt.Errorf("ping: database is locked")
			}
			return nil
		}, opts)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			return ErrInvalidConfig
		}, opts)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		err := WithRetry(ctx, func() error {
			return &RetryableError{Err: errors.New("flaky"), Retryable: true}
		}, opts)
		assert.ErrorIs(t, err, ErrMaxRetries)
	})
}
