package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightball/entitlements/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output with service attrs", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithService("entitlements", "test"),
		)

		log.Info("snapshot refreshed", logger.Component("trialstate"))

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "snapshot refreshed", record["msg"])
		assert.Equal(t, "entitlements", record["service"])
		assert.Equal(t, "test", record["env"])
		assert.Equal(t, "trialstate", record["component"])
	})

	t.Run("level filtering", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))

		log.Info("dropped")
		assert.Zero(t, buf.Len())

		log.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("text format", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatText))

		log.Info("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			logger.New(logger.WithFormat(logger.Format("xml")))
		})
	})
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	t.Run("nil guards return empty attrs", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.Attr{}, logger.Error(nil))
		assert.Equal(t, slog.Attr{}, logger.AccountID(nil))
		assert.Equal(t, slog.Attr{}, logger.Plan(nil))
	})

	t.Run("keys are stable", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		assert.Equal(t, "account_id", logger.AccountID(id).Key)
		assert.Equal(t, "plan", logger.Plan("coach").Key)
		assert.Equal(t, "component", logger.Component("checkout").Key)
		assert.Equal(t, "event", logger.Event("plan_confirmed").Key)
		assert.Equal(t, "duration", logger.Duration(time.Second).Key)
		assert.Equal(t, "status", logger.Status(409).Key)
		assert.Equal(t, "error", logger.Error(errors.New("boom")).Key)
	})
}
