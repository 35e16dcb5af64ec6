package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithFormat(logger.FormatJSON),
		logger.WithOutput(&buf),
		logger.WithAttr(slog.String("service", "billing")),
	)

	log.Info("cycle finished", slog.Int("processed", 3))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "cycle finished", record["msg"])
	assert.Equal(t, "billing", record["service"])
	assert.Equal(t, float64(3), record["processed"])
}

func TestNew_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithFormat(logger.FormatText),
		logger.WithOutput(&buf),
	)

	log.Warn("unknown plan code")
	assert.Contains(t, buf.String(), "unknown plan code")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithLevel(slog.LevelWarn),
	)

	log.Info("should be dropped")
	assert.Empty(t, buf.String())

	log.Error("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestWithFormat_PanicsOnInvalid(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("xml")))
	})
}

func TestAttrHelpers(t *testing.T) {
	t.Parallel()

	t.Run("error attr", func(t *testing.T) {
		t.Parallel()
		attr := logger.Error(errors.New("boom"))
		assert.Equal(t, "error", attr.Key)

		empty := logger.Error(nil)
		assert.Empty(t, empty.Key)
	})

	t.Run("subscription attrs", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "subscription_id", logger.SubscriptionID("sub_1").Key)
		assert.Equal(t, "subscriber_id", logger.SubscriberID("usr_1").Key)
		assert.Equal(t, "plan_id", logger.PlanID("basic").Key)
		assert.Equal(t, "attempt_count", logger.AttemptCount(2).Key)
	})

	t.Run("attrs render in output", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithFormat(logger.FormatText), logger.WithOutput(&buf))
		log.Info("charge failed", logger.PlanID("pro"), logger.AttemptCount(1))
		out := buf.String()
		assert.True(t, strings.Contains(out, "plan_id=pro"))
		assert.True(t, strings.Contains(out, "attempt_count=1"))
	})
}
