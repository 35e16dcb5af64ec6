package subscription_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

func TestDefaultPlans(t *testing.T) {
	t.Parallel()

	plans := subscription.DefaultPlans()
	require.Len(t, plans, 3)

	byCode := make(map[string]subscription.Plan, len(plans))
	for _, plan := range plans {
		byCode[plan.Code] = plan
	}

	require.Contains(t, byCode, subscription.DefaultPlanCode)
	assert.Equal(t, "9.90", byCode["basic"].Price.StringFixed(2))
	assert.Equal(t, "29.90", byCode["pro"].Price.StringFixed(2))
	assert.Equal(t, "49.90", byCode["ultimate"].Price.StringFixed(2))
	for code, plan := range byCode {
		assert.Equal(t, "EUR", plan.Currency, code)
		assert.Equal(t, 1, plan.PeriodMonths, code)
	}
}

func TestNewInMemSource(t *testing.T) {
	t.Parallel()

	t.Run("panics without plans", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { subscription.NewInMemSource() })
	})

	t.Run("loads a copy of the plans", func(t *testing.T) {
		t.Parallel()

		src := subscription.NewInMemSource(subscription.DefaultPlans()...)
		plans, err := src.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, plans, 3)

		delete(plans, "basic")
		again, err := src.Load(context.Background())
		require.NoError(t, err)
		assert.Contains(t, again, "basic", "callers must not mutate the source")
	})
}

func TestNewService_PlanValidation(t *testing.T) {
	t.Parallel()

	t.Run("rejects negative price", func(t *testing.T) {
		t.Parallel()

		src := subscription.NewInMemSource(subscription.Plan{
			Code:  "broken",
			Price: decimal.RequireFromString("-1"),
		})
		_, err := subscription.NewService(context.Background(), src, subscription.NewMemoryStore(), nil, nil)
		assert.ErrorIs(t, err, subscription.ErrInvalidPlanConfiguration)
	})

	t.Run("normalizes omitted period to one month", func(t *testing.T) {
		t.Parallel()

		src := subscription.NewInMemSource(subscription.Plan{
			Code:  "basic",
			Price: decimal.RequireFromString("9.90"),
		})
		svc, err := subscription.NewService(context.Background(), src, subscription.NewMemoryStore(), nil, nil)
		require.NoError(t, err)
		require.NotNil(t, svc)
	})
}

func TestYAMLSource(t *testing.T) {
	t.Parallel()

	t.Run("loads plans from file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "plans.yml")
		content := `plans:
  - code: basic
    name: Basic
    price: "9.90"
    currency: EUR
    period_months: 1
  - code: pro
    name: Pro
    price: "29.90"
    currency: EUR
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		src := subscription.NewYAMLSource(path)
		plans, err := src.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, plans, 2)

		assert.Equal(t, "9.90", plans["basic"].Price.StringFixed(2))
		assert.Equal(t, "Pro", plans["pro"].Name)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		src := subscription.NewYAMLSource(filepath.Join(t.TempDir(), "absent.yml"))
		_, err := src.Load(context.Background())
		assert.Error(t, err)
	})

	t.Run("malformed price", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "plans.yml")
		content := `plans:
  - code: basic
    price: "not-a-number"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		src := subscription.NewYAMLSource(path)
		_, err := src.Load(context.Background())
		assert.Error(t, err)
	})
}
