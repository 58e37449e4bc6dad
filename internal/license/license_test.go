package license

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/letieu/strategia/internal/database"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestManager(t *testing.T) (*Manager, *clock, database.Store) {
	t.Helper()
	c := &clock{t: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
	store := database.NewMemory()
	return NewManager(store, zap.NewNop(), WithClock(c.now)), c, store
}

func TestGate_Allow(t *testing.T) {
	tests := []struct {
		name   string
		gate   Gate
		action Action
		want   bool
	}{
		{"free first generation", Gate{}, Generate, true},
		{"free third generation", Gate{Usage: Usage{GenerationsToday: 2}}, Generate, true},
		{"free fourth generation", Gate{Usage: Usage{GenerationsToday: 3}}, Generate, false},
		{"free save under ceiling", Gate{Usage: Usage{SavedIdeasCount: 2}}, Save, true},
		{"free save at ceiling", Gate{Usage: Usage{SavedIdeasCount: 3}}, Save, false},
		{"free premium feature", Gate{}, FeatureAction(DeepAnalysis), false},
		{"free unknown action", Gate{}, Action("teleport"), false},
		{"licensed over quota", Gate{Licensed: true, Usage: Usage{GenerationsToday: 50}}, Generate, true},
		{"licensed over save ceiling", Gate{Licensed: true, Usage: Usage{SavedIdeasCount: 50}}, Save, true},
		{"licensed feature", Gate{Licensed: true}, FeatureAction(Export), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.gate.Allow(tt.action))
		})
	}
}

func TestGate_FreeTierLocksEveryFeature(t *testing.T) {
	for _, f := range Features {
		assert.False(t, Gate{}.Allow(FeatureAction(f)), f)
		assert.True(t, Gate{Licensed: true}.Allow(FeatureAction(f)), f)
	}
}

func TestGate_Check(t *testing.T) {
	assert.NoError(t, Gate{}.Check(Generate))
	assert.ErrorIs(t, Gate{Usage: Usage{GenerationsToday: 3}}.Check(Generate), ErrQuotaExceeded)
	assert.ErrorIs(t, Gate{Usage: Usage{SavedIdeasCount: 3}}.Check(Save), ErrQuotaExceeded)
	assert.ErrorIs(t, Gate{}.Check(FeatureAction(Comparison)), ErrFeatureLocked)
}

func TestGate_Remaining(t *testing.T) {
	assert.Equal(t, 3, Gate{}.Remaining())
	assert.Equal(t, 1, Gate{Usage: Usage{GenerationsToday: 2}}.Remaining())
	assert.Equal(t, 0, Gate{Usage: Usage{GenerationsToday: 7}}.Remaining())
	assert.Equal(t, Unlimited, Gate{Licensed: true}.Remaining())
}

func TestValidKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"ABCD1234-AB12-CD34-EF56-ABCDEF123456", true},
		{"abcd1234-ab12-cd34-ef56-abcdef123456", true},
		{"STGX-AB12-CD34-EF56", true},
		{"  stgx-ab12-cd34-ef56  ", true},
		{"ABCDEFGHIJKLMNOP", true},
		{"SHORT-KEY", false},
		{"", false},
		{"STGX_AB12_CD34_EF56", false},
		{"ABCDEFGHIJKLMNO!", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidKey(tt.key))
		})
	}
}

func TestManager_ThreeGenerationsThenDenied(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < FreeGenerationsPerDay; i++ {
		require.NoError(t, m.Check(ctx, Generate))
		require.NoError(t, m.RecordGeneration(ctx))
	}

	assert.ErrorIs(t, m.Check(ctx, Generate), ErrQuotaExceeded)
	assert.Equal(t, 0, m.Gate(ctx).Remaining())

	_, err := m.Activate(ctx, "STGX-AB12-CD34-EF56", "")
	require.NoError(t, err)
	assert.NoError(t, m.Check(ctx, Generate))
	assert.Equal(t, Unlimited, m.Gate(ctx).Remaining())
}

func TestManager_DayRollover(t *testing.T) {
	m, c, _ := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, m.RecordGeneration(ctx))
	}
	require.NoError(t, m.UpdateSavedCount(ctx, 2))
	assert.Equal(t, 3, m.Usage(ctx).GenerationsToday)

	c.t = c.t.Add(24 * time.Hour)
	u := m.Usage(ctx)
	assert.Equal(t, 0, u.GenerationsToday)
	assert.Equal(t, "2026-10-18", u.LastGenerationDate)
	assert.Equal(t, 2, u.SavedIdeasCount)
	assert.NoError(t, m.Check(ctx, Generate))
}

func TestManager_ActivateDeactivate(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Activate(ctx, "nope", "a@b.c")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.False(t, m.IsLicensed(ctx))

	l, err := m.Activate(ctx, " stgx-ab12-cd34-ef56 ", " a@b.c ")
	require.NoError(t, err)
	assert.Equal(t, "STGX-AB12-CD34-EF56", l.Key)
	assert.Equal(t, "a@b.c", l.Email)
	assert.Equal(t, time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC), l.ActivatedAt)

	stored := m.License(ctx)
	require.NotNil(t, stored)
	assert.Equal(t, *l, *stored)
	assert.True(t, m.HasFeature(ctx, ImageGeneration))

	require.NoError(t, m.Deactivate(ctx))
	assert.False(t, m.IsLicensed(ctx))
	assert.False(t, m.HasFeature(ctx, ImageGeneration))
}

func TestManager_CorruptRecordsDegrade(t *testing.T) {
	m, _, store := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, UsageKey, "{garbage"))
	require.NoError(t, store.Put(ctx, LicenseKey, `{"key":"tiny"}`))

	assert.Equal(t, Usage{LastGenerationDate: "2026-10-17"}, m.Usage(ctx))
	assert.False(t, m.IsLicensed(ctx))
	assert.NoError(t, m.Check(ctx, Generate))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "***************EF56", maskKey("STGX-AB12-CD34-EF56"))
	assert.Equal(t, "****", maskKey("AB"))
	assert.Equal(t, "***************EF56", License{Key: "STGX-AB12-CD34-EF56"}.MaskedKey())
}
