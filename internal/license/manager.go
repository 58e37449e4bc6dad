package license

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/letieu/strategia/internal/database"
)

// Storage keys.
const (
	LicenseKey = "strategia_license"
	UsageKey   = "strategia_usage"
)

// Accepts UUID-like keys, STGX-XXXX-XXXX-XXXX keys, and any 16+ character
// alphanumeric key with dashes.
var keyPattern = regexp.MustCompile(`^([A-Z0-9]{8}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{12}|STGX-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}|[A-Z0-9-]{16,})$`)

// NormalizeKey upper-cases and trims a user-entered key.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// ValidKey reports whether key has an accepted format.
func ValidKey(key string) bool {
	return keyPattern.MatchString(NormalizeKey(key))
}

type License struct {
	Key         string    `json:"key"`
	ActivatedAt time.Time `json:"activatedAt"`
	Email       string    `json:"email,omitempty"`
}

type Usage struct {
	GenerationsToday   int    `json:"generationsToday"`
	LastGenerationDate string `json:"lastGenerationDate"`
	SavedIdeasCount    int    `json:"savedIdeasCount"`
}

// Manager owns the license and usage records.
type Manager struct {
	store  database.Store
	logger *zap.Logger
	now    func() time.Time

	// serialises read-modify-write of the usage record within this process
	mu sync.Mutex
}

type Option func(*Manager)

// WithClock replaces time.Now, mainly for tests of day rollover.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store database.Store, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) today() string {
	return m.now().UTC().Format(time.DateOnly)
}

// License returns the stored license, or nil. A stored key that no longer
// validates counts as no license.
func (m *Manager) License(ctx context.Context) *License {
	var l License
	ok, err := database.GetJSON(ctx, m.store, LicenseKey, &l)
	if err != nil {
		m.logger.Debug("read license", zap.Error(err))
		return nil
	}
	if !ok || !ValidKey(l.Key) {
		return nil
	}
	return &l
}

func (m *Manager) IsLicensed(ctx context.Context) bool {
	return m.License(ctx) != nil
}

// Activate validates the key format and stores it. No remote validation is
// performed.
func (m *Manager) Activate(ctx context.Context, key, email string) (*License, error) {
	key = NormalizeKey(key)
	if !ValidKey(key) {
		return nil, ErrInvalidKey
	}
	l := &License{Key: key, ActivatedAt: m.now().UTC(), Email: strings.TrimSpace(email)}
	if err := database.PutJSON(ctx, m.store, LicenseKey, l); err != nil {
		return nil, fmt.Errorf("store license: %w", err)
	}
	m.logger.Info("license activated", zap.String("key", maskKey(key)))
	return l, nil
}

func (m *Manager) Deactivate(ctx context.Context) error {
	if err := m.store.Delete(ctx, LicenseKey); err != nil {
		return fmt.Errorf("remove license: %w", err)
	}
	m.logger.Info("license deactivated")
	return nil
}

// MaskedKey hides all but the last four characters of the key.
func (l License) MaskedKey() string {
	return maskKey(l.Key)
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// Usage returns the usage record, resetting the daily count when the stored
// date is not today. Read failures degrade to a fresh record.
func (m *Manager) Usage(ctx context.Context) Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage(ctx)
}

func (m *Manager) usage(ctx context.Context) Usage {
	today := m.today()
	var u Usage
	ok, err := database.GetJSON(ctx, m.store, UsageKey, &u)
	if err != nil {
		m.logger.Debug("read usage", zap.Error(err))
	}
	if err != nil || !ok {
		return Usage{LastGenerationDate: today}
	}
	if u.LastGenerationDate != today {
		u.GenerationsToday = 0
		u.LastGenerationDate = today
		if err := database.PutJSON(ctx, m.store, UsageKey, u); err != nil {
			m.logger.Debug("store usage rollover", zap.Error(err))
		}
	}
	return u
}

// RecordGeneration counts one successful generation against today's quota.
func (m *Manager) RecordGeneration(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.usage(ctx)
	u.GenerationsToday++
	u.LastGenerationDate = m.today()
	return database.PutJSON(ctx, m.store, UsageKey, u)
}

// UpdateSavedCount records the size of the saved set.
func (m *Manager) UpdateSavedCount(ctx context.Context, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.usage(ctx)
	u.SavedIdeasCount = n
	return database.PutJSON(ctx, m.store, UsageKey, u)
}

// Gate snapshots the current license and usage.
func (m *Manager) Gate(ctx context.Context) Gate {
	return Gate{Licensed: m.IsLicensed(ctx), Usage: m.Usage(ctx)}
}

// Check evaluates action against the current state.
func (m *Manager) Check(ctx context.Context, action Action) error {
	return m.Gate(ctx).Check(action)
}

// HasFeature reports whether f is available.
func (m *Manager) HasFeature(ctx context.Context, f Feature) bool {
	return m.Gate(ctx).Allow(FeatureAction(f))
}
