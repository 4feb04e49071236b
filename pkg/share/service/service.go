// Package service implements the share object lifecycle: request
// management on the API side and provisioning runs on the worker side.
// All status changes go through the state machine package; concurrent
// runs on the same share are excluded by a database advisory lock.
package service

import (
	"time"

	"github.com/lakegate/lakegate/pkg/metrics"
	"github.com/lakegate/lakegate/pkg/share/dispatch"
	"github.com/lakegate/lakegate/pkg/share/processor"
	"github.com/lakegate/lakegate/pkg/share/store"
)

// DefaultLockTTL bounds how long a crashed run can block its share before
// the lease becomes stealable.
const DefaultLockTTL = 30 * time.Minute

// Config tunes the sharing service.
type Config struct {
	// LockTTL is the advisory lock lease duration for provisioning runs.
	LockTTL time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.LockTTL == 0 {
		c.LockTTL = DefaultLockTTL
	}
}

// Service orchestrates share objects end to end.
type Service struct {
	store      *store.GORMStore
	registry   *processor.Registry
	dispatcher dispatch.Dispatcher
	authorizer Authorizer
	notifier   *Notifier
	metrics    *metrics.ShareMetrics

	lockTTL time.Duration
	now     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithMetrics attaches share run metrics.
func WithMetrics(m *metrics.ShareMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAuthorizer replaces the default policy-store authorizer.
func WithAuthorizer(a Authorizer) Option {
	return func(s *Service) { s.authorizer = a }
}

// New wires a sharing service.
func New(st *store.GORMStore, registry *processor.Registry, dispatcher dispatch.Dispatcher, cfg Config, opts ...Option) *Service {
	cfg.ApplyDefaults()

	s := &Service{
		store:      st,
		registry:   registry,
		dispatcher: dispatcher,
		authorizer: NewPolicyAuthorizer(st),
		notifier:   NewNotifier(st),
		lockTTL:    cfg.LockTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the backing store for the HTTP layer's read endpoints.
func (s *Service) Store() *store.GORMStore {
	return s.store
}
