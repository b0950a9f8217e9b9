package reconciler

import (
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/bookingsync/pkg/audit"
	"github.com/agentstation/bookingsync/pkg/conflict"
	"github.com/agentstation/bookingsync/pkg/errors"
	"github.com/agentstation/bookingsync/pkg/normalize"
	"github.com/agentstation/bookingsync/pkg/store"
)

// Options configures a reconciler.
type options struct {
	store      store.Store
	normalizer *normalize.Normalizer
	policy     conflict.Policy
	sink       audit.Sink
	dryRun     bool
	logger     *zerolog.Logger // nil means the logger in the context
	clock      func() time.Time
	runID      func() string
}

func defaultOptions() *options {
	return &options{
		policy: conflict.DefaultPolicy(),
		sink:   audit.Nop,
		clock:  func() time.Time { return utc.Now().Time() },
		runID:  uuid.NewString,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithStore sets the storage backend. It is required.
func WithStore(s store.Store) Option {
	return func(o *options) error {
		if s == nil {
			return &errors.ValidationError{
				Field:   "store",
				Message: "cannot be nil",
			}
		}
		o.store = s
		return nil
	}
}

// WithNormalizer sets the row normalizer. Defaults to a UTC normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(o *options) error {
		if n == nil {
			return &errors.ValidationError{
				Field:   "normalizer",
				Message: "cannot be nil",
			}
		}
		o.normalizer = n
		return nil
	}
}

// WithPolicy sets the auto-resolve policy.
func WithPolicy(p conflict.Policy) Option {
	return func(o *options) error {
		o.policy = p
		return nil
	}
}

// WithAuditSink sets where audit events go. Defaults to audit.Nop.
func WithAuditSink(sink audit.Sink) Option {
	return func(o *options) error {
		if sink == nil {
			return &errors.ValidationError{
				Field:   "audit_sink",
				Message: "cannot be nil",
			}
		}
		o.sink = sink
		return nil
	}
}

// WithDryRun classifies rows without writing anything.
func WithDryRun(enabled bool) Option {
	return func(o *options) error {
		o.dryRun = enabled
		return nil
	}
}

// WithLogger sets the logger. By default the logger in the context of each
// Reconcile call is used.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithClock overrides the time source used for run metadata and events.
func WithClock(clock func() time.Time) Option {
	return func(o *options) error {
		if clock == nil {
			return &errors.ValidationError{
				Field:   "clock",
				Message: "cannot be nil",
			}
		}
		o.clock = clock
		return nil
	}
}

// WithRunIDGenerator overrides how run IDs are generated.
func WithRunIDGenerator(gen func() string) Option {
	return func(o *options) error {
		if gen == nil {
			return &errors.ValidationError{
				Field:   "run_id_generator",
				Message: "cannot be nil",
			}
		}
		o.runID = gen
		return nil
	}
}
