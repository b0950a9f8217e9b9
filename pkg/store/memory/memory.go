// Package memory provides an in-memory store.Store for tests, dry runs and
// small one-off imports.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/bookingsync/pkg/bookings"
	"github.com/agentstation/bookingsync/pkg/errors"
	"github.com/agentstation/bookingsync/pkg/store"
)

// WriteHook is called before every write made inside a transaction. A
// non-nil error aborts the transaction.
type WriteHook func(op string, b *bookings.Booking) error

// Option configures a Store.
type Option func(*config) error

type config struct {
	hook  WriteHook
	clock func() time.Time
}

// WithWriteHook installs a hook used to inject storage failures.
func WithWriteHook(hook WriteHook) Option {
	return func(cfg *config) error {
		cfg.hook = hook
		return nil
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(cfg *config) error {
		if clock == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		cfg.clock = clock
		return nil
	}
}

// Store keeps properties and bookings in maps guarded by a single lock.
// Transactions hold the lock exclusively, so they are serialized.
type Store struct {
	mu         sync.RWMutex
	cfg        config
	properties map[uint]*bookings.Property
	bookings   map[uint]*bookings.Booking
	nextProp   uint
	nextID     uint
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New(opts ...Option) (*Store, error) {
	cfg := config{clock: func() time.Time { return utc.Now().Time() }}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("applying memory option: %w", err)
		}
	}
	return &Store{
		cfg:        cfg,
		properties: make(map[uint]*bookings.Property),
		bookings:   make(map[uint]*bookings.Booking),
	}, nil
}

// AddProperty registers a property and returns it with its ID assigned.
func (s *Store) AddProperty(name string) (*bookings.Property, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return nil, errors.NewValidationError("name", name, "cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.properties {
		if strings.EqualFold(p.Name, name) {
			return nil, errors.NewResourceError("create", "property", name, fmt.Errorf("already exists"))
		}
	}
	s.nextProp++
	now := s.cfg.clock()
	p := &bookings.Property{ID: s.nextProp, Name: name, CreatedAt: now, UpdatedAt: now}
	s.properties[p.ID] = p
	cp := *p
	return &cp, nil
}

// Put stores a copy of b as-is, assigning an ID when b has none. It bypasses
// transactions and is meant for seeding.
func (s *Store) Put(b *bookings.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		s.nextID++
		b.ID = s.nextID
	} else if b.ID > s.nextID {
		s.nextID = b.ID
	}
	s.bookings[b.ID] = b.Clone()
}

// Get returns a copy of the booking with the given ID.
func (s *Store) Get(id uint) (*bookings.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, errors.NewNotFoundError("booking", strconv.FormatUint(uint64(id), 10))
	}
	return b.Clone(), nil
}

// List returns copies of all bookings ordered by ID.
func (s *Store) List() []bookings.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]bookings.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, *b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of stored bookings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings)
}

// ResolveProperty implements store.PropertyResolver.
func (s *Store) ResolveProperty(ctx context.Context, label string) (*bookings.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	label = strings.Join(strings.Fields(label), " ")

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.properties {
		if strings.EqualFold(p.Name, label) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errors.NewNotFoundError("property", label)
}

// FindByIdentity implements store.Finder.
func (s *Store) FindByIdentity(ctx context.Context, propertyID uint, source, code string) ([]bookings.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []bookings.Booking
	for _, b := range s.bookings {
		if b.PropertyID == propertyID && b.ExternalCode == code && bookings.SameSource(b.Source, source) {
			out = append(out, *b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Transaction implements store.Transactor. Writes are staged and only
// become visible when fn returns nil.
func (s *Store) Transaction(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, staged: make(map[uint]*bookings.Booking)}
	if err := fn(tx); err != nil {
		return err
	}
	for id, b := range tx.staged {
		s.bookings[id] = b
	}
	return nil
}

// memTx runs with the store lock held.
type memTx struct {
	store  *Store
	staged map[uint]*bookings.Booking
}

func (tx *memTx) lookup(id uint) (*bookings.Booking, bool) {
	if b, ok := tx.staged[id]; ok {
		return b, true
	}
	b, ok := tx.store.bookings[id]
	return b, ok
}

func (tx *memTx) hook(op string, b *bookings.Booking) error {
	if tx.store.cfg.hook == nil {
		return nil
	}
	return tx.store.cfg.hook(op, b)
}

func (tx *memTx) Create(ctx context.Context, b *bookings.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := tx.store.properties[b.PropertyID]; !ok {
		return errors.NewPersistenceError("create", 0, fmt.Errorf("property %d does not exist", b.PropertyID))
	}
	if err := tx.hook("create", b); err != nil {
		return errors.NewPersistenceError("create", 0, err)
	}

	tx.store.nextID++
	now := tx.store.cfg.clock()
	b.ID = tx.store.nextID
	b.CreatedAt, b.UpdatedAt = now, now
	tx.staged[b.ID] = b.Clone()
	return nil
}

func (tx *memTx) GetForUpdate(ctx context.Context, id uint) (*bookings.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := tx.lookup(id)
	if !ok {
		return nil, errors.NewNotFoundError("booking", strconv.FormatUint(uint64(id), 10))
	}
	return b.Clone(), nil
}

func (tx *memTx) Update(ctx context.Context, id uint, patch bookings.Patch, actor string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	current, ok := tx.lookup(id)
	if !ok {
		return errors.NewNotFoundError("booking", strconv.FormatUint(uint64(id), 10))
	}

	next := current.Clone()
	patch.Apply(next)
	next.UpdatedBy = actor
	next.UpdatedAt = tx.store.cfg.clock()
	if err := tx.hook("update", next); err != nil {
		return errors.NewPersistenceError("update", id, err)
	}
	tx.staged[id] = next
	return nil
}
