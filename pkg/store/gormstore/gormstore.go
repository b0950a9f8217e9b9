// Package gormstore implements store.Store on gorm, with MySQL for
// production and SQLite for local runs and tests.
package gormstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/utc"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/agentstation/bookingsync/pkg/bookings"
	"github.com/agentstation/bookingsync/pkg/errors"
	"github.com/agentstation/bookingsync/pkg/logging"
	"github.com/agentstation/bookingsync/pkg/store"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// Store is a gorm-backed store.Store.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects using cfg and tunes the connection pool.
func Open(cfg Config, log *zerolog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.NewConfigError("database", "dsn is empty", nil)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverMySQL, "":
		dialector = mysql.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, errors.NewConfigError("database", fmt.Sprintf("unsupported driver %q", cfg.Driver), nil)
	}

	if log == nil {
		log = logging.Default()
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log, logger.Config{
			LogLevel:                  cfg.LogLevel,
			SlowThreshold:             cfg.SlowThreshold,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		TranslateError: true,
		NowFunc:        func() time.Time { return utc.Now().Time() },
	})
	if err != nil {
		return nil, errors.WrapResource("open", "database", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.WrapResource("open", "database", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY inside transactions.
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns >= 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
		if cfg.ConnMaxIdleTime > 0 {
			sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
		}
	}

	log.Debug().Str("driver", cfg.Driver).Msg("Connected to database")
	return &Store{db: db}, nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates or updates the properties and bookings tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&bookings.Property{}, &bookings.Booking{}); err != nil {
		return errors.WrapResource("migrate", "database", "", err)
	}
	return nil
}

// CreateProperty inserts a property. A name that already exists returns a
// *errors.ResourceError.
func (s *Store) CreateProperty(ctx context.Context, name string) (*bookings.Property, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return nil, errors.NewValidationError("name", name, "cannot be empty")
	}

	p := &bookings.Property{Name: name}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, errors.NewResourceError("create", "property", name, fmt.Errorf("already exists"))
		}
		return nil, errors.WrapResource("create", "property", name, err)
	}
	return p, nil
}

// ResolveProperty implements store.PropertyResolver.
func (s *Store) ResolveProperty(ctx context.Context, label string) (*bookings.Property, error) {
	label = strings.Join(strings.Fields(label), " ")

	var p bookings.Property
	err := s.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(label)).
		First(&p).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NewNotFoundError("property", label)
	}
	if err != nil {
		return nil, errors.WrapResource("resolve", "property", label, err)
	}
	return &p, nil
}

// FindByIdentity implements store.Finder.
func (s *Store) FindByIdentity(ctx context.Context, propertyID uint, source, code string) ([]bookings.Booking, error) {
	var found []bookings.Booking
	err := s.db.WithContext(ctx).
		Where("property_id = ? AND LOWER(source) = ? AND external_code = ?",
			propertyID, strings.ToLower(strings.TrimSpace(source)), code).
		Order("id").
		Find(&found).Error
	if err != nil {
		return nil, errors.WrapResource("find", "booking", code, err)
	}
	return found, nil
}

// Transaction implements store.Transactor on a database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (tx *gormTx) Create(ctx context.Context, b *bookings.Booking) error {
	if err := tx.db.WithContext(ctx).Omit(clause.Associations).Create(b).Error; err != nil {
		return translate("create", 0, err)
	}
	return nil
}

func (tx *gormTx) GetForUpdate(ctx context.Context, id uint) (*bookings.Booking, error) {
	var b bookings.Booking
	// SQLite ignores the locking clause; its single writer already serializes.
	err := tx.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, id).Error
	if err != nil {
		return nil, translate("read", id, err)
	}
	return &b, nil
}

func (tx *gormTx) Update(ctx context.Context, id uint, patch bookings.Patch, actor string) error {
	cols := patch.Columns()
	cols["updated_by"] = actor

	err := tx.db.WithContext(ctx).
		Model(&bookings.Booking{}).
		Where("id = ?", id).
		Updates(cols).Error
	if err != nil {
		return translate("update", id, err)
	}
	return nil
}

// translate maps driver errors onto the error taxonomy.
func translate(op string, id uint, err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NewNotFoundError("booking", strconv.FormatUint(uint64(id), 10))
	}
	if isDuplicateKey(err) {
		return errors.NewPersistenceError(op, id, fmt.Errorf("duplicate key: %w", err))
	}
	return errors.NewPersistenceError(op, id, err)
}

func isDuplicateKey(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	if stderrors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return false
}
