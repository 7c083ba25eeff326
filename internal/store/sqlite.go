package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/dshills/keyweave/internal/logging"
)

// slowQuery is the threshold above which queries are logged as warnings.
const slowQuery = 200 * time.Millisecond

// ValueModel is one stored value.
type ValueModel struct {
	Namespace string `gorm:"primaryKey;size:64"`
	Key       string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM.
func (ValueModel) TableName() string {
	return "kv"
}

// gormLogger routes GORM output to a keyweave logger.
type gormLogger struct {
	level logger.LogLevel
	log   *logging.Logger
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level, log: l.log}
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		l.log.Info(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		l.log.Warn(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		l.log.Error(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level < logger.Info {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		l.log.WithFields(map[string]any{"sql": sql, "rows": rows, "duration": elapsed}).Error("gorm query error: %v", err)
	case elapsed > slowQuery:
		l.log.WithFields(map[string]any{"sql": sql, "rows": rows, "duration": elapsed}).Warn("slow query")
	default:
		l.log.WithFields(map[string]any{"sql": sql, "rows": rows, "duration": elapsed}).Debug("gorm query")
	}
}

func newGormLogger(l *logging.Logger) logger.Interface {
	g := &gormLogger{log: l}
	if l.Enabled(logging.LevelDebug) {
		return g.LogMode(logger.Info)
	}
	return g.LogMode(logger.Warn)
}

// SQLiteStore keeps values in a SQLite table.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string, log *logging.Logger) (*SQLiteStore, error) {
	log = logging.OrDefault(log).WithComponent("store")

	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[1:])
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&ValueModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	var row ValueModel
	err := withRetry(func() error {
		return s.db.WithContext(ctx).
			Where(map[string]any{"namespace": namespace, "key": key}).
			Take(&row).Error
	}, 3)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrap("get", namespace, key, ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get", namespace, key, err)
	}
	return []byte(row.Value), nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	if !json.Valid(value) {
		return wrap("set", namespace, key, ErrInvalidValue)
	}
	row := ValueModel{Namespace: namespace, Key: key, Value: string(value)}
	err := withRetry(func() error {
		return upsert(s.db.WithContext(ctx), &row)
	}, 3)
	return wrap("set", namespace, key, err)
}

// SetMany implements Store. The rows are written in one transaction.
func (s *SQLiteStore) SetMany(ctx context.Context, namespace string, values map[string][]byte) error {
	if err := validateAll(namespace, values); err != nil {
		return err
	}
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, k := range slices.Sorted(maps.Keys(values)) {
				row := ValueModel{Namespace: namespace, Key: k, Value: string(values[k])}
				if err := upsert(tx, &row); err != nil {
					return err
				}
			}
			return nil
		})
	}, 3)
	return wrap("set", namespace, "*", err)
}

func upsert(db *gorm.DB, row *ValueModel) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(row).Error
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// withRetry retries operations on SQLITE_BUSY with a linear backoff.
func withRetry(fn func() error, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			time.Sleep(time.Millisecond * time.Duration(50*(i+1)))
			continue
		}
		return err
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}
