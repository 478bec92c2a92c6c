package sqlx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	libsqlx "github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"scorekeeper/core"
)

// Driver names a database/sql driver supported by the store.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
)

// Config holds SQL connection configuration
type Config struct {
	Driver          Driver        `json:"driver" env:"SCOREKEEPER_STORAGE_SQL_DRIVER"`
	DSN             string        `json:"dsn" env:"SCOREKEEPER_STORAGE_SQL_DSN"`
	MaxOpenConns    int           `json:"max_open_conns" env:"SCOREKEEPER_STORAGE_SQL_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"SCOREKEEPER_STORAGE_SQL_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"SCOREKEEPER_STORAGE_SQL_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `json:"auto_migrate" env:"SCOREKEEPER_STORAGE_SQL_AUTO_MIGRATE"`
}

// DefaultConfig returns sensible defaults for the given driver. SQLite is
// limited to a single open connection so writers never contend for the file lock.
func DefaultConfig(driver Driver) Config {
	cfg := Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		AutoMigrate:     true,
	}
	switch driver {
	case DriverSQLite:
		cfg.DSN = "highscores.db"
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	case DriverPostgres:
		cfg.DSN = "postgres://localhost:5432/scorekeeper?sslmode=disable"
	case DriverMySQL:
		cfg.DSN = "root@tcp(localhost:3306)/scorekeeper"
	}
	return cfg
}

// Validate checks the driver and DSN.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported sql driver %q", c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return errors.New("dsn cannot be empty")
	}
	return nil
}

// Store implements score and preset storage on a SQL database.
// Tables:
//   - scores(id, score, name)
//   - instructors(id, name, <one column per preset field>)
//
// Each operation checks a connection out of the pool and returns it before
// the call ends, on success or failure.
type Store struct {
	db     *libsqlx.DB
	driver Driver
}

// New opens the database, verifies the connection and creates the schema
// when AutoMigrate is set.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dsn := cfg.DSN
	if cfg.Driver == DriverSQLite && !strings.Contains(dsn, "_pragma=") {
		dsn = withSQLitePragmas(dsn)
	}
	db, err := libsqlx.Open(string(cfg.Driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	s := NewWithDB(db, cfg.Driver)
	if cfg.AutoMigrate {
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewWithDB wraps an existing handle (useful for testing).
func NewWithDB(db *libsqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func withSQLitePragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// withConn runs fn on a connection checked out for the duration of the call.
func (s *Store) withConn(ctx context.Context, fn func(*libsqlx.Conn) error) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.withConn(ctx, func(conn *libsqlx.Conn) error {
		for _, stmt := range schema(s.driver) {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}
		return nil
	})
}

func schema(driver Driver) []string {
	var idCol, intType, nameType, tableOpts string
	switch driver {
	case DriverPostgres:
		idCol, intType, nameType = "id BIGSERIAL PRIMARY KEY", "BIGINT", "TEXT"
	case DriverMySQL:
		idCol, intType, nameType = "id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY", "BIGINT", "VARCHAR(255)"
		tableOpts = " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	default:
		idCol, intType, nameType = "id INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER", "TEXT"
	}

	presetCols := make([]string, 0, len(core.PresetFieldNames))
	for _, name := range core.PresetFieldNames {
		presetCols = append(presetCols, fmt.Sprintf("%s %s NOT NULL DEFAULT %d", name, intType, core.DefaultPresetValue))
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS scores (
			%s,
			score %s NOT NULL,
			name %s NOT NULL
		)%s`, idCol, intType, nameType, tableOpts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS instructors (
			%s,
			name %s NOT NULL,
			%s
		)%s`, idCol, nameType, strings.Join(presetCols, ",\n\t\t\t"), tableOpts),
	}
	// MySQL has no CREATE INDEX IF NOT EXISTS.
	if driver != DriverMySQL {
		stmts = append(stmts,
			`CREATE INDEX IF NOT EXISTS idx_scores_score ON scores(score)`,
			`CREATE INDEX IF NOT EXISTS idx_instructors_name ON instructors(name)`,
		)
	}
	return stmts
}

// SubmitScore inserts the entry and, inside the same transaction, evicts the
// lowest score when the table holds more than capacity rows. Any failure
// rolls the whole unit back.
func (s *Store) SubmitScore(ctx context.Context, entry core.ScoreEntry, capacity int) (core.Submission, error) {
	var sub core.Submission
	err := s.withConn(ctx, func(conn *libsqlx.Conn) (err error) {
		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()

		entry.ID, err = s.insert(ctx, tx, "INSERT INTO scores (score, name) VALUES (?, ?)", entry.Score, entry.Name)
		if err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
		sub.Entry = entry

		var count int
		if err = tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM scores"); err != nil {
			return fmt.Errorf("count scores: %w", err)
		}
		if count > capacity {
			var victim core.ScoreEntry
			if err = tx.GetContext(ctx, &victim, "SELECT id, score, name FROM scores ORDER BY score ASC, id DESC LIMIT 1"); err != nil {
				return fmt.Errorf("find lowest score: %w", err)
			}
			if _, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM scores WHERE id = ?"), victim.ID); err != nil {
				return fmt.Errorf("evict score: %w", err)
			}
			sub.Evicted = &victim
		}
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Submission{}, err
	}
	return sub, nil
}

// insert runs an INSERT and returns the generated id. Postgres has no
// LastInsertId so it uses RETURNING instead.
func (s *Store) insert(ctx context.Context, tx *libsqlx.Tx, query string, args ...any) (int64, error) {
	if s.driver == DriverPostgres {
		var id int64
		err := tx.QueryRowxContext(ctx, tx.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) TopScores(ctx context.Context, limit int) ([]core.ScoreEntry, error) {
	out := []core.ScoreEntry{}
	err := s.withConn(ctx, func(conn *libsqlx.Conn) error {
		return conn.SelectContext(ctx, &out,
			conn.Rebind("SELECT id, score, name FROM scores ORDER BY score DESC, id ASC LIMIT ?"), limit)
	})
	if err != nil {
		return nil, fmt.Errorf("select top scores: %w", err)
	}
	return out, nil
}

func (s *Store) CountScores(ctx context.Context) (int, error) {
	var n int
	err := s.withConn(ctx, func(conn *libsqlx.Conn) error {
		return conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM scores")
	})
	if err != nil {
		return 0, fmt.Errorf("count scores: %w", err)
	}
	return n, nil
}

func (s *Store) SubmitPreset(ctx context.Context, p core.InstructorPreset) (core.InstructorPreset, error) {
	cols := append([]string{"name"}, core.PresetFieldNames...)
	query := fmt.Sprintf("INSERT INTO instructors (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	args := []any{p.Name}
	for _, v := range p.Values() {
		args = append(args, v)
	}

	err := s.withConn(ctx, func(conn *libsqlx.Conn) (err error) {
		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		p.ID, err = s.insert(ctx, tx, query, args...)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert preset: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return core.InstructorPreset{}, err
	}
	return p, nil
}

// ListPresets orders by the byte value of the name regardless of the
// database's default collation.
func (s *Store) ListPresets(ctx context.Context) ([]core.InstructorPreset, error) {
	query := fmt.Sprintf("SELECT id, name, %s FROM instructors ORDER BY %s, id ASC",
		strings.Join(core.PresetFieldNames, ", "), s.binaryNameOrder())
	out := []core.InstructorPreset{}
	err := s.withConn(ctx, func(conn *libsqlx.Conn) error {
		return conn.SelectContext(ctx, &out, query)
	})
	if err != nil {
		return nil, fmt.Errorf("select presets: %w", err)
	}
	return out, nil
}

func (s *Store) binaryNameOrder() string {
	switch s.driver {
	case DriverPostgres:
		return `name COLLATE "C"`
	case DriverMySQL:
		return "name COLLATE utf8mb4_bin"
	default:
		return "name"
	}
}
