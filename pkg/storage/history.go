package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("storage: record not found")

// Record is one served prediction.
type Record struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Brand      string    `json:"brand"`
	ScreenSize float64   `json:"screen_size"`
	HardDisk   float64   `json:"harddisk"`
	RAM        float64   `json:"ram"`
	Selection  string    `json:"selection"`
	Price      float64   `json:"price"`
}

// NewRecord stamps a fresh id and the current UTC time.
func NewRecord(brand string, screenSize, hardDisk, ram float64, selection string, price float64) Record {
	return Record{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		Brand:      brand,
		ScreenSize: screenSize,
		HardDisk:   hardDisk,
		RAM:        ram,
		Selection:  selection,
		Price:      price,
	}
}

// row is the table layout; created_at is unix nanoseconds so both drivers agree.
type row struct {
	ID         string  `db:"id"`
	CreatedAt  int64   `db:"created_at"`
	Brand      string  `db:"brand"`
	ScreenSize float64 `db:"screen_size"`
	HardDisk   float64 `db:"harddisk"`
	RAM        float64 `db:"ram"`
	Selection  string  `db:"selection"`
	Price      float64 `db:"price"`
}

func (r row) record() Record {
	return Record{
		ID:         r.ID,
		CreatedAt:  time.Unix(0, r.CreatedAt).UTC(),
		Brand:      r.Brand,
		ScreenSize: r.ScreenSize,
		HardDisk:   r.HardDisk,
		RAM:        r.RAM,
		Selection:  r.Selection,
		Price:      r.Price,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	id          VARCHAR(36) PRIMARY KEY,
	created_at  BIGINT NOT NULL,
	brand       TEXT NOT NULL,
	screen_size DOUBLE PRECISION NOT NULL,
	harddisk    DOUBLE PRECISION NOT NULL,
	ram         DOUBLE PRECISION NOT NULL,
	selection   TEXT NOT NULL,
	price       DOUBLE PRECISION NOT NULL
)`

// HistoryStore persists predictions to SQLite or PostgreSQL.
type HistoryStore struct {
	db *sqlx.DB
	mu sync.Mutex
}

// Open connects with driver "sqlite" or "postgres" and creates the table.
func Open(driver, dsn string) (*HistoryStore, error) {
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", driver)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: connect %s: %w", driver, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init table: %w", err)
	}
	if driver == "sqlite" {
		if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA synchronous = NORMAL;`); err != nil {
			log.Printf("[Storage] Warning: Failed to set PRAGMA: %v", err)
		}
	}
	return &HistoryStore{db: db}, nil
}

func (s *HistoryStore) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	query := s.db.Rebind(`INSERT INTO predictions
		(id, created_at, brand, screen_size, harddisk, ram, selection, price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.CreatedAt.UnixNano(), rec.Brand,
		rec.ScreenSize, rec.HardDisk, rec.RAM,
		rec.Selection, rec.Price,
	)
	return err
}

func (s *HistoryStore) Get(ctx context.Context, id string) (Record, error) {
	var r row
	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT * FROM predictions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return r.record(), nil
}

// Recent returns up to limit records, newest first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []row
	query := s.db.Rebind(`SELECT * FROM predictions ORDER BY created_at DESC, id LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, err
	}
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

func (s *HistoryStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM predictions`)
	return n, err
}

func (s *HistoryStore) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM predictions")
	return err
}

func (s *HistoryStore) Close() error {
	return s.db.Close()
}
