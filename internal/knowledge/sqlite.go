package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/lexsy/internal/models"
	"github.com/hyperjump/lexsy/internal/vector"
)

// SQLiteRepository persists partitions in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer connection serializes id assignment across goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS partitions (
		client_id INTEGER PRIMARY KEY,
		dimensions INTEGER NOT NULL,
		next_id INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS knowledge_records (
		client_id INTEGER NOT NULL,
		id INTEGER NOT NULL,
		text TEXT NOT NULL,
		embedding BLOB NOT NULL,
		source_type TEXT NOT NULL,
		metadata TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (client_id, id),
		FOREIGN KEY (client_id) REFERENCES partitions(client_id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_source ON knowledge_records(client_id, source_type);
	`
	_, err := db.Exec(schema)
	return err
}

// Append creates the partition if needed, checks the embedding length and
// inserts rec under the partition's next id, all in one transaction.
func (s *SQLiteRepository) Append(ctx context.Context, rec *models.KnowledgeRecord) (int64, error) {
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO partitions (client_id, dimensions, next_id) VALUES (?, ?, 1)`,
		rec.ClientID, len(rec.Embedding),
	); err != nil {
		return 0, fmt.Errorf("failed to create partition: %w", err)
	}

	var dims int
	var id int64
	if err := tx.QueryRowContext(ctx,
		`SELECT dimensions, next_id FROM partitions WHERE client_id = ?`, rec.ClientID,
	).Scan(&dims, &id); err != nil {
		return 0, fmt.Errorf("failed to read partition: %w", err)
	}
	if dims != len(rec.Embedding) {
		return 0, dimensionMismatch(rec.ClientID, len(rec.Embedding), dims)
	}

	createdAt := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO knowledge_records (client_id, id, text, embedding, source_type, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ClientID, id, rec.Text, vector.Encode(rec.Embedding), string(rec.Metadata.SourceType), string(metadataJSON), createdAt,
	); err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE partitions SET next_id = next_id + 1 WHERE client_id = ?`, rec.ClientID,
	); err != nil {
		return 0, fmt.Errorf("failed to advance partition id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit record: %w", err)
	}

	rec.ID = id
	rec.CreatedAt = createdAt
	return id, nil
}

// List returns the partition's records ordered by id.
func (s *SQLiteRepository) List(ctx context.Context, clientID int64) ([]*models.KnowledgeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, embedding, metadata, created_at
		 FROM knowledge_records WHERE client_id = ? ORDER BY id`, clientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*models.KnowledgeRecord{}
	for rows.Next() {
		rec := &models.KnowledgeRecord{ClientID: clientID}
		var blob []byte
		var metadataJSON string
		if err := rows.Scan(&rec.ID, &rec.Text, &blob, &metadataJSON, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if rec.Embedding, err = vector.Decode(blob); err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of records for clientID.
func (s *SQLiteRepository) Count(ctx context.Context, clientID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM knowledge_records WHERE client_id = ?`, clientID,
	).Scan(&n)
	return n, err
}

// Dimensions returns the partition's embedding length, 0 when absent.
func (s *SQLiteRepository) Dimensions(ctx context.Context, clientID int64) (int, error) {
	var dims int
	err := s.db.QueryRowContext(ctx,
		`SELECT dimensions FROM partitions WHERE client_id = ?`, clientID,
	).Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return dims, err
}

// Close closes the database.
func (s *SQLiteRepository) Close() error {
	return s.db.Close()
}
