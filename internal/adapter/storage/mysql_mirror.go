package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/anemia-history/internal/core/domain"
)

const createHistoryDocumentsTable = `
CREATE TABLE IF NOT EXISTS history_documents (
	name       VARCHAR(64) NOT NULL PRIMARY KEY,
	body       LONGTEXT    NOT NULL,
	updated_at TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`

// MySQLMirror stores History as a single row of history_documents.
type MySQLMirror struct {
	db   *sql.DB
	name string
}

func NewMySQLMirror(db *sql.DB, name string) *MySQLMirror {
	return &MySQLMirror{db: db, name: name}
}

func (m *MySQLMirror) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createHistoryDocumentsTable); err != nil {
		return fmt.Errorf("create history_documents: %w", err)
	}
	return nil
}

func (m *MySQLMirror) Load(ctx context.Context) ([]domain.Record, bool, error) {
	var body string
	err := m.db.QueryRowContext(ctx, `
		SELECT body FROM history_documents WHERE name = ?`, m.name,
	).Scan(&body)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query history document: %w", err)
	}

	records, err := decodeHistory([]byte(body))
	if err != nil {
		return nil, true, fmt.Errorf("history document %s: %w", m.name, err)
	}
	return records, true, nil
}

func (m *MySQLMirror) Save(ctx context.Context, records []domain.Record) error {
	data, err := encodeHistory(records)
	if err != nil {
		return err
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO history_documents (name, body) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE body = VALUES(body)`,
		m.name, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert history document: %w", err)
	}
	return nil
}
