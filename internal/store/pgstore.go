package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PGStore keeps the settings document as a single jsonb row. The schema is
// created by the bundled migrations.
type PGStore struct {
	db *sqlx.DB
}

// NewPGStore wraps an open connection pool.
func NewPGStore(db *sqlx.DB) *PGStore {
	return &PGStore{db: db}
}

// Load reads the document. No row yet means an empty snapshot.
func (p *PGStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var raw []byte
	err := p.db.GetContext(ctx, &raw, `SELECT doc FROM bot_state WHERE id = 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			snap.ensureMaps()
			return snap, nil
		}
		return snap, fmt.Errorf("load state row: %w", err)
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("decode state row: %w", err)
	}
	snap.ensureMaps()
	return snap, nil
}

// Save upserts the document.
func (p *PGStore) Save(ctx context.Context, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO bot_state (id, doc, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()
	`, raw)
	if err != nil {
		return fmt.Errorf("save state row: %w", err)
	}
	return nil
}
