package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"building-payment-reconciler/internal/models"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the durable Store implementation. One row per normalized
// payer name; last human decision wins.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a mapping database at the given path
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize mapping schema: %w", err)
	}

	return s, nil
}

// createTables creates the name_mappings table
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS name_mappings (
		id TEXT PRIMARY KEY,
		normalized_name TEXT UNIQUE NOT NULL,
		tenant_id TEXT NOT NULL,
		confirmed_count INTEGER NOT NULL DEFAULT 1,
		created_by TEXT NOT NULL DEFAULT 'manual',
		last_confirmed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_name_mappings_tenant ON name_mappings(tenant_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Lookup implements Store
func (s *SQLiteStore) Lookup(ctx context.Context, normalizedName string) (string, bool, error) {
	if normalizedName == "" {
		return "", false, nil
	}

	var tenantID string
	err := s.db.QueryRowContext(ctx,
		`SELECT tenant_id FROM name_mappings WHERE normalized_name = ?`,
		normalizedName,
	).Scan(&tenantID)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mapping lookup failed: %w", err)
	}

	return tenantID, true, nil
}

// Record implements Store. The whole read-modify-write runs in one
// transaction so concurrent confirmations cannot lose a write.
func (s *SQLiteStore) Record(ctx context.Context, normalizedName, tenantID string, createdBy models.MappingCreatedBy) error {
	mapping := &models.NameMapping{
		NormalizedName: normalizedName,
		TenantID:       tenantID,
		ConfirmedCount: 1,
		CreatedBy:      createdBy,
	}
	if err := mapping.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mapping record failed: %w", err)
	}
	defer tx.Rollback()

	var existingTenant string
	err = tx.QueryRowContext(ctx,
		`SELECT tenant_id FROM name_mappings WHERE normalized_name = ?`,
		normalizedName,
	).Scan(&existingTenant)

	now := time.Now().UTC()

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO name_mappings (id, normalized_name, tenant_id, confirmed_count, created_by, last_confirmed_at)
			 VALUES (?, ?, ?, 1, ?, ?)`,
			uuid.NewString(), normalizedName, tenantID, string(createdBy), now,
		)
	case err != nil:
		return fmt.Errorf("mapping record failed: %w", err)
	case existingTenant == tenantID:
		_, err = tx.ExecContext(ctx,
			`UPDATE name_mappings
			 SET confirmed_count = confirmed_count + 1, last_confirmed_at = ?
			 WHERE normalized_name = ?`,
			now, normalizedName,
		)
	default:
		// Different tenant confirmed for the same name: last decision wins,
		// count restarts.
		_, err = tx.ExecContext(ctx,
			`UPDATE name_mappings
			 SET tenant_id = ?, confirmed_count = 1, created_by = ?, last_confirmed_at = ?
			 WHERE normalized_name = ?`,
			tenantID, string(createdBy), now, normalizedName,
		)
	}

	if err != nil {
		return fmt.Errorf("mapping record failed: %w", err)
	}

	return tx.Commit()
}

// Get returns the full mapping record for a normalized name
func (s *SQLiteStore) Get(ctx context.Context, normalizedName string) (*models.NameMapping, bool, error) {
	var mapping models.NameMapping
	var createdBy string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, normalized_name, tenant_id, confirmed_count, created_by, last_confirmed_at
		 FROM name_mappings WHERE normalized_name = ?`,
		normalizedName,
	).Scan(&mapping.ID, &mapping.NormalizedName, &mapping.TenantID,
		&mapping.ConfirmedCount, &createdBy, &mapping.LastConfirmedAt)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mapping get failed: %w", err)
	}

	mapping.CreatedBy = models.MappingCreatedBy(createdBy)
	return &mapping, true, nil
}

// Count returns the number of stored mappings
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM name_mappings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("mapping count failed: %w", err)
	}
	return n, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
