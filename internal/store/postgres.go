package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore persists blueprints in a single JSONB column keyed by
// binding id, the way controller_go/state_store.go's PostgresStateStore
// persists AppRecord.Spec — one JSON blob per row rather than a column
// per field, since the blueprint shape is still evolving.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool and ensures the bindings table
// exists, mirroring state_go/db.go's PostgreSQLManager.initDatabase.
func NewPostgresStore(dsn string, maxOpenConns, maxIdleConns int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS bindings (
			binding_id VARCHAR(255) PRIMARY KEY,
			resource_id VARCHAR(255) NOT NULL,
			blueprint JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create bindings table: %w", err)
	}
	_, err = s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS bindings_resource_id_idx ON bindings (resource_id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create resource_id index: %w", err)
	}
	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS scaling_logs (
			id SERIAL PRIMARY KEY,
			binding_id VARCHAR(255) NOT NULL,
			reason VARCHAR(32) NOT NULL,
			old_instances INTEGER NOT NULL,
			new_instances INTEGER NOT NULL,
			decision_time TIMESTAMPTZ NOT NULL,
			payload JSONB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create scaling_logs table: %w", err)
	}
	return nil
}

// FindAll returns every persisted blueprint, for the startup load path
// (§4.2 loadFromStore).
func (s *PostgresStore) FindAll() ([]Blueprint, error) {
	rows, err := s.db.Query(`SELECT blueprint FROM bindings ORDER BY binding_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bindings: %w", err)
	}
	defer rows.Close()

	var out []Blueprint
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan blueprint: %w", err)
		}
		var bp Blueprint
		if err := json.Unmarshal(raw, &bp); err != nil {
			return nil, fmt.Errorf("failed to parse blueprint: %w", err)
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}

// Save upserts a blueprint keyed by binding id.
func (s *PostgresStore) Save(bp Blueprint) error {
	raw, err := json.Marshal(bp)
	if err != nil {
		return fmt.Errorf("failed to marshal blueprint: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO bindings (binding_id, resource_id, blueprint, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (binding_id) DO UPDATE SET
			resource_id = $2,
			blueprint = $3,
			updated_at = now()
	`, bp.Binding.ID, bp.Binding.ResourceID, raw)
	if err != nil {
		return fmt.Errorf("failed to save blueprint: %w", err)
	}
	return nil
}

// Delete removes a persisted blueprint by binding id.
func (s *PostgresStore) Delete(bindingID string) error {
	_, err := s.db.Exec(`DELETE FROM bindings WHERE binding_id = $1`, bindingID)
	if err != nil {
		return fmt.Errorf("failed to delete blueprint: %w", err)
	}
	return nil
}

// LogScalingAction records a confirmed scale, mirroring
// controller_go/state_store.go's LogScalingAction/GetScalingHistory pair
// so the management API has a read path for spec §3's ScalingLog type.
func (s *PostgresStore) LogScalingAction(bindingID string, reason string, old, new int, decisionTime time.Time, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal scaling log payload: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO scaling_logs (binding_id, reason, old_instances, new_instances, decision_time, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, bindingID, reason, old, new, decisionTime, raw)
	if err != nil {
		return fmt.Errorf("failed to log scaling action: %w", err)
	}
	return nil
}

// GetScalingHistory returns the most recent scaling logs for a binding,
// newest first.
func (s *PostgresStore) GetScalingHistory(bindingID string, limit int) ([]map[string]interface{}, error) {
	rows, err := s.db.Query(`
		SELECT reason, old_instances, new_instances, decision_time, payload
		FROM scaling_logs
		WHERE binding_id = $1
		ORDER BY decision_time DESC
		LIMIT $2
	`, bindingID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scaling history: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var reason string
		var old, newI int
		var decisionTime time.Time
		var rawPayload []byte
		if err := rows.Scan(&reason, &old, &newI, &decisionTime, &rawPayload); err != nil {
			return nil, fmt.Errorf("failed to scan scaling log: %w", err)
		}
		var payload map[string]interface{}
		_ = json.Unmarshal(rawPayload, &payload)
		out = append(out, map[string]interface{}{
			"reason":        reason,
			"oldInstances":  old,
			"newInstances":  newI,
			"decisionTime":  decisionTime,
			"payload":       payload,
		})
	}
	return out, rows.Err()
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
