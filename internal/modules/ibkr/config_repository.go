package ibkr

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
)

// ConfigRepository handles the single-row broker configuration
type ConfigRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewConfigRepository creates a new config repository
func NewConfigRepository(db *database.DB, log zerolog.Logger) *ConfigRepository {
	return &ConfigRepository{
		db:  db,
		log: log.With().Str("repo", "ibkr_config").Logger(),
	}
}

// Get retrieves the configuration, defaulting to auto-allocate off when
// no row has been written yet.
func (r *ConfigRepository) Get() (*Config, error) {
	var enabled int
	var allocJSON, updatedAt string
	err := r.db.QueryRow(
		"SELECT auto_allocate_enabled, default_allocations, updated_at FROM ibkr_config WHERE id = 1",
	).Scan(&enabled, &allocJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &Config{DefaultAllocations: []domain.Allocation{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ibkr config: %w", err)
	}

	cfg := &Config{AutoAllocateEnabled: enabled != 0}
	if err := json.Unmarshal([]byte(allocJSON), &cfg.DefaultAllocations); err != nil {
		return nil, fmt.Errorf("failed to parse default allocations: %w", err)
	}
	if cfg.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration, creating the row on first use
func (r *ConfigRepository) Save(cfg *Config) error {
	allocJSON, err := json.Marshal(cfg.DefaultAllocations)
	if err != nil {
		return fmt.Errorf("failed to encode default allocations: %w", err)
	}
	cfg.UpdatedAt = time.Now().UTC()

	enabled := 0
	if cfg.AutoAllocateEnabled {
		enabled = 1
	}
	_, err = r.db.Exec(`
		INSERT INTO ibkr_config (id, auto_allocate_enabled, default_allocations, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			auto_allocate_enabled = excluded.auto_allocate_enabled,
			default_allocations = excluded.default_allocations,
			updated_at = excluded.updated_at
	`, enabled, string(allocJSON), cfg.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save ibkr config: %w", err)
	}

	r.log.Info().Bool("auto_allocate", cfg.AutoAllocateEnabled).Msg("IBKR config saved")
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
