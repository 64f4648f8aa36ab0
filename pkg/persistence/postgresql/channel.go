package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/autoflow/pkg/models"
)

// ChannelConfigRepository stores per-user channel configuration as JSONB.
type ChannelConfigRepository struct {
	db *sql.DB
}

// NewChannelConfigRepository creates a new channel configuration repository.
func NewChannelConfigRepository(db *sql.DB) *ChannelConfigRepository {
	return &ChannelConfigRepository{db: db}
}

// GetByUser returns nil when the user has no configuration.
func (r *ChannelConfigRepository) GetByUser(ctx context.Context, userID string) (*models.ChannelConfig, error) {
	var data []byte

	err := r.db.QueryRowContext(ctx, `SELECT config FROM channel_configs WHERE user_id = $1`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query channel config of user %s: %w", userID, err)
	}

	var config models.ChannelConfig

	err = json.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal channel config of user %s: %w", userID, err)
	}

	config.UserID = userID

	return &config, nil
}

func (r *ChannelConfigRepository) Save(ctx context.Context, config *models.ChannelConfig) error {
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal channel config: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO channel_configs (user_id, config, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`, config.UserID, data)
	if err != nil {
		return fmt.Errorf("failed to save channel config of user %s: %w", config.UserID, err)
	}

	return nil
}
