package file

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/dukex/autoflow/pkg/models"
)

// ChannelConfigRepository stores one channel document per user.
type ChannelConfigRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewChannelConfigRepository creates a new channel configuration repository.
func NewChannelConfigRepository(root string) *ChannelConfigRepository {
	return &ChannelConfigRepository{dir: filepath.Join(root, "channels")}
}

// GetByUser returns nil when the user has no configuration.
func (cr *ChannelConfigRepository) GetByUser(_ context.Context, userID string) (*models.ChannelConfig, error) {
	if err := validateID(userID); err != nil {
		return nil, err
	}

	cr.mu.RLock()
	defer cr.mu.RUnlock()

	var config models.ChannelConfig

	found, err := readJSON(cr.dir, userID, &config)
	if err != nil || !found {
		return nil, err
	}

	return &config, nil
}

func (cr *ChannelConfigRepository) Save(_ context.Context, config *models.ChannelConfig) error {
	if err := validateID(config.UserID); err != nil {
		return err
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	return writeJSON(cr.dir, config.UserID, config)
}
