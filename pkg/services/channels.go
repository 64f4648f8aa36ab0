package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

// Channels manages per-user notification channel configuration.
type Channels struct {
	repo     persistence.ChannelConfigRepository
	validate *validator.Validate
}

func NewChannels(repo persistence.ChannelConfigRepository, validate *validator.Validate) *Channels {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &Channels{repo: repo, validate: validate}
}

// Get returns the user's configuration; a user without one gets an empty
// configuration.
func (c *Channels) Get(ctx context.Context, userID string) (*models.ChannelConfig, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	config, err := c.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load channels: %w", err)
	}

	if config == nil {
		config = &models.ChannelConfig{UserID: userID}
	}

	return config, nil
}

// Save replaces the user's configuration.
func (c *Channels) Save(ctx context.Context, userID string, config *models.ChannelConfig) (*models.ChannelConfig, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	if config == nil {
		return nil, NewValidationError("SaveChannels", "INVALID_REQUEST", "channel configuration is required", ErrInvalidRequest)
	}

	config.UserID = userID

	err := c.validate.Struct(config)
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return nil, NewValidationError("SaveChannels", "INVALID_CHANNELS", fieldErrs.Error(), ErrInvalidRequest)
		}

		return nil, err
	}

	err = c.repo.Save(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to save channels: %w", err)
	}

	return config, nil
}
