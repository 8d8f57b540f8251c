package services

import (
	"context"

	"example.com/dairydesk/services/billing/internal/models"
	"example.com/dairydesk/services/billing/internal/repositories"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SettingsService owns the singleton settings row.
type SettingsService struct {
	settingsRepo *repositories.SettingsRepository
}

// NewSettingsService creates a new settings service
func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{
		settingsRepo: repositories.NewSettingsRepository(db),
	}
}

// UpdateSettingsInput carries partial updates; nil fields stay unchanged.
type UpdateSettingsInput struct {
	FarmName            *string
	FarmAddress         *string
	FarmPhone           *string
	GlobalPricePerLiter *float64
	EntryMode           *string
	WhatsAppInstanceID  *string
	WhatsAppAPIToken    *string
}

// GetSettings reads the settings row, creating defaults on first read.
// Never cached: bill generation must see the freshest global rate.
func (s *SettingsService) GetSettings(ctx context.Context) (*models.Settings, error) {
	return s.settingsRepo.GetOrCreate(ctx)
}

// UpdateSettings validates and applies a partial settings update
func (s *SettingsService) UpdateSettings(ctx context.Context, input UpdateSettingsInput) (*models.Settings, error) {
	settings, err := s.settingsRepo.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	if input.FarmName != nil {
		if len(*input.FarmName) < 2 {
			return nil, errors.Wrap(ErrValidation, "farm name must be at least 2 characters")
		}
		settings.FarmName = *input.FarmName
	}
	if input.FarmAddress != nil {
		settings.FarmAddress = input.FarmAddress
	}
	if input.FarmPhone != nil {
		settings.FarmPhone = input.FarmPhone
	}
	if input.GlobalPricePerLiter != nil {
		if *input.GlobalPricePerLiter <= 0 {
			return nil, errors.Wrap(ErrValidation, "global price per liter must be positive")
		}
		settings.GlobalPricePerLiter = *input.GlobalPricePerLiter
	}
	if input.EntryMode != nil {
		if *input.EntryMode != models.EntryModeSplit && *input.EntryMode != models.EntryModeSingle {
			return nil, errors.Wrap(ErrValidation, "entry mode must be SPLIT or SINGLE")
		}
		settings.EntryMode = *input.EntryMode
	}
	if input.WhatsAppInstanceID != nil {
		settings.WhatsAppInstanceID = input.WhatsAppInstanceID
	}
	if input.WhatsAppAPIToken != nil {
		settings.WhatsAppAPIToken = input.WhatsAppAPIToken
	}

	if err := s.settingsRepo.Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
