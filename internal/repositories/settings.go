package repositories

import (
	"context"

	"example.com/dairydesk/services/billing/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SettingsRepository provides access to the singleton settings row
type SettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// defaultSettings is the row created on first read.
func defaultSettings() *models.Settings {
	return &models.Settings{
		ID:                  models.SettingsID,
		FarmName:            "My Dairy Farm",
		GlobalPricePerLiter: 60.0,
		BillingCycleType:    "MONTHLY",
		EntryMode:           models.EntryModeSplit,
	}
}

// GetOrCreate reads the settings row, creating it with defaults when it
// does not exist yet. Settings are always read fresh from the store so
// concurrent rate edits are visible to the next bill generation.
func (r *SettingsRepository) GetOrCreate(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	err := r.db.WithContext(ctx).First(&settings, "id = ?", models.SettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = *defaultSettings()
		if err := r.db.WithContext(ctx).Create(&settings).Error; err != nil {
			return nil, errors.Wrap(err, "failed to create default settings")
		}
		return &settings, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get settings")
	}
	return &settings, nil
}

// Save upserts the settings row
func (r *SettingsRepository) Save(ctx context.Context, settings *models.Settings) error {
	settings.ID = models.SettingsID
	if err := r.db.WithContext(ctx).Save(settings).Error; err != nil {
		return errors.Wrap(err, "failed to save settings")
	}
	return nil
}
