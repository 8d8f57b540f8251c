package services

import (
	"testing"

	"example.com/dairydesk/services/billing/internal/models"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestGetSettingsCreatesDefaultsOnFirstRead(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettingsService(db)

	settings, err := svc.GetSettings(testCtx())
	require.NoError(t, err)
	require.Equal(t, models.SettingsID, settings.ID)
	require.Equal(t, 60.0, settings.GlobalPricePerLiter)
	require.Equal(t, models.EntryModeSplit, settings.EntryMode)

	// the defaults were persisted, not just returned
	var count int64
	require.NoError(t, db.Model(&models.Settings{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// a second read returns the same row
	again, err := svc.GetSettings(testCtx())
	require.NoError(t, err)
	require.Equal(t, settings.ID, again.ID)
	require.NoError(t, db.Model(&models.Settings{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestUpdateSettingsPartial(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettingsService(db)

	newRate := 65.0
	updated, err := svc.UpdateSettings(testCtx(), UpdateSettingsInput{
		FarmName:            strPtr("Gokul Dairy"),
		GlobalPricePerLiter: &newRate,
		WhatsAppInstanceID:  strPtr("instance-1"),
		WhatsAppAPIToken:    strPtr("token-1"),
	})
	require.NoError(t, err)
	require.Equal(t, "Gokul Dairy", updated.FarmName)
	require.Equal(t, 65.0, updated.GlobalPricePerLiter)
	require.Equal(t, "instance-1", *updated.WhatsAppInstanceID)

	// untouched fields keep their defaults
	require.Equal(t, models.EntryModeSplit, updated.EntryMode)
}

func TestUpdateSettingsValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettingsService(db)

	badRate := 0.0
	_, err := svc.UpdateSettings(testCtx(), UpdateSettingsInput{GlobalPricePerLiter: &badRate})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateSettings(testCtx(), UpdateSettingsInput{FarmName: strPtr("X")})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateSettings(testCtx(), UpdateSettingsInput{EntryMode: strPtr("HOURLY")})
	require.ErrorIs(t, err, ErrValidation)
}
