package handlers

import (
	"net/http"
	"time"

	"example.com/dairydesk/services/billing/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// respondError maps service errors onto HTTP status codes. Validation
// problems are the caller's fault, conflicts mean a retryable race,
// everything unclassified is a server error.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

const dateLayout = "2006-01-02"

// parseDate parses a YYYY-MM-DD value and pins it to midnight UTC.
func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.Wrapf(services.ErrValidation, "invalid date %q, expected YYYY-MM-DD", value)
	}
	return t.UTC(), nil
}
