package inputval

import (
	"strings"
	"time"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// IsValidRole reports whether s names a global user role.
func IsValidRole(s string) bool {
	_, err := models.ParseRole(s)
	return err == nil
}

// IsValidDate reports whether s is a calendar date in YYYY-MM-DD form.
func IsValidDate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

// IsValidClock reports whether s is a 24-hour HH:MM time.
func IsValidClock(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}
