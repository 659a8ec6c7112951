package models_test

import (
	"testing"

	"github.com/mmdatafocus/stockroom_backend/models"
)

func TestIsValidLocation(t *testing.T) {
	for _, l := range models.AllowedLocations {
		if !models.IsValidLocation(l) {
			t.Errorf("IsValidLocation(%q) = false", l)
		}
	}
	for _, l := range []string{"", "headquarters", "Warehouse 9"} {
		if models.IsValidLocation(l) {
			t.Errorf("IsValidLocation(%q) = true", l)
		}
	}
}
