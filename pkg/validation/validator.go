package validation

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Vehicle categories accepted by trip creation and fare estimation. Kept in
// one place so binding tags and service checks agree.
var VehicleCategories = []string{"HATCHBACK", "SEDAN", "SUV", "AUTO", "BIKE"}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("vehicle_category", validateVehicleCategory)
	}
}

// validateVehicleCategory checks membership in VehicleCategories,
// case-insensitively.
func validateVehicleCategory(fl validator.FieldLevel) bool {
	return IsVehicleCategory(fl.Field().String())
}

// IsVehicleCategory reports whether the value is a known category
func IsVehicleCategory(category string) bool {
	category = strings.ToUpper(strings.TrimSpace(category))
	for _, c := range VehicleCategories {
		if c == category {
			return true
		}
	}
	return false
}

// NormalizeVehicleCategory maps user input onto the canonical category value
func NormalizeVehicleCategory(category string) string {
	return strings.ToUpper(strings.TrimSpace(category))
}

// ValidateCoordinates validates latitude and longitude
func ValidateCoordinates(latitude, longitude float64) error {
	if latitude < -90.0 || latitude > 90.0 {
		return fmt.Errorf("latitude must be between -90 and 90, got: %f", latitude)
	}
	if longitude < -180.0 || longitude > 180.0 {
		return fmt.Errorf("longitude must be between -180 and 180, got: %f", longitude)
	}
	return nil
}
