// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"brokersync/internal/models"
)

// tickerRegex matches a ticker as users type it; case is normalized later.
var tickerRegex = regexp.MustCompile(`(?i)^[A-Z0-9&._-]{1,20}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("mapping_source", validateMappingSource)
		_ = v.RegisterValidation("ticker", validateTicker)
	}
}

func validateMappingSource(fl validator.FieldLevel) bool {
	switch models.MappingSource(fl.Field().String()) {
	case models.MappingSourcePattern, models.MappingSourceRegistry,
		models.MappingSourceCatalog, models.MappingSourceManual:
		return true
	}
	return false
}

func validateTicker(fl validator.FieldLevel) bool {
	return tickerRegex.MatchString(fl.Field().String())
}
