package fms

import (
	"github.com/gofiber/fiber/v2"
)

// Feature wires the FMS service into the application loader.
type Feature struct {
	service  *Service
	settings Settings
}

// NewFeature creates the loadable FMS feature.
func NewFeature(service *Service, settings Settings) *Feature {
	return &Feature{service: service, settings: settings}
}

// Name returns the unique feature name.
func (f *Feature) Name() string {
	return "fms"
}

// IsEnabled reports whether the feature should be loaded.
func (f *Feature) IsEnabled() bool {
	return f.settings.IsEnabled
}

// Load registers the FMS routes.
func (f *Feature) Load(app fiber.Router) error {
	NewHandler(f.service).RegisterRoutes(app)
	return nil
}
