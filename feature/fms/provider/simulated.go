package provider

import (
	"context"
	"fmt"

	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"
)

// Simulated is a deterministic in-process provider for demos and tests.
// Given the same config it always returns the same roster, which keeps the
// diff engine's idempotence property demonstrable end-to-end.
type Simulated struct{}

// NewSimulated creates the simulated provider.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// Type implements Provider.
func (s *Simulated) Type() models.ProviderType {
	return models.ProviderSimulated
}

// FetchTenants implements Provider. The roster size comes from the opaque
// config ("tenant_count", default 3).
func (s *Simulated) FetchTenants(ctx context.Context, cfg *models.FMSConfig) ([]models.ExternalEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	count := configInt(cfg, "tenant_count", 3)
	tenants := make([]models.ExternalEntity, 0, count)
	for i := 1; i <= count; i++ {
		tenants = append(tenants, models.ExternalEntity{
			ExternalID: fmt.Sprintf("sim-tenant-%d", i),
			Type:       models.EntityTenant,
			Name:       fmt.Sprintf("Simulated Tenant %d", i),
			Email:      fmt.Sprintf("tenant%d@simulated.local", i),
			UnitNumber: fmt.Sprintf("%d", 100+i),
			IsActive:   true,
		})
	}
	return tenants, nil
}

// FetchUnits implements Provider.
func (s *Simulated) FetchUnits(ctx context.Context, cfg *models.FMSConfig) ([]models.ExternalEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	count := configInt(cfg, "unit_count", 3)
	units := make([]models.ExternalEntity, 0, count)
	for i := 1; i <= count; i++ {
		units = append(units, models.ExternalEntity{
			ExternalID: fmt.Sprintf("sim-unit-%d", i),
			Type:       models.EntityUnit,
			UnitNumber: fmt.Sprintf("%d", 100+i),
			Status:     string(models.UnitOccupied),
			RentAmount: 50.0 * float64(i),
			IsActive:   true,
		})
	}
	return units, nil
}

func configInt(cfg *models.FMSConfig, key string, fallback int) int {
	if cfg == nil || cfg.Config == nil {
		return fallback
	}
	switch v := cfg.Config[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
