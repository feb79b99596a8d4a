package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"
)

// Provider is the capability interface every FMS adapter implements.
// Adapters normalize a provider's tenant/unit data into the canonical
// ExternalEntity shape; they never touch the database.
type Provider interface {
	// Type returns the discriminant this adapter is registered under.
	Type() models.ProviderType

	// FetchTenants returns the provider's full current tenant roster for
	// the facility described by cfg.
	FetchTenants(ctx context.Context, cfg *models.FMSConfig) ([]models.ExternalEntity, error)

	// FetchUnits returns the provider's full current unit roster.
	FetchUnits(ctx context.Context, cfg *models.FMSConfig) ([]models.ExternalEntity, error)
}

// Registry holds the closed set of provider adapters keyed by type.
type Registry struct {
	providers map[models.ProviderType]Provider
}

// NewRegistry builds the registry with the default adapter set.
func NewRegistry(timeout time.Duration) *Registry {
	r := &Registry{providers: make(map[models.ProviderType]Provider)}
	r.register(NewSimulated())
	r.register(NewREST(timeout))
	return r
}

func (r *Registry) register(p Provider) {
	r.providers[p.Type()] = p
}

// Get returns the adapter for the given provider type.
func (r *Registry) Get(pt models.ProviderType) (Provider, error) {
	p, ok := r.providers[pt]
	if !ok {
		return nil, fmt.Errorf("unknown provider type %q", pt)
	}
	return p, nil
}

// FetchSnapshot fetches the full tenant and unit rosters through the
// adapter selected by cfg.ProviderType.
func (r *Registry) FetchSnapshot(ctx context.Context, cfg *models.FMSConfig) (*models.Snapshot, error) {
	p, err := r.Get(cfg.ProviderType)
	if err != nil {
		return nil, err
	}

	tenants, err := p.FetchTenants(ctx, cfg)
	if err != nil {
		return nil, err
	}

	units, err := p.FetchUnits(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &models.Snapshot{Tenants: tenants, Units: units}, nil
}
