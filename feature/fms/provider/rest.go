package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"
)

// REST is the generic JSON-over-HTTP provider. The facility's opaque config
// supplies "base_url" and optionally "api_key"; the provider expects
// GET {base_url}/tenants and GET {base_url}/units to return arrays of the
// canonical ExternalEntity shape.
type REST struct {
	client *http.Client
}

// NewREST creates the REST provider with a tuned transport so a stuck
// upstream times out instead of hanging the sync run.
func NewREST(timeout time.Duration) *REST {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}

	return &REST{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// Type implements Provider.
func (r *REST) Type() models.ProviderType {
	return models.ProviderREST
}

// FetchTenants implements Provider.
func (r *REST) FetchTenants(ctx context.Context, cfg *models.FMSConfig) ([]models.ExternalEntity, error) {
	entities, err := r.fetch(ctx, cfg, "tenants")
	if err != nil {
		return nil, err
	}
	for i := range entities {
		entities[i].Type = models.EntityTenant
	}
	return entities, nil
}

// FetchUnits implements Provider.
func (r *REST) FetchUnits(ctx context.Context, cfg *models.FMSConfig) ([]models.ExternalEntity, error) {
	entities, err := r.fetch(ctx, cfg, "units")
	if err != nil {
		return nil, err
	}
	for i := range entities {
		entities[i].Type = models.EntityUnit
	}
	return entities, nil
}

func (r *REST) fetch(ctx context.Context, cfg *models.FMSConfig, resource string) ([]models.ExternalEntity, error) {
	baseURL := configString(cfg, "base_url")
	if baseURL == "" {
		return nil, fmt.Errorf("rest provider config missing base_url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/"+resource, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if key := configString(cfg, "api_key"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch %s: unexpected status %d", resource, resp.StatusCode)
	}

	var entities []models.ExternalEntity
	if err := json.NewDecoder(resp.Body).Decode(&entities); err != nil {
		return nil, fmt.Errorf("malformed %s payload: %w", resource, err)
	}

	return entities, nil
}

func configString(cfg *models.FMSConfig, key string) string {
	if cfg == nil || cfg.Config == nil {
		return ""
	}
	if s, ok := cfg.Config[key].(string); ok {
		return s
	}
	return ""
}
