package fms

// Settings configures the FMS synchronization engine.
type Settings struct {
	// IsEnabled toggles the whole FMS feature, routes included.
	IsEnabled bool `mapstructure:"enabled" default:"true"`
	// ProviderTimeoutSeconds bounds a single provider fetch.
	ProviderTimeoutSeconds int `mapstructure:"provider_timeout_seconds" default:"30"`
	// PageSize is the default page size for sync log and change listings.
	PageSize int `mapstructure:"page_size" default:"50"`
	// ArchiveSnapshots writes each run's provider snapshot to object storage.
	ArchiveSnapshots bool `mapstructure:"archive_snapshots" default:"true"`
}
