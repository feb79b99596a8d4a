// Package config loads and assembles the application configuration.
//
// Configuration comes from environment variables (optionally seeded by a
// .env file via godotenv) and is bound through Viper. Each subsystem owns
// its partial config struct (server, database, storage, log, fms); this
// package composes them and registers defaults by reflecting over the
// 'default' struct tags.
//
// Environment variables map to nested keys with underscores, e.g.
// DATABASE_HOST -> database.host, FMS_REPORT_BUCKET -> fms.report_bucket.
package config
