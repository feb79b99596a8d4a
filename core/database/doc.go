// Package database manages the MySQL connection for the access-control
// database.
//
// It wraps GORM connection setup with sane pool limits and DSN-level
// timeouts so a stalled database never hangs a sync run indefinitely.
// Repositories in feature packages receive the *gorm.DB produced here
// via constructor injection; no package reaches for a global handle.
package database
