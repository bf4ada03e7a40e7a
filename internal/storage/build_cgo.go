//go:build sqlite_vec

package storage

// Built with CGO_ENABLED=1 and -tags sqlite_vec. Uses mattn/go-sqlite3 and
// ranks points in SQL with vec_distance_cosine.

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver registered by this build
	DriverName = "sqlite3"

	// VectorExtensionAvailable is true when vec_distance_cosine can be used
	VectorExtensionAvailable = true

	// BuildMode names the build variant in logs and version output
	BuildMode = "cgo"
)

// driverDSN adds the busy timeout in go-sqlite3's query parameter form
func driverDSN(path string) string {
	return withQuery(path, "_busy_timeout=5000")
}
