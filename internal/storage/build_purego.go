//go:build !sqlite_vec

package storage

// Default build. Uses the pure-Go modernc.org/sqlite driver and ranks points
// in Go after scanning the collection.

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver registered by this build
	DriverName = "sqlite"

	// VectorExtensionAvailable is true when vec_distance_cosine can be used
	VectorExtensionAvailable = false

	// BuildMode names the build variant in logs and version output
	BuildMode = "purego"
)

// driverDSN adds the busy timeout in modernc's _pragma form
func driverDSN(path string) string {
	return withQuery(path, "_pragma=busy_timeout(5000)")
}
