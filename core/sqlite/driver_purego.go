//go:build !cgo_sqlite

package sqlite

import (
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

const (
	driverName    = "sqlite"
	driverType    = "purego"
	driverPackage = "modernc.org/sqlite"
)

// pragmaParams enables foreign keys and a busy timeout on every pooled
// connection using modernc's _pragma syntax.
const pragmaParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
