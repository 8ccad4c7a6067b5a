// Package migrations embeds SQL migration files into the binary.
//
// Embedding means HomeSync can bootstrap its schema without the SQL files
// being present on the filesystem at runtime.
package migrations

import (
	"embed"

	"github.com/kestrelhq/homesync/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Register embedded migrations with the database package.
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // Files are at root of embedded FS
}
