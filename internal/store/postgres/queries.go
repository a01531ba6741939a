package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

type queries struct {
	create string
	upsert string
	remove string
	get    string
}

// buildQueries renders the statements for table. The name is quoted, so
// mixed-case table names such as "Bookmarks" survive as-is.
func buildQueries(table string) queries {
	t := pgx.Identifier{table}.Sanitize()

	return queries{
		create: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	url         TEXT NOT NULL DEFAULT ''
)`, t),
		upsert: fmt.Sprintf(`INSERT INTO %s (id, name, description, url)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	url = EXCLUDED.url`, t),
		remove: fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t),
		get:    fmt.Sprintf(`SELECT id, name, description, url FROM %s WHERE id = $1`, t),
	}
}
