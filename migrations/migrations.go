// Package migrations embeds the journal schema for each supported SQL driver.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed mysql/*.sql clickhouse/*.sql
var files embed.FS

// Migration is one schema file, applied as a single statement.
type Migration struct {
	Name string
	SQL  string
}

// For returns the migrations for driver ("mysql" or "clickhouse") in apply order.
func For(driver string) ([]Migration, error) {
	names, err := fs.Glob(files, driver+"/*.sql")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, n := range names {
		b, err := files.ReadFile(n)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", n, err)
		}
		out = append(out, Migration{Name: n, SQL: string(b)})
	}
	return out, nil
}
