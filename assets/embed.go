// assets/embed.go
//
// Embedded data shipped with the binary:
//   - pokemon.csv: the national dex (dex number, display name, space separated types).
//   - sql/*.sql:   SQLite schema migrations, applied in lexical order.

package assets

import (
	"bufio"
	"embed"
	"io"
	"io/fs"
	"strings"
)

//go:embed pokemon.csv sql/*.sql
var FS embed.FS

// Catalog opens the embedded Pokémon dataset.
func Catalog() (io.ReadCloser, error) {
	return FS.Open("pokemon.csv")
}

// Migrations returns the embedded SQLite migration tree rooted at "sql".
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		// The sql directory is part of the embed pattern; Sub only fails on an invalid path.
		panic(err)
	}
	return sub
}

// ReadLines returns the non-empty, non-comment lines of r, trimmed.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}
