package catalog

import "strings"

var nameFolder = strings.NewReplacer(
	":", "",
	".", "",
	"'", "",
	"’", "",
	"é", "e",
)

// Normalize canonicalizes a species name for comparison: lower case, without
// ':', '.' and apostrophes, with 'é' folded to 'e'. Apply it to both sides of
// every comparison. Normalize(Normalize(x)) == Normalize(x).
func Normalize(name string) string {
	return strings.TrimSpace(nameFolder.Replace(strings.ToLower(name)))
}

var slugFolder = strings.NewReplacer("♀", "-f", "♂", "-m", " ", "-")

// Slug converts a species name into its PokeAPI resource name,
// e.g. "Mr. Mime" -> "mr-mime", "Nidoran♀" -> "nidoran-f".
func Slug(name string) string {
	return slugFolder.Replace(Normalize(name))
}
