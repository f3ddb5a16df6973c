// Package schemas embeds the JSON Schema documents shipped with the binary.
package schemas

import "embed"

// SearchPayload is the schema file name of the search request body.
const SearchPayload = "search_payload.schema.json"

//go:embed *.schema.json
var FS embed.FS

// Read returns the raw schema document called name.
func Read(name string) ([]byte, error) {
	return FS.ReadFile(name)
}
