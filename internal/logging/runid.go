package logging

import "github.com/oklog/ulid/v2"

// GenerateRunID generates a lexicographically sortable identifier for one
// resolution run. It is attached to debug records so diagnostics from
// overlapping invocations (for example when a sandbox launcher resolves
// several programs) can be told apart.
func GenerateRunID() string {
	return ulid.Make().String()
}
