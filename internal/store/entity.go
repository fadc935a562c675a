package store

// Entity is one generic row of the entities table as seen by a caller:
// an identifier plus an opaque structured payload. The store never
// interprets the payload's contents.
type Entity struct {
	ID   string
	Data map[string]any
}

// Record is one element of the export/snapshot file format: a single JSON
// array of these objects. Export and migration backups produce it; import
// and restore consume it.
type Record struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	Data       map[string]any `json:"data"`
}
