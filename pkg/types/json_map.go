package types

// JSONMap holds schemaless provider payloads persisted as JSON.
type JSONMap map[string]any
