// Package schemas provides access to embedded JSON schemas.
package schemas

import (
	_ "embed"
)

// Embed the flow interchange JSON Schema into the binary. The schema
// describes the JSON document format accepted by import and produced by
// export, and enables IDE autocompletion and schema-based tooling.
//
//go:embed flow.schema.json
var flowSchema []byte

// GetFlowSchema returns the embedded flow JSON Schema as raw bytes.
func GetFlowSchema() []byte {
	return flowSchema
}

// GetFlowSchemaString returns the embedded flow JSON Schema as a string.
func GetFlowSchemaString() string {
	return string(flowSchema)
}
