// Package schemas holds the JSON Schemas for persisted and generated CV data.
package schemas

import "embed"

// Files contains every *.schema.json in this directory
//
//go:embed *.schema.json
var Files embed.FS

// Schema file names
const (
	CVDocument   = "cv_document.schema.json"
	ParsedCV     = "parsed_cv.schema.json"
	Optimization = "optimization.schema.json"
)

// All lists the schema files in a stable order
func All() []string {
	return []string{CVDocument, ParsedCV, Optimization}
}
