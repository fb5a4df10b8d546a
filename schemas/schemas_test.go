package schemas_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	validation "github.com/jonathan/cv-builder/internal/schemas"
	"github.com/jonathan/cv-builder/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	for _, schemaFile := range schemas.All() {
		t.Run(schemaFile, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join(".", schemaFile))
			require.NoError(t, err, "should be able to read schema file")

			var v interface{}
			err = json.Unmarshal(data, &v)
			assert.NoError(t, err, "schema file should be valid JSON: %s", schemaFile)
		})
	}
}

func TestSchemaFiles_ValidJSONSchema(t *testing.T) {
	for _, schemaFile := range schemas.All() {
		t.Run(schemaFile, func(t *testing.T) {
			data, err := schemas.Files.ReadFile(schemaFile)
			require.NoError(t, err)

			var schemaObj map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &schemaObj))

			assert.Equal(t, "object", schemaObj["type"])
			assert.Contains(t, schemaObj, "$schema")
			assert.Contains(t, schemaObj, "properties")

			// An empty object must load and validate against every schema
			// except those with required fields.
			err = validation.ValidateJSONString(string(data), `{}`)
			if _, hasRequired := schemaObj["required"]; hasRequired {
				var ve *validation.ValidationError
				assert.ErrorAs(t, err, &ve)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEmbeddedFilesMatchDisk(t *testing.T) {
	for _, schemaFile := range schemas.All() {
		embedded, err := schemas.Files.ReadFile(schemaFile)
		require.NoError(t, err)
		onDisk, err := os.ReadFile(schemaFile)
		require.NoError(t, err)
		assert.Equal(t, string(onDisk), string(embedded))
	}
}
