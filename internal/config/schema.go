package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

const schemaID = "https://github.com/haasonsaas/nqbench/schemas/config.json"

// JSONSchema describes the configuration file format so run files can be
// checked and completed by editors outside nqbench.
func JSONSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		FieldNameTag:   "yaml",
		ExpandedStruct: true,
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(schemaID)
	schema.Title = "nqbench configuration"
	schema.Description = fmt.Sprintf("Version %d settings for the convert and evaluate commands. Relative paths are resolved against the file that sets them.", CurrentVersion)
	return json.MarshalIndent(schema, "", "  ")
}
