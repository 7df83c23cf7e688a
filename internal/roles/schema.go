// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package roles

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

var (
	schemaOnce  sync.Once
	schemaCache *jschema.Schema
	schemaErr   error
)

// SchemaID returns the schema $id for role definition files.
func SchemaID() string {
	return "https://rolegate.dev/schemas/role.schema.json"
}

// GenerateSchema generates the JSON Schema for role definition files from
// the RoleFile struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&RoleFile{})

	schema.ID = jsonschema.ID(SchemaID())
	schema.Title = "Rolegate Role Definition"
	schema.Description = "Schema for role definition YAML files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_MARSHAL_FAILED").Wrap(err)
	}
	return data, nil
}

// ValidateRoleDocument validates YAML data against the role-file schema.
func ValidateRoleDocument(data []byte) error {
	if len(data) == 0 {
		return oops.Code("ROLE_FILE_EMPTY").Errorf("role document is empty")
	}

	var yamlData any
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return oops.Code("ROLE_FILE_INVALID").Wrapf(err, "invalid YAML")
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	if err := sch.Validate(convertToJSONTypes(yamlData)); err != nil {
		return oops.Code("ROLE_SCHEMA_VIOLATION").Wrap(err)
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaBytes, err := GenerateSchema()
		if err != nil {
			schemaErr = err
			return
		}

		var schemaData any
		if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
			return
		}

		c := jschema.NewCompiler()
		if err := c.AddResource("schema.json", schemaData); err != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
			return
		}
		schemaCache, err = c.Compile("schema.json")
		if err != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
		}
	})
	return schemaCache, schemaErr
}

// convertToJSONTypes converts YAML-parsed data to JSON-compatible types.
// yaml.v3 already yields map[string]any, but nested values need a
// recursive pass and odd scalars go through a JSON round-trip.
func convertToJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = convertToJSONTypes(v)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v := range val {
			result[i] = convertToJSONTypes(v)
		}
		return result
	case string, int, int64, float64, bool, nil:
		return val
	default:
		if b, err := json.Marshal(val); err == nil {
			var result any
			if err := json.Unmarshal(b, &result); err == nil {
				return result
			}
		}
		return val
	}
}
