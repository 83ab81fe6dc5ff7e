// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package config

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaID is the $id of the generated schema.
const SchemaID = "https://rush.sh/schemas/config.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jschema.Schema
	compileErr     error
)

// GenerateSchema reflects a JSON Schema from Config.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "rush configuration"
	schema.Description = "Schema for rush.yaml configuration files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.In("config").Wrapf(err, "marshal schema")
	}
	return data, nil
}

func compiled() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := GenerateSchema()
		if err != nil {
			compileErr = err
			return
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			compileErr = oops.In("config").Wrapf(err, "parse schema")
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("config.schema.json", doc); err != nil {
			compileErr = oops.In("config").Wrapf(err, "add schema resource")
			return
		}
		compiledSchema, compileErr = c.Compile("config.schema.json")
	})
	return compiledSchema, compileErr
}

// Validate checks a merged configuration map against the schema.
func Validate(raw map[string]any) error {
	sch, err := compiled()
	if err != nil {
		return oops.Code("CONFIG_INVALID").In("config").Wrapf(err, "compile schema")
	}

	// Round-trip through JSON so YAML-typed values become JSON values.
	b, err := json.Marshal(raw)
	if err != nil {
		return oops.Code("CONFIG_INVALID").In("config").Wrapf(err, "encode configuration")
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return oops.Code("CONFIG_INVALID").In("config").Wrapf(err, "decode configuration")
	}
	if err := sch.Validate(doc); err != nil {
		return oops.Code("CONFIG_INVALID").
			In("config").
			Hint("see "+SchemaID).
			Wrapf(err, "configuration does not match schema")
	}
	return nil
}
