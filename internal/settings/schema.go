package settings

import (
	"bytes"
	"encoding/json"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	schemareflector "github.com/swaggest/jsonschema-go"

	ext_config "github.com/wheelsmith/wheelsmith/config"
)

var rootSchema *jsonschema.Schema

func init() {
	js, err := jsonschema.UnmarshalJSON(bytes.NewReader(ext_config.Schema()))
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)
	if err := compiler.AddResource("settings-schema.json", js); err != nil {
		panic(err)
	}

	rootSchema, err = compiler.Compile("settings-schema.json")
	if err != nil {
		panic(err)
	}
}

// Validate checks the raw settings document against the embedded schema
// before it is decoded.
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}

	return rootSchema.Validate(doc)
}

func ReflectSchema() ([]byte, error) {
	reflector := schemareflector.Reflector{}

	s, err := reflector.Reflect(Settings{})
	if err != nil {
		return nil, err
	}

	return json.MarshalIndent(s, "", "  ")
}
