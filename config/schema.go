//go:generate go run ../build/gen-settings-schema.go settings-schema.json

package config

import (
	_ "embed"
)

//go:embed "settings-schema.json"
var schema []byte

// Schema returns the embedded JSON schema for the build settings file.
func Schema() []byte {
	return schema
}
