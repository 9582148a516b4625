package config

import "os"

// ExpandEnv expands ${VAR}/$VAR references in raw YAML bytes before
// parsing, so secrets (API keys) never live in the YAML file itself.
// Missing variables expand to empty string; validation is responsible
// for catching required fields left empty by that.
func ExpandEnv(data []byte) []byte {
	return []byte(os.Expand(string(data), os.Getenv))
}
