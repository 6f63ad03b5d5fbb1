package tokenstore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// tokenFile is the on-disk structure of a token seed file.
type tokenFile struct {
	Tokens []TokenDef `yaml:"tokens"`
}

// LoadTokensFromFile reads token definitions from a YAML file.
// The file must contain a top-level "tokens" list:
//
//	tokens:
//	  - id: t1
//	    secret: s1
//	    permissions: ["qr:generate"]
func LoadTokensFromFile(path string) ([]TokenDef, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var tf tokenFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", path, err)
	}

	return tf.Tokens, nil
}
