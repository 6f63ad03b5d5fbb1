package tokenstore

import (
	"fmt"

	"github.com/payqr/payqr"
)

// TokensConfig holds configuration for loading tokens at startup.
type TokensConfig struct {
	Inline []TokenDef `mapstructure:"inline"` // Inline token definitions from config
	File   string     `mapstructure:"file"`   // Path to YAML file containing token definitions
}

// TokenDef is one token definition in config or a token file.
type TokenDef struct {
	ID          string   `mapstructure:"id" yaml:"id"`
	Secret      string   `mapstructure:"secret" yaml:"secret"`
	Permissions []string `mapstructure:"permissions" yaml:"permissions"`
}

// NewTokenRepo creates a TokenRepo from the given configuration.
// It loads tokens from both inline config and file (if specified),
// merging them into a single store. File tokens take precedence over
// inline tokens on duplicate ids.
func NewTokenRepo(cfg TokensConfig) (payqr.TokenRepo, error) {
	var defs []TokenDef
	defs = append(defs, cfg.Inline...)

	if cfg.File != "" {
		fileDefs, err := LoadTokensFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}

	tokens := make([]payqr.Token, 0, len(defs))
	byID := make(map[string]int, len(defs))
	for _, d := range defs {
		perms := make(payqr.Permissions, 0, len(d.Permissions))
		for _, p := range d.Permissions {
			perms = append(perms, payqr.Permission(p))
		}
		t := payqr.Token{ID: d.ID, Secret: d.Secret, Permissions: perms}
		if err := payqr.ValidateToken(t); err != nil {
			return nil, fmt.Errorf("load tokens: %w", err)
		}
		if i, ok := byID[t.ID]; ok {
			tokens[i] = t
			continue
		}
		byID[t.ID] = len(tokens)
		tokens = append(tokens, t)
	}

	return NewMapStore(tokens)
}
