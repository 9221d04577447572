package config

import "context"

// SecretProvider resolves secret values by identifier. SSMProvider serves
// deployed environments and EnvVarProvider serves local runs and tests.
type SecretProvider interface {
	// GetParametersBatch returns identifier -> plaintext for every key it
	// could resolve.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
