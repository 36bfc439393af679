package secrets

import (
	"context"
	"fmt"
	"strings"
)

// StoreConfig selects and configures a secret store backend.
type StoreConfig struct {
	Provider Provider
	AWS      AWSConfig
	Vault    VaultConfig
}

// ParseProvider normalizes a provider name.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderNone, ProviderAWSSecretsManager, ProviderAWSSSM, ProviderVault:
		return p, nil
	default:
		return ProviderNone, fmt.Errorf("unknown secret provider %q", s)
	}
}

// NewStore builds the configured store. It returns (nil, nil) when no
// provider is configured.
func NewStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Provider {
	case ProviderNone:
		return nil, nil
	case ProviderAWSSecretsManager:
		awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		return NewAWSSecretsManagerStore(newSecretsManagerClient(awsCfg, cfg.AWS.Endpoint)), nil
	case ProviderAWSSSM:
		awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		return NewSSMParameterStore(newSSMClient(awsCfg, cfg.AWS.Endpoint)), nil
	case ProviderVault:
		store, err := NewVaultStore(cfg.Vault)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown secret provider %q", cfg.Provider)
	}
}
