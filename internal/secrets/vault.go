package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/itemstack/backend/pkg/tracing"
)

const defaultVaultMount = "secret"

// VaultConfig configures a Vault-backed secret store.
type VaultConfig struct {
	Address   string
	Token     string
	Namespace string
	Mount     string
	Timeout   time.Duration
}

// VaultStore reads whole secret documents from HashiCorp Vault KV v2.
type VaultStore struct {
	address   string
	token     string
	namespace string
	mount     string
	client    *http.Client
}

// NewVaultStore creates a new Vault-based store.
func NewVaultStore(cfg VaultConfig) (*VaultStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("vault address is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("vault token is required")
	}
	mount := cfg.Mount
	if mount == "" {
		mount = defaultVaultMount
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &VaultStore{
		address:   strings.TrimRight(cfg.Address, "/"),
		token:     cfg.Token,
		namespace: cfg.Namespace,
		mount:     strings.Trim(mount, "/"),
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: tracing.RoundTripper(nil),
		},
	}, nil
}

// GetSecretValue fetches the secret at path name and returns its data
// object encoded as JSON.
func (v *VaultStore) GetSecretValue(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", errors.New("secret path is required")
	}

	endpoint := fmt.Sprintf("%s/v1/%s/data/%s", v.address, v.mount, strings.TrimLeft(name, "/"))
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid vault url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create vault request: %w", err)
	}
	req.Header.Set("X-Vault-Token", v.token)
	if v.namespace != "" {
		req.Header.Set("X-Vault-Namespace", v.namespace)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("vault request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("vault returned status %d", resp.StatusCode)
	}

	var payload struct {
		Data struct {
			Data json.RawMessage `json:"data"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.New("decode vault response: invalid JSON envelope")
	}
	if len(payload.Data.Data) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoSecretString, name)
	}

	return string(payload.Data.Data), nil
}

// Close releases idle connections held by the HTTP client.
func (v *VaultStore) Close() error {
	v.client.CloseIdleConnections()
	return nil
}
