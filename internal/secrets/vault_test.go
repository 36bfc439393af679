package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVaultStore_Validation(t *testing.T) {
	_, err := NewVaultStore(VaultConfig{Token: "t"})
	assert.EqualError(t, err, "vault address is required")

	_, err = NewVaultStore(VaultConfig{Address: "http://vault:8200"})
	assert.EqualError(t, err, "vault token is required")
}

func TestVaultStore_GetSecretValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/kv/data/backend/db", r.URL.Path)
		assert.Equal(t, "root", r.Header.Get("X-Vault-Token"))
		assert.Equal(t, "team-a", r.Header.Get("X-Vault-Namespace"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"data":{"host":"db.internal","password":"secret1"},"metadata":{"version":3}}}`))
	}))
	defer srv.Close()

	store, err := NewVaultStore(VaultConfig{Address: srv.URL + "/", Token: "root", Namespace: "team-a", Mount: "/kv/"})
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetSecretValue(context.Background(), "/backend/db")
	require.NoError(t, err)

	doc, err := ParseDocument(got)
	require.NoError(t, err)
	assert.Equal(t, Credentials{KeyHost: "db.internal", KeyPassword: "secret1"}, doc.Credentials())
}

func TestVaultStore_StatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "not found", status: http.StatusNotFound, wantErr: ErrSecretNotFound},
		{name: "forbidden", status: http.StatusForbidden, wantMsg: "vault returned status 403"},
		{name: "empty data", status: http.StatusOK, body: `{"data":{}}`, wantErr: ErrNoSecretString},
		{name: "bad envelope", status: http.StatusOK, body: `{"data":`, wantMsg: "decode vault response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			store, err := NewVaultStore(VaultConfig{Address: srv.URL, Token: "root"})
			require.NoError(t, err)

			_, err = store.GetSecretValue(context.Background(), "backend/db")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" AWS-SecretsManager ")
	require.NoError(t, err)
	assert.Equal(t, ProviderAWSSecretsManager, p)

	p, err = ParseProvider("")
	require.NoError(t, err)
	assert.Equal(t, ProviderNone, p)

	_, err = ParseProvider("gcp")
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(context.Background(), StoreConfig{Provider: ProviderNone})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = NewStore(context.Background(), StoreConfig{
		Provider: ProviderVault,
		Vault:    VaultConfig{Address: "http://vault:8200", Token: "root"},
	})
	require.NoError(t, err)
	assert.IsType(t, &VaultStore{}, store)

	store, err = NewStore(context.Background(), StoreConfig{Provider: ProviderVault})
	require.Error(t, err)
	assert.Nil(t, store)
}
