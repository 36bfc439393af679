// Package secrets resolves database credentials from an external secret store.
package secrets

import (
	"context"
	"errors"
	"sort"
)

// Provider identifies the secret backend.
type Provider string

const (
	ProviderNone              Provider = ""
	ProviderAWSSecretsManager Provider = "aws-secretsmanager"
	ProviderAWSSSM            Provider = "aws-ssm"
	ProviderVault             Provider = "vault"
)

// DefaultSecretName is used when no secret name is configured.
const DefaultSecretName = "backend-db-credentials"

// Recognized credential keys.
const (
	KeyHost     = "host"
	KeyUsername = "username"
	KeyPassword = "password"
	KeyDatabase = "database"
)

// RecognizedKeys lists the only keys a Credentials mapping may contain.
var RecognizedKeys = []string{KeyHost, KeyUsername, KeyPassword, KeyDatabase}

// Store fetches a secret payload by name.
type Store interface {
	GetSecretValue(ctx context.Context, name string) (string, error)
}

// Common store errors.
var (
	// ErrSecretNotFound is returned when the store has no secret under the given name.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrNoSecretString is returned when a secret exists but carries no string payload.
	ErrNoSecretString = errors.New("secret has no string value")

	// ErrMalformedPayload is returned when a payload is not a JSON object.
	ErrMalformedPayload = errors.New("malformed secret payload")
)

// Credentials maps recognized keys to resolved values. Absent keys are omitted.
type Credentials map[string]string

// Empty reports whether no credential was resolved.
func (c Credentials) Empty() bool {
	return len(c) == 0
}

// Fields returns the populated key names in sorted order.
// It is safe to log; it never exposes values.
func (c Credentials) Fields() []string {
	fields := make([]string, 0, len(c))
	for k := range c {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Get returns the value for key and whether it was resolved.
func (c Credentials) Get(key string) (string, bool) {
	v, ok := c[key]
	return v, ok
}
