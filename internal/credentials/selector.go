// Package credentials decides which source supplies database credentials.
package credentials

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/itemstack/backend/internal/secrets"
)

// Source names where database credentials came from.
type Source string

const (
	SourceSecretStore Source = "managed secret store"
	SourceEnvironment Source = "environment configuration"
)

// Selection is the outcome of a configuration-time credential decision.
// Credentials is empty exactly when Source is SourceEnvironment.
type Selection struct {
	Source      Source
	Credentials secrets.Credentials
}

// SourceRecorder receives the selected source.
type SourceRecorder interface {
	SetCredentialSource(source string)
}

// Selector chooses between resolved secret-store credentials and the
// environment configuration.
type Selector struct {
	resolver   *secrets.Resolver
	secretName string
	recorder   SourceRecorder
	logger     zerolog.Logger
}

// NewSelector creates a Selector. resolver may be nil when no secret store is
// wired; an empty secretName falls back to secrets.DefaultSecretName.
func NewSelector(resolver *secrets.Resolver, secretName string, logger zerolog.Logger) *Selector {
	if secretName == "" {
		secretName = secrets.DefaultSecretName
	}
	return &Selector{
		resolver:   resolver,
		secretName: secretName,
		logger:     logger.With().Str("component", "credential_selector").Logger(),
	}
}

// WithRecorder reports the selected source to r.
func (s *Selector) WithRecorder(r SourceRecorder) *Selector {
	s.recorder = r
	return s
}

// SelectDatabaseConfiguration invokes the resolver at most once. A non-empty
// result is returned unchanged; otherwise the selection is empty and the
// environment configuration stays authoritative.
func (s *Selector) SelectDatabaseConfiguration(ctx context.Context) Selection {
	if s.resolver != nil {
		creds := s.resolver.ResolveDatabaseCredentials(ctx, s.secretName)
		if !creds.Empty() {
			return s.selected(SourceSecretStore, creds)
		}
	}
	return s.selected(SourceEnvironment, secrets.Credentials{})
}

func (s *Selector) selected(source Source, creds secrets.Credentials) Selection {
	s.logger.Info().
		Str("source", string(source)).
		Strs("fields", creds.Fields()).
		Msgf("using database credentials from %s", source)
	if s.recorder != nil {
		s.recorder.SetCredentialSource(string(source))
	}
	return Selection{Source: source, Credentials: creds}
}
