package secrets

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/itemstack/backend/pkg/tracing"
)

// Resolution outcomes reported to a Recorder.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder receives one outcome per resolution attempt.
type Recorder interface {
	RecordCredentialResolution(outcome string)
}

// Resolver fetches a named secret and extracts database credentials from it.
type Resolver struct {
	store    Store
	recorder Recorder
	logger   zerolog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRecorder reports resolution outcomes to r.
func WithRecorder(r Recorder) ResolverOption {
	return func(res *Resolver) {
		res.recorder = r
	}
}

// NewResolver creates a Resolver backed by store.
func NewResolver(store Store, logger zerolog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		logger: logger.With().Str("component", "secret_resolver").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveDatabaseCredentials returns the recognized credential fields found in
// the named secret. Any failure is logged and yields an empty mapping; it
// never returns an error and never panics.
func (r *Resolver) ResolveDatabaseCredentials(ctx context.Context, secretName string) (creds Credentials) {
	ctx, span := tracing.StartSpan(ctx, "secrets.ResolveDatabaseCredentials",
		tracing.WithAttributes(tracing.AttrSecretName.String(secretName)))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().
				Str("secret_name", secretName).
				Str("panic_type", fmt.Sprintf("%T", p)).
				Msg("error retrieving secret from secret store")
			span.SetStatus(codes.Error, "panic")
			r.record(OutcomeFailure)
			creds = Credentials{}
		}
	}()

	creds, err := r.fetch(ctx, secretName)
	if err != nil {
		r.logger.Error().
			Str("secret_name", secretName).
			Err(err).
			Msg("error retrieving secret from secret store")
		span.SetStatus(codes.Error, err.Error())
		r.record(OutcomeFailure)
		return Credentials{}
	}

	r.logger.Info().
		Str("secret_name", secretName).
		Strs("fields", creds.Fields()).
		Msg("successfully retrieved database credentials from secret store")
	span.SetAttributes(tracing.AttrSecretFields.Int(len(creds)))
	r.record(OutcomeSuccess)
	return creds
}

// fetch performs the store call and parsing; the request context is released
// on every return path.
func (r *Resolver) fetch(ctx context.Context, secretName string) (Credentials, error) {
	if r.store == nil {
		return nil, fmt.Errorf("no secret store configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	payload, err := r.store.GetSecretValue(ctx, secretName)
	if err != nil {
		return nil, fmt.Errorf("fetch secret: %w", err)
	}

	doc, err := ParseDocument(payload)
	if err != nil {
		return nil, fmt.Errorf("parse secret: %w", err)
	}

	return doc.Credentials(), nil
}

func (r *Resolver) record(outcome string) {
	if r.recorder != nil {
		r.recorder.RecordCredentialResolution(outcome)
	}
}
