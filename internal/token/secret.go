package token

import (
	"context"

	"authcore/internal/apperr"
)

// Posture controls whether the built-in fallback signing secret may be used.
type Posture string

const (
	PostureDevelopment Posture = "development"
	PostureProduction  Posture = "production"
)

// SigningSecretKey is the settings key the secret is loaded from.
const SigningSecretKey = "auth.signing_secret"

// devFallbackSecret exists so a fresh local checkout works without any
// stored settings. Production posture refuses it.
const devFallbackSecret = "dev-only-insecure-signing-secret"

// SettingsStore is the key-value settings lookup the secret is read from.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// SecretProvider resolves the signing secret per call. Re-fetching keeps it
// free of in-process locking; the settings store is its own source of truth.
type SecretProvider struct {
	settings SettingsStore
	posture  Posture
}

func NewSecretProvider(settings SettingsStore, posture Posture) *SecretProvider {
	return &SecretProvider{settings: settings, posture: posture}
}

func (p *SecretProvider) Secret(ctx context.Context) (string, error) {
	secret, ok, err := p.settings.Get(ctx, SigningSecretKey)
	if err != nil {
		return "", apperr.Storage("failed to load signing secret", err)
	}
	if ok && secret != "" {
		return secret, nil
	}
	if p.posture != PostureDevelopment {
		return "", apperr.Internal("signing secret not configured", nil)
	}
	return devFallbackSecret, nil
}

// StaticSecrets is a SettingsStore backed by a fixed map, used in tests and
// single-binary tools.
type StaticSecrets map[string]string

func (s StaticSecrets) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}
