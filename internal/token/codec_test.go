package token

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"authcore/internal/apperr"
)

func testCodec(t *testing.T, posture Posture, stored StaticSecrets) *Codec {
	t.Helper()
	provider := NewSecretProvider(stored, posture)
	return NewCodec(provider, zap.NewNop())
}

func TestSessionRoundTrip(t *testing.T) {
	codec := testCodec(t, PostureProduction, StaticSecrets{SigningSecretKey: "unit-test-secret"})
	ctx := context.Background()

	tenant := 42
	signed, err := codec.IssueSession(ctx, 7, &tenant, true, time.Hour)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	claims, err := codec.VerifySession(ctx, signed)
	if err != nil {
		t.Fatalf("VerifySession failed: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("UserID = %d, want 7", claims.UserID)
	}
	if claims.TenantID == nil || *claims.TenantID != 42 {
		t.Errorf("TenantID = %v, want 42", claims.TenantID)
	}
	if !claims.IsSuperAdmin {
		t.Error("IsSuperAdmin not preserved")
	}
}

func TestSessionExpiry(t *testing.T) {
	codec := testCodec(t, PostureProduction, StaticSecrets{SigningSecretKey: "unit-test-secret"})
	ctx := context.Background()

	issued := time.Now()
	codec.WithNow(func() time.Time { return issued })

	signed, err := codec.IssueSession(ctx, 1, nil, false, time.Second)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	// Still valid just before expiry.
	codec.WithNow(func() time.Time { return issued.Add(500 * time.Millisecond) })
	if _, err := codec.VerifySession(ctx, signed); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}

	// Rejected once the clock passes the expiry.
	codec.WithNow(func() time.Time { return issued.Add(2 * time.Second) })
	_, err = codec.VerifySession(ctx, signed)
	if !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}

func TestNonPositiveTTL(t *testing.T) {
	codec := testCodec(t, PostureDevelopment, StaticSecrets{})
	ctx := context.Background()

	if _, err := codec.IssueSession(ctx, 1, nil, false, 0); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for zero ttl, got %v", err)
	}
	if _, err := codec.IssuePurpose(ctx, 1, nil, "billing", "email", -time.Minute); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for negative ttl, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	codec := testCodec(t, PostureProduction, StaticSecrets{SigningSecretKey: "unit-test-secret"})
	ctx := context.Background()

	signed, err := codec.IssueSession(ctx, 1, nil, false, time.Hour)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	tampered := signed[:len(signed)-2] + "xx"
	_, err = codec.VerifySession(ctx, tampered)
	if !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized for tampered token, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	ctx := context.Background()
	issuer := testCodec(t, PostureProduction, StaticSecrets{SigningSecretKey: "secret-a"})
	verifier := testCodec(t, PostureProduction, StaticSecrets{SigningSecretKey: "secret-b"})

	signed, err := issuer.IssueSession(ctx, 1, nil, false, time.Hour)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if _, err := verifier.VerifySession(ctx, signed); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized with wrong secret, got %v", err)
	}
}

func TestPurposeTokenScoping(t *testing.T) {
	codec := testCodec(t, PostureProduction, StaticSecrets{SigningSecretKey: "unit-test-secret"})
	ctx := context.Background()

	purpose, err := codec.IssuePurpose(ctx, 9, nil, "announcements", "email", 24*time.Hour)
	if err != nil {
		t.Fatalf("IssuePurpose failed: %v", err)
	}
	session, err := codec.IssueSession(ctx, 9, nil, false, 24*time.Hour)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	// A purpose token must never verify as a session and vice versa.
	if _, err := codec.VerifySession(ctx, purpose); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("purpose token verified as session: %v", err)
	}
	if _, err := codec.VerifyPurpose(ctx, session); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("session token verified as purpose: %v", err)
	}

	claims, err := codec.VerifyPurpose(ctx, purpose)
	if err != nil {
		t.Fatalf("VerifyPurpose failed: %v", err)
	}
	if claims.UserID != 9 || claims.Category != "announcements" || claims.Channel != "email" {
		t.Errorf("unexpected purpose claims: %+v", claims)
	}
}

func TestProductionRefusesFallbackSecret(t *testing.T) {
	codec := testCodec(t, PostureProduction, StaticSecrets{})
	ctx := context.Background()

	_, err := codec.IssueSession(ctx, 1, nil, false, time.Hour)
	if !apperr.IsKind(err, apperr.KindInternal) {
		t.Fatalf("production posture must refuse the dev fallback, got %v", err)
	}
}

func TestDevelopmentUsesFallbackSecret(t *testing.T) {
	codec := testCodec(t, PostureDevelopment, StaticSecrets{})
	ctx := context.Background()

	signed, err := codec.IssueSession(ctx, 1, nil, false, time.Hour)
	if err != nil {
		t.Fatalf("development posture should fall back: %v", err)
	}
	if _, err := codec.VerifySession(ctx, signed); err != nil {
		t.Fatalf("fallback-signed token should verify: %v", err)
	}
}

func TestStoredSecretPreferredOverFallback(t *testing.T) {
	ctx := context.Background()
	stored := testCodec(t, PostureDevelopment, StaticSecrets{SigningSecretKey: "stored-secret"})
	fallback := testCodec(t, PostureDevelopment, StaticSecrets{})

	signed, err := stored.IssueSession(ctx, 1, nil, false, time.Hour)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if _, err := fallback.VerifySession(ctx, signed); err == nil {
		t.Fatal("token signed with stored secret must not verify under the fallback")
	}
}
