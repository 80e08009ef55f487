package goCaptcha

import (
	"context"
	"crypto/ed25519"
	"errors"
	"strings"
	"testing"
	"time"
)

func passConfig(t *testing.T) (Config, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	cfg := testConfig()
	cfg.Pass.Enabled = true
	cfg.Pass.PrivateKey = priv
	cfg.Pass.Audience = "signup"
	return cfg, pub
}

func TestPassIssuedOnSuccessAndVerifies(t *testing.T) {
	cfg, _ := passConfig(t)
	h := newHarness(t, cfg, []step{{text: "nope"}, {correct: true}}, func(_ *harness, b *Builder) {
		b.WithMetricsEnabled(true)
	})

	res, err := h.engine.Present(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Present: %v", err)
	}
	if res.Pass == "" {
		t.Fatal("expected a pass on success")
	}

	claims, err := h.engine.VerifyPass(context.Background(), res.Pass)
	if err != nil {
		t.Fatalf("VerifyPass: %v", err)
	}
	if claims.SubjectID != "alice" || claims.SessionID != res.Outcome.SessionID || claims.Attempt != 2 {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt); got != cfg.Pass.TTL {
		t.Fatalf("expected pass lifetime %v, got %v", cfg.Pass.TTL, got)
	}
	if got := h.engine.MetricsSnapshot().Counters[MetricPassIssued]; got != 1 {
		t.Fatalf("expected one pass issued, got %d", got)
	}
}

func TestNoPassOnFailure(t *testing.T) {
	cfg, _ := passConfig(t)
	cfg.Session.AttemptsTotal = 1
	h := newHarness(t, cfg, []step{{text: "nope"}})

	res, err := h.engine.Present(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Present: %v", err)
	}
	if res.Pass != "" {
		t.Fatal("failure must not mint a pass")
	}
}

func TestVerifyPassRejectsTampering(t *testing.T) {
	cfg, _ := passConfig(t)
	h := newHarness(t, cfg, []step{{correct: true}})

	res, err := h.engine.Present(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Present: %v", err)
	}

	sig := strings.LastIndex(res.Pass, ".") + 1
	swap := "A"
	if res.Pass[sig] == 'A' {
		swap = "B"
	}
	tampered := res.Pass[:sig] + swap + res.Pass[sig+1:]
	if _, err := h.engine.VerifyPass(context.Background(), tampered); !errors.Is(err, ErrPassInvalid) {
		t.Fatalf("expected ErrPassInvalid, got %v", err)
	}
	if _, err := h.engine.VerifyPass(context.Background(), "not-a-token"); !errors.Is(err, ErrPassInvalid) {
		t.Fatalf("expected ErrPassInvalid, got %v", err)
	}
}

func TestVerifyOnlyEngine(t *testing.T) {
	cfg, pub := passConfig(t)
	signer := newHarness(t, cfg, []step{{correct: true}})

	res, err := signer.engine.Present(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Present: %v", err)
	}

	verifyCfg := testConfig()
	verifyCfg.Pass.Enabled = true
	verifyCfg.Pass.PublicKey = pub
	verifyCfg.Pass.Audience = "signup"
	verifier := newHarness(t, verifyCfg, []step{{correct: true}})

	claims, err := verifier.engine.VerifyPass(context.Background(), res.Pass)
	if err != nil {
		t.Fatalf("VerifyPass on verify-only engine: %v", err)
	}
	if claims.SubjectID != "alice" {
		t.Fatalf("unexpected subject %q", claims.SubjectID)
	}

	res, err = verifier.engine.Present(context.Background(), "bob")
	if err != nil {
		t.Fatalf("Present: %v", err)
	}
	if res.Pass != "" {
		t.Fatal("verify-only engine must not mint passes")
	}
}

func TestVerifyPassDisabled(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	if _, err := h.engine.VerifyPass(context.Background(), "anything"); !errors.Is(err, ErrPassDisabled) {
		t.Fatalf("expected ErrPassDisabled, got %v", err)
	}
}

func TestHS256PassRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.Pass.Enabled = true
	cfg.Pass.SigningMethod = "hs256"
	cfg.Pass.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Pass.TTL = time.Minute

	h := newHarness(t, cfg, []step{{correct: true}})
	res, err := h.engine.Present(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Present: %v", err)
	}
	if _, err := h.engine.VerifyPass(context.Background(), res.Pass); err != nil {
		t.Fatalf("VerifyPass: %v", err)
	}
}
