package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goCaptcha "github.com/MrEthical07/goCaptcha"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadEnvDefaults(t *testing.T) {
	cfg, err := loadEnv()
	if err != nil {
		t.Fatalf("loadEnv: %v", err)
	}
	if cfg.Length != 6 || cfg.Attempts != 3 || cfg.Timeout != time.Minute || !cfg.CaseSensitive {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	full := goCaptcha.DefaultConfig()
	full.Session = cfg.sessionConfig()
	if err := full.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadEnvOverlay(t *testing.T) {
	t.Setenv("GOCAPTCHA_LENGTH", "4")
	t.Setenv("GOCAPTCHA_EXCLUDE", "0O")
	t.Setenv("GOCAPTCHA_ATTEMPTS", "5")
	t.Setenv("GOCAPTCHA_TIMEOUT", "2s")
	t.Setenv("GOCAPTCHA_CASE_SENSITIVE", "false")

	cfg, err := loadEnv()
	if err != nil {
		t.Fatalf("loadEnv: %v", err)
	}
	s := cfg.sessionConfig()
	if s.Length != 4 || s.ExcludedGlyphs != "0O" || s.AttemptsTotal != 5 || s.PerAttemptTimeout != 2*time.Second || s.CaseSensitive {
		t.Fatalf("overlay not applied: %+v", s)
	}
}

func TestLoadEnvRejectsGarbage(t *testing.T) {
	t.Setenv("GOCAPTCHA_TIMEOUT", "soon")
	if _, err := loadEnv(); err == nil {
		t.Fatal("expected parse error")
	}
	for _, args := range [][]string{{"render"}, {"loadtest", "--sessions", "1"}} {
		_, err := execute(t, args...)
		if err == nil {
			t.Fatalf("%v: expected the command to surface the env error", args)
		}
		if !strings.Contains(err.Error(), "parse env") {
			t.Fatalf("%v: expected env error, got %v", args, err)
		}
	}
}

func TestRenderWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.png")
	out, err := execute(t, "render", "--length", "5", "--exclude", "abc", "--out", path)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	answer := strings.TrimSpace(out)
	if len(answer) != 5 || strings.ContainsAny(answer, "abc") {
		t.Fatalf("unexpected answer %q", answer)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Fatal("expected a PNG file")
	}
}

func TestLoadtestAllCorrect(t *testing.T) {
	out, err := execute(t, "loadtest", "--sessions", "20", "--concurrency", "4", "--wrong", "0", "--timeout", "5s")
	if err != nil {
		t.Fatalf("loadtest: %v", err)
	}
	if !strings.Contains(out, "success=20") || !strings.Contains(out, "errors=0") {
		t.Fatalf("unexpected report:\n%s", out)
	}
}

func TestLoadtestAllWrongWithRedis(t *testing.T) {
	out, err := execute(t, "loadtest", "--sessions", "6", "--concurrency", "3", "--wrong", "1", "--attempts", "2", "--timeout", "5s", "--redis")
	if err != nil {
		t.Fatalf("loadtest: %v", err)
	}
	if !strings.Contains(out, "using miniredis") || !strings.Contains(out, "failure=6") || !strings.Contains(out, "redeliveries_failed=0") {
		t.Fatalf("unexpected report:\n%s", out)
	}
}

func TestLoadtestRejectsBadFlags(t *testing.T) {
	if _, err := execute(t, "loadtest", "--sessions", "0"); err == nil {
		t.Fatal("expected error for zero sessions")
	}
	if _, err := execute(t, "loadtest", "--wrong", "2"); err == nil {
		t.Fatal("expected error for wrong > 1")
	}
}

func TestLoadtestOTelDump(t *testing.T) {
	out, err := execute(t, "loadtest", "--sessions", "3", "--concurrency", "3", "--wrong", "0", "--timeout", "5s", "--otel")
	if err != nil {
		t.Fatalf("loadtest: %v", err)
	}
	for _, want := range []string{
		"---- otel ----",
		"gocaptcha_success_total 3",
		"gocaptcha_challenge_generated_total 3",
		`gocaptcha_solve_latency_seconds_bucket{le="+Inf"} 3`,
		"gocaptcha_solve_latency_seconds_count 3",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in otel dump, got:\n%s", want, out)
		}
	}
}
