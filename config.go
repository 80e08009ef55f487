package goCaptcha

import (
	"strings"
	"time"

	"github.com/MrEthical07/goCaptcha/challenge"
)

// MinPerAttemptTimeout is the shortest accepted per-attempt timeout.
const MinPerAttemptTimeout = time.Millisecond

// Config is the complete engine configuration. Build it from [DefaultConfig]
// and override fields; the engine keeps a private copy.
type Config struct {
	Session     SessionConfig
	Limits      LimitsConfig
	Lock        LockConfig
	Pass        PassConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
	RedisPrefix string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig is the per-presentation configuration. The engine default is
// used by Present; PresentWithConfig takes one per call.
type SessionConfig struct {
	Length            int
	ExcludedGlyphs    string
	AttemptsTotal     int
	PerAttemptTimeout time.Duration
	CaseSensitive     bool

	GrantOnSuccess  bool
	RevokeOnSuccess bool
	RemoveOnFailure bool
	RemoveOnTimeout bool

	// ShowAttemptCount asks the delivery to render the attempts-remaining indicator.
	ShowAttemptCount bool
}

/*
====================================
LIMITS / LOCK CONFIG
====================================
*/

// LimitsConfig caps presentations per subject (and optionally per client IP)
// in a fixed window. Requires Redis.
type LimitsConfig struct {
	Enabled          bool
	MaxPresentations int
	Window           time.Duration
	EnableIPThrottle bool
	ResetOnSuccess   bool
}

// LockConfig extends the one-session-per-subject rule across engine
// instances through a Redis lock. TTL 0 derives the lock lifetime from the
// session's worst-case duration.
type LockConfig struct {
	Enabled bool
	TTL     time.Duration
}

/*
====================================
PASS CONFIG
====================================
*/

// PassConfig controls verification passes minted on success.
type PassConfig struct {
	Enabled       bool
	TTL           time.Duration
	SigningMethod string // "ed25519" (default) or "hs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the stock configuration: six glyphs, three attempts,
// a 60 second per-attempt timeout, case-sensitive comparison and a role
// grant on success.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			Length:            challenge.DefaultLength,
			ExcludedGlyphs:    "",
			AttemptsTotal:     3,
			PerAttemptTimeout: 60 * time.Second,
			CaseSensitive:     true,
			GrantOnSuccess:    true,
			RevokeOnSuccess:   false,
			RemoveOnFailure:   false,
			RemoveOnTimeout:   false,
			ShowAttemptCount:  true,
		},
		Limits: LimitsConfig{
			Enabled:          false,
			MaxPresentations: 5,
			Window:           10 * time.Minute,
			EnableIPThrottle: false,
			ResetOnSuccess:   true,
		},
		Lock: LockConfig{
			Enabled: false,
		},
		Pass: PassConfig{
			Enabled:       false,
			TTL:           5 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "gocaptcha",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		RedisPrefix: "gc",
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Pass.PrivateKey = cloneBytes(cfg.Pass.PrivateKey)
	out.Pass.PublicKey = cloneBytes(cfg.Pass.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks every section and returns a [*ConfigurationError] for the
// first invalid field.
func (c *Config) Validate() error {
	if err := c.Session.Validate(); err != nil {
		return err
	}

	if strings.TrimSpace(c.RedisPrefix) == "" {
		return configErr("RedisPrefix", "must not be empty")
	}

	if c.Limits.Enabled {
		if c.Limits.MaxPresentations <= 0 {
			return configErr("Limits.MaxPresentations", "must be > 0 when limits are enabled")
		}
		if c.Limits.Window <= 0 {
			return configErr("Limits.Window", "must be > 0 when limits are enabled")
		}
	}

	if c.Lock.TTL < 0 {
		return configErr("Lock.TTL", "must be >= 0")
	}

	if c.Pass.Enabled {
		if c.Pass.TTL <= 0 {
			return configErr("Pass.TTL", "must be > 0")
		}
		switch c.Pass.SigningMethod {
		case "ed25519":
			if len(c.Pass.PrivateKey) == 0 && len(c.Pass.PublicKey) == 0 {
				return configErr("Pass.PrivateKey", "ed25519 requires a private or public key")
			}
		case "hs256":
			if len(c.Pass.PrivateKey) < 32 {
				return configErr("Pass.PrivateKey", "hs256 requires at least 32 bytes")
			}
		default:
			return configErr("Pass.SigningMethod", "must be 'ed25519' or 'hs256'")
		}
		if c.Pass.Audience != "" && strings.TrimSpace(c.Pass.Audience) == "" {
			return configErr("Pass.Audience", "must not be blank")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configErr("Audit.BufferSize", "must be > 0 when audit is enabled")
	}

	return nil
}

// Validate checks the presentation parameters alone. It never inspects
// capability bindings; the engine does that against its wiring.
func (s SessionConfig) Validate() error {
	if s.Length < 1 {
		return configErr("Session.Length", "must be >= 1")
	}
	if err := challenge.ValidateExcluded(s.ExcludedGlyphs); err != nil {
		return configErr("Session.ExcludedGlyphs", "must contain only alphanumeric glyphs")
	}
	if _, err := challenge.NewAlphabet(s.ExcludedGlyphs); err != nil {
		return configErr("Session.ExcludedGlyphs", "leaves no glyphs to draw from")
	}
	if s.AttemptsTotal < 1 {
		return configErr("Session.AttemptsTotal", "must be >= 1")
	}
	if s.PerAttemptTimeout < MinPerAttemptTimeout {
		return configErr("Session.PerAttemptTimeout", "must be >= 1ms")
	}
	return nil
}

// maxDuration is the longest a session can run before its terminal outcome.
func (s SessionConfig) maxDuration() time.Duration {
	return time.Duration(s.AttemptsTotal) * s.PerAttemptTimeout
}
