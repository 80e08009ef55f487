package goCaptcha

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/MrEthical07/goCaptcha/challenge"
	internalaudit "github.com/MrEthical07/goCaptcha/internal/audit"
	"github.com/MrEthical07/goCaptcha/internal/flows"
	"github.com/MrEthical07/goCaptcha/internal/limiters"
	"github.com/MrEthical07/goCaptcha/internal/stores"
	"github.com/MrEthical07/goCaptcha/pass"
	"github.com/MrEthical07/goCaptcha/random"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Configure it during initialization and call
// Build exactly once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	source   ResponseSource
	delivery ChallengeDelivery
	granter  RoleGranter
	revoker  RoleRevoker
	remover  SubjectRemover
	gate     RemovalGate

	auditSink    AuditSink
	renderer     Renderer
	randomSource random.Source

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration, including metric toggles set
// by earlier With calls.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client used by the presentation limiter and the
// distributed session lock. Either a single client or a cluster client works.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithResponseSource sets where subject answers are read from. Required.
func (b *Builder) WithResponseSource(src ResponseSource) *Builder {
	b.source = src
	return b
}

// WithDelivery sets how challenges reach the subject. Required.
func (b *Builder) WithDelivery(d ChallengeDelivery) *Builder {
	b.delivery = d
	return b
}

// WithRoleGranter sets the capability used when GrantOnSuccess is on.
func (b *Builder) WithRoleGranter(g RoleGranter) *Builder {
	b.granter = g
	return b
}

// WithRoleRevoker sets the capability used by the role removal policy.
func (b *Builder) WithRoleRevoker(r RoleRevoker) *Builder {
	b.revoker = r
	return b
}

// WithSubjectRemover sets the capability used by the subject removal policy.
func (b *Builder) WithSubjectRemover(r SubjectRemover) *Builder {
	b.remover = r
	return b
}

// WithAuthorization binds each non-nil function of f to its capability.
func (b *Builder) WithAuthorization(f AuthorizationFuncs) *Builder {
	if f.Grant != nil {
		b.granter = f
	}
	if f.Revoke != nil {
		b.revoker = f
	}
	if f.Remove != nil {
		b.remover = f
	}
	return b
}

// WithRemovalGate vetoes removals per subject before they run.
func (b *Builder) WithRemovalGate(g RemovalGate) *Builder {
	b.gate = g
	return b
}

// WithAuditSink sets the destination of audit events when auditing is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRenderer replaces the default gg canvas renderer.
func (b *Builder) WithRenderer(r Renderer) *Builder {
	b.renderer = r
	return b
}

// WithRandomSource replaces crypto/rand for glyph sampling and the default
// renderer's noise. Intended for tests.
func (b *Builder) WithRandomSource(src random.Source) *Builder {
	b.randomSource = src
	return b
}

// WithMetricsEnabled toggles engine counters. A later WithConfig overrides it.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the solve latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration against the wired capabilities and
// returns a ready engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.source == nil {
		return nil, configErr("ResponseSource", "is required")
	}
	if b.delivery == nil {
		return nil, configErr("ChallengeDelivery", "is required")
	}
	if err := checkBindings(cfg.Session, b.granter, b.revoker, b.remover); err != nil {
		return nil, err
	}
	if b.redis == nil {
		if cfg.Limits.Enabled {
			return nil, configErr("Limits.Enabled", "requires a redis client")
		}
		if cfg.Lock.Enabled {
			return nil, configErr("Lock.Enabled", "requires a redis client")
		}
	}

	src := b.randomSource
	if src == nil {
		src = random.System()
	}

	renderer := b.renderer
	if renderer == nil {
		cr, err := challenge.NewCanvasRenderer(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRenderingUnavailable, err)
		}
		renderer = cr
	}

	engine := &Engine{
		config:    cfg,
		generator: challenge.NewGenerator(src, renderer),
		source:    b.source,
		delivery:  b.delivery,
		granter:   b.granter,
		revoker:   b.revoker,
		remover:   b.remover,
		gate:      b.gate,
		now:       time.Now,
		sessions:  make(map[string]*liveSession),
	}
	if r, ok := b.delivery.(DeliveryRetractor); ok {
		engine.retractor = r
	}

	if cfg.Limits.Enabled {
		engine.limiter = limiters.NewPresentLimiter(b.redis, limiters.PresentConfig{
			MaxPresentations: cfg.Limits.MaxPresentations,
			Window:           cfg.Limits.Window,
			EnableIPThrottle: cfg.Limits.EnableIPThrottle,
			KeyPrefix:        cfg.RedisPrefix,
		})
	}
	if cfg.Lock.Enabled {
		engine.lock = stores.NewSessionLock(b.redis, cfg.RedisPrefix, cfg.Lock.TTL)
	}

	if cfg.Pass.Enabled {
		pm, err := pass.NewManager(pass.Config{
			TTL:           cfg.Pass.TTL,
			SigningMethod: pass.SigningMethod(cfg.Pass.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Pass.PrivateKey),
			PublicKey:     cloneBytes(cfg.Pass.PublicKey),
			Issuer:        cfg.Pass.Issuer,
			Audience:      cfg.Pass.Audience,
			KeyID:         cfg.Pass.KeyID,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		engine.passes = pm
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.flow = flows.New(engine.flowDeps())

	b.built = true

	return engine, nil
}

// flowDeps binds the presentation flow to the engine's transport and
// generator.
func (e *Engine) flowDeps() flows.Deps {
	deps := flows.PresentDeps{
		Generate: func(opts challenge.Options) (challenge.Challenge, error) {
			c, err := e.generator.Generate(opts)
			if err == nil {
				e.metricInc(MetricChallengeGenerated)
			}
			return c, err
		},
		Deliver: func(ctx context.Context, req flows.DeliveryRequest) (string, error) {
			return e.delivery.Deliver(ctx, deliveryRequest(req))
		},
		Redeliver: func(ctx context.Context, handle string, req flows.DeliveryRequest) error {
			err := e.delivery.Redeliver(ctx, handle, deliveryRequest(req))
			if err != nil {
				e.metricInc(MetricRedeliveryFailure)
			}
			return err
		},
		Logf: log.Printf,
	}
	if e.retractor != nil {
		deps.Retract = func(ctx context.Context, handle string, final flows.State) error {
			return e.retractor.Retract(ctx, handle, terminalKind(final))
		}
	}
	return flows.Deps{Present: deps}
}

func deliveryRequest(req flows.DeliveryRequest) DeliveryRequest {
	return DeliveryRequest{
		SubjectID:         req.SubjectID,
		SessionID:         req.SessionID,
		Challenge:         req.Challenge.Clone(),
		AttemptsRemaining: req.AttemptsRemaining,
		AttemptsTotal:     req.AttemptsTotal,
		ShowAttemptCount:  req.ShowAttemptCount,
	}
}
