// Package gimmefy is the embedding facade: it assembles a progression
// Service from options, defaulting to in-memory storage and async event
// dispatch, and bridges engine events to realtime and webhook consumers.
package gimmefy

import (
	"context"

	"gimmefy/adapters/memory"
	"gimmefy/core"
	"gimmefy/engine"
	"gimmefy/integrations/webhook"
	"gimmefy/realtime"
)

// Option configures the service builder.
type Option func(*config)

type config struct {
	storage  engine.Storage
	gen      engine.TextGenerator
	mode     engine.DispatchMode
	hub      *realtime.Hub
	webhooks *webhook.Sink
	svcCfg   engine.Config
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithTextGenerator sets the tip text generator.
func WithTextGenerator(g engine.TextGenerator) Option { return func(c *config) { c.gen = g } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all engine events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithWebhooks wires a webhook sink to receive all engine events.
func WithWebhooks(s *webhook.Sink) Option { return func(c *config) { c.webhooks = s } }

// WithScoreParams overrides the activity score constants.
func WithScoreParams(p core.ScoreParams) Option { return func(c *config) { c.svcCfg.Score = p } }

// WithDefaults sets the experience and money seeded into explicitly
// created users.
func WithDefaults(exp float64, money int) Option {
	return func(c *config) {
		c.svcCfg.DefaultExp = exp
		c.svcCfg.DefaultMoney = money
	}
}

// WithCatalogPath sets the snapshot file used for catalog reloads.
func WithCatalogPath(path string) Option { return func(c *config) { c.svcCfg.CatalogPath = path } }

// WithTipRetries bounds the tip regeneration loop.
func WithTipRetries(n int) Option { return func(c *config) { c.svcCfg.TipRetries = n } }

var allEvents = []core.EventType{
	core.EventUserCreated,
	core.EventLevelUp,
	core.EventItemUnlocked,
	core.EventPurchase,
}

// New builds a configured Service. If not provided, defaults are used:
//   - storage: in-memory
//   - generator: none (tips fall back to the static phrase pools)
//   - dispatch: async
func New(opts ...Option) *engine.Service {
	cfg := &config{mode: engine.DispatchAsync, svcCfg: engine.DefaultConfig()}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = memory.New()
	}
	bus := engine.NewEventBus(cfg.mode)
	svc := engine.NewService(cfg.storage, bus, cfg.gen, cfg.svcCfg)
	if cfg.hub != nil {
		for _, typ := range allEvents {
			hub := cfg.hub
			bus.Subscribe(typ, func(ctx context.Context, e core.Event) { hub.Broadcast(ctx, e) })
		}
	}
	if cfg.webhooks != nil {
		for _, typ := range allEvents {
			sink := cfg.webhooks
			bus.Subscribe(typ, func(_ context.Context, e core.Event) { sink.OnEvent(e) })
		}
	}
	return svc
}
