package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/skosovsky/agentkit/conversation"
)

// Tier is an ordinal capability class of inference clients.
type Tier int

const (
	TierLight Tier = iota
	TierMiddle
	TierHeavy
)

func (t Tier) String() string {
	switch t {
	case TierLight:
		return "light"
	case TierMiddle:
		return "middle"
	case TierHeavy:
		return "heavy"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier parses a tier name as printed by Tier.String.
func ParseTier(s string) (Tier, error) {
	for _, t := range []Tier{TierLight, TierMiddle, TierHeavy} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// ErrNoProvider is returned by CreateClient when no provider is registered.
var ErrNoProvider = errors.New("no inference provider registered")

// Factory creates clients for a requested tier. When the exact tier has no
// registered provider the nearest registered tier is used (ties prefer the
// lower tier) and the substitution is logged at warn level.
type Factory struct {
	mu        sync.RWMutex
	providers map[Tier]Provider
	logger    *slog.Logger
	opts      []Option
}

// NewFactory creates a factory. opts are applied to every created client before
// the per-call ones.
func NewFactory(logger *slog.Logger, opts ...Option) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{providers: make(map[Tier]Provider), logger: logger, opts: opts}
}

// Register binds provider to tier, replacing any previous registration.
func (f *Factory) Register(tier Tier, provider Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers[tier] = provider
}

// Tiers returns the registered tiers in ascending order.
func (f *Factory) Tiers() []Tier {
	f.mu.RLock()
	defer f.mu.RUnlock()
	tiers := make([]Tier, 0, len(f.providers))
	for t := range f.providers {
		tiers = append(tiers, t)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })
	return tiers
}

// Resolve returns the tier that serves a request for tier.
func (f *Factory) Resolve(tier Tier) (Tier, error) {
	tiers := f.Tiers()
	if len(tiers) == 0 {
		return 0, ErrNoProvider
	}
	best := tiers[0]
	for _, t := range tiers {
		if t == tier {
			return t, nil
		}
		if distance(t, tier) < distance(best, tier) {
			best = t
		}
	}
	return best, nil
}

// CreateClient returns a new client for tier bound to conv.
func (f *Factory) CreateClient(ctx context.Context, tier Tier, conv conversation.Context, opts ...Option) (*Client, error) {
	resolved, err := f.Resolve(tier)
	if err != nil {
		return nil, err
	}
	if resolved != tier {
		f.logger.WarnContext(ctx, "inference tier substituted", "requested", tier.String(), "resolved", resolved.String())
	}
	f.mu.RLock()
	provider := f.providers[resolved]
	f.mu.RUnlock()

	all := make([]Option, 0, len(f.opts)+len(opts)+1)
	all = append(all, f.opts...)
	all = append(all, WithContext(conv))
	all = append(all, opts...)
	return NewClient(provider, all...), nil
}

func distance(a, b Tier) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
