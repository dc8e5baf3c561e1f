// Package resolver determines the most likely spending category for a
// free-text merchant name using a cost-aware fallback chain: config bypasses,
// the shared persisted cache, web-search keyword scoring, then a
// language-model fallback. Resolve never returns an error; every soft
// failure degrades to "no resolution".
package resolver

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Source tells which stage produced a Resolution.
type Source string

const (
	SourceBypass        Source = "bypass"
	SourceCache         Source = "cache"
	SourceSearch        Source = "search"
	SourceLanguageModel Source = "language-model"
)

// Resolution is the transient result of one lookup. Only the store's record
// type is persisted, never this struct.
type Resolution struct {
	CategoryName string
	CategoryID   string
	Confidence   float64
	Source       Source
}

// Store is the persistence boundary for the shared merchant-category cache.
// Lookup returns (nil, nil) on a miss; a hit carries Source "cache".
type Store interface {
	Lookup(ctx context.Context, key string) (*Resolution, error)
	Upsert(ctx context.Context, rawName, key string, res Resolution) error
	Touch(ctx context.Context, key string) error
}

// Bypass short-circuits resolution for descriptions containing a known
// substring, before any quota or collaborator is touched.
type Bypass struct {
	Match        string
	CategoryName string
	CategoryID   string
}

// Stats holds process-wide resolution counters scraped by the Prometheus
// exporter. Atomics, since handlers increment them concurrently while the
// exporter reads.
var Stats struct {
	BypassHits      atomic.Int64
	CacheHits       atomic.Int64
	SearchHits      atomic.Int64
	ModelHits       atomic.Int64
	QuotaRejections atomic.Int64
	Unresolved      atomic.Int64
}

// Config carries the resolver tunables, read once at startup.
type Config struct {
	Enabled       bool
	MinNameLength int
	SearchEnabled bool
	ModelEnabled  bool
	DailyCap      int

	// AcceptThreshold is the orchestrator's gate on language-model results.
	// It is deliberately kept separate from the fallback's own
	// ModelMinConfidence gate; the source system carried both and product has
	// not clarified whether the double gate is intentional.
	AcceptThreshold    float64
	ModelMinConfidence float64

	Bypasses []Bypass
}

// Resolver orchestrates the fallback chain. Construct once at startup and
// share; all methods are safe for concurrent use.
type Resolver struct {
	cfg      Config
	taxonomy *Taxonomy
	quota    *QuotaGuard
	store    Store
	search   *searchEnricher
	model    *languageModelFallback
}

// New wires a Resolver. store, searcher and gen may each be nil: a nil store
// degrades every lookup to a miss, a nil collaborator disables its stage.
func New(cfg Config, taxonomy *Taxonomy, store Store, searcher Searcher, gen Generator) *Resolver {
	if cfg.MinNameLength <= 0 {
		cfg.MinNameLength = 3
	}
	if cfg.AcceptThreshold <= 0 {
		cfg.AcceptThreshold = 0.8
	}
	if cfg.ModelMinConfidence <= 0 {
		cfg.ModelMinConfidence = defaultModelMinConfidence
	}
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}

	r := &Resolver{
		cfg:      cfg,
		taxonomy: taxonomy,
		quota:    NewQuotaGuard(cfg.DailyCap),
		store:    store,
	}
	if searcher != nil {
		r.search = &searchEnricher{client: searcher, taxonomy: taxonomy}
	}
	if gen != nil {
		r.model = &languageModelFallback{
			client:        gen,
			taxonomy:      taxonomy,
			minConfidence: cfg.ModelMinConfidence,
		}
	}
	if store == nil {
		log.Warn().Msg("No merchant cache store configured, every lookup will be a miss")
	}
	return r
}

// Quota exposes the per-user budget tracker, mainly for callers that want to
// report remaining budget.
func (r *Resolver) Quota() *QuotaGuard {
	return r.quota
}

// Resolve maps a raw merchant name to a category for the given user. A nil
// return means "use the default category" and is never an error condition.
func (r *Resolver) Resolve(ctx context.Context, name, userID string) *Resolution {
	if !r.cfg.Enabled || len(strings.TrimSpace(name)) < r.cfg.MinNameLength {
		return nil
	}

	// Config bypasses are local and free, so they sit ahead of the quota gate.
	// Matching is a case-insensitive substring test against the raw name, not
	// the normalized key, so rules like "UPI-SWIGGY" keep their punctuation.
	lowered := strings.ToLower(name)
	for _, b := range r.cfg.Bypasses {
		if b.Match != "" && strings.Contains(lowered, strings.ToLower(b.Match)) {
			Stats.BypassHits.Add(1)
			return &Resolution{
				CategoryName: b.CategoryName,
				CategoryID:   b.CategoryID,
				Confidence:   1,
				Source:       SourceBypass,
			}
		}
	}

	if !r.quota.Check(userID) {
		Stats.QuotaRejections.Add(1)
		log.Warn().Str("user", userID).Msg("Daily category lookup quota exhausted")
		return nil
	}

	key := Normalize(name)
	if key == "" {
		return nil
	}

	if res := r.cached(ctx, key); res != nil {
		Stats.CacheHits.Add(1)
		return res
	}

	if r.cfg.SearchEnabled && r.search != nil {
		if res := r.search.resolve(ctx, name); res != nil {
			Stats.SearchHits.Add(1)
			r.accept(ctx, name, key, userID, res)
			return res
		}
	}

	if r.cfg.ModelEnabled && r.model != nil {
		if res := r.model.resolve(ctx, name); res != nil {
			// Stricter re-validation than the fallback's own gate.
			if res.Confidence < r.cfg.AcceptThreshold {
				log.Debug().Str("merchant", name).Float64("confidence", res.Confidence).Msg("Rejecting model resolution below acceptance threshold")
				Stats.Unresolved.Add(1)
				return nil
			}
			Stats.ModelHits.Add(1)
			r.accept(ctx, name, key, userID, res)
			return res
		}
	}

	Stats.Unresolved.Add(1)
	return nil
}

// cached consults the shared store. Store errors are absorbed as misses so an
// unprovisioned database never breaks resolution. A hit bumps the record's
// hit counter in the background.
func (r *Resolver) cached(ctx context.Context, key string) *Resolution {
	if r.store == nil {
		return nil
	}
	res, err := r.store.Lookup(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Merchant cache lookup failed, treating as miss")
		return nil
	}
	if res == nil {
		return nil
	}
	go func() {
		if err := r.store.Touch(context.Background(), key); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("Could not record merchant cache hit")
		}
	}()
	return res
}

// accept charges the user's quota and persists the resolution. Persistence
// failures are logged and otherwise ignored; the caller still gets a result.
func (r *Resolver) accept(ctx context.Context, rawName, key, userID string, res *Resolution) {
	r.quota.Increment(userID)
	if r.store == nil {
		return
	}
	if err := r.store.Upsert(ctx, rawName, key, *res); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Could not persist merchant categorization")
	}
}
