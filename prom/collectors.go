package prom

import (
	"context"
	"time"

	"github.com/helpcomp/merchant-category-resolver/llm"
	"github.com/helpcomp/merchant-category-resolver/resolver"
	"github.com/helpcomp/merchant-category-resolver/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.CollectCache(ch) // Shared merchant cache collector
	e.CollectSys(ch)   // Resolver and API call counters
}

// CollectCache scrapes the shared cache store for size and accumulated hits.
func (e *Exporter) CollectCache(ch chan<- prometheus.Metric) {
	if e.st == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	merchants, hits, err := e.st.Stats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Could not collect merchant cache stats")
		return
	}
	ch <- prometheus.MustNewConstMetric(
		e.CachedMerchants,
		prometheus.GaugeValue,
		float64(merchants),
	)
	ch <- prometheus.MustNewConstMetric(
		e.CacheHitTotal,
		prometheus.CounterValue,
		float64(hits),
	)
}

// CollectSys reports the process counters kept by the resolver and the
// collaborator clients.
func (e *Exporter) CollectSys(ch chan<- prometheus.Metric) {
	outcomes := map[string]float64{
		"bypass":         float64(resolver.Stats.BypassHits.Load()),
		"cache":          float64(resolver.Stats.CacheHits.Load()),
		"search":         float64(resolver.Stats.SearchHits.Load()),
		"language-model": float64(resolver.Stats.ModelHits.Load()),
		"unresolved":     float64(resolver.Stats.Unresolved.Load()),
	}
	for outcome, count := range outcomes {
		ch <- prometheus.MustNewConstMetric(
			e.Resolutions,
			prometheus.CounterValue,
			count,
			outcome,
		)
	}
	ch <- prometheus.MustNewConstMetric(
		e.QuotaRejections,
		prometheus.CounterValue,
		float64(resolver.Stats.QuotaRejections.Load()),
	)
	ch <- prometheus.MustNewConstMetric(
		e.APICalls,
		prometheus.CounterValue,
		float64(search.APICalls.Load()),
		"search",
	)
	ch <- prometheus.MustNewConstMetric(
		e.APICalls,
		prometheus.CounterValue,
		float64(llm.APICalls.Load()),
		"openai",
	)
	ch <- prometheus.MustNewConstMetric(
		e.APIErrors,
		prometheus.CounterValue,
		float64(search.APIErrors.Load()),
		"search",
	)
	ch <- prometheus.MustNewConstMetric(
		e.APIErrors,
		prometheus.CounterValue,
		float64(llm.APIErrors.Load()),
		"openai",
	)
}
