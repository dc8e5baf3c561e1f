package prom

import (
	"net/http"

	"github.com/helpcomp/merchant-category-resolver/store"
	"github.com/prometheus/client_golang/prometheus"
)

type Exporter struct {
	CachedMerchants *prometheus.Desc
	CacheHitTotal   *prometheus.Desc
	Resolutions     *prometheus.Desc
	QuotaRejections *prometheus.Desc
	APICalls        *prometheus.Desc
	APIErrors       *prometheus.Desc

	st *store.Store
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.CachedMerchants
	ch <- e.CacheHitTotal
	ch <- e.Resolutions
	ch <- e.QuotaRejections
	ch <- e.APICalls
	ch <- e.APIErrors
}

// NewExporter builds the resolver exporter. st may be nil when the cache
// store is unprovisioned; store-backed metrics are then skipped.
func NewExporter(namespace string, st *store.Store) *Exporter {
	return &Exporter{
		CachedMerchants: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"cache",
				"merchants",
			),
			"Number of merchant categorizations in the shared cache",
			[]string{},
			nil,
		),
		CacheHitTotal: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"cache",
				"hits",
			),
			"Accumulated cache read-hits across all merchants",
			[]string{},
			nil,
		),
		Resolutions: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"resolver",
				"resolutions",
			),
			"Count of resolutions by outcome",
			[]string{"outcome"},
			nil,
		),
		QuotaRejections: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"resolver",
				"quota_rejections",
			),
			"Count of lookups rejected by the per-user daily quota",
			[]string{},
			nil,
		),
		APICalls: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"status",
				"api_calls",
			),
			"Count of API calls",
			[]string{"type"},
			nil,
		),
		APIErrors: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"status",
				"api_errors",
			),
			"Count of API Errors",
			[]string{"type"},
			nil,
		),
		st: st,
	}
}

// HealthHandler reports liveness for the /health endpoint.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
