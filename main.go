package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/alecthomas/kong"
	"github.com/helpcomp/merchant-category-resolver/config"
	"github.com/helpcomp/merchant-category-resolver/llm"
	"github.com/helpcomp/merchant-category-resolver/prom"
	"github.com/helpcomp/merchant-category-resolver/resolver"
	"github.com/helpcomp/merchant-category-resolver/search"
	"github.com/helpcomp/merchant-category-resolver/store"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	"github.com/prometheus/exporter-toolkit/web"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const AppName = "merchant-category-resolver"
const AppDesc = "Go-based service that maps free-text merchant names from imported transactions to spending categories, using a shared persisted cache, web-search keyword scoring and a language-model fallback under per-user cost quotas."

// metricNamespace is AppName with underscores: dashes are not valid in
// Prometheus metric names, so registering Descs built from the dashed name
// would panic at startup.
const metricNamespace = "merchant_category_resolver"

var cli struct {
	MetricsPath      string `env:"EXPORTER_METRICS_PATH" help:"${env} - Path under which to expose metrics" default:"/metrics"`
	ConfigPath       string `env:"CONFIG_PATH" help:"${env} - Path to config file" default:"./config.yml"`
	ListenAddress    string `env:"LISTEN_ADDRESS" help:"${env} - Address to listen on for the resolver API and telemetry" default:"9718"`
	DBPath           string `env:"SQLITE_DB_PATH" help:"${env} - Path to the shared merchant cache database" default:"./data/merchants.db"`
	GoogleAPIKey     string `env:"GOOGLE_API_KEY" help:"${env} - API Key for Google Programmable Search. If none is provided, search enrichment is disabled"`
	GoogleSearchCX   string `env:"GOOGLE_SEARCH_ENGINE_ID" help:"${env} - Google Programmable Search engine ID"`
	AzureAIAPIKey    string `env:"AZURE_API_KEY" help:"${env} - API Key for Azure OpenAI. If none is provided, OpenAI support is disabled"`
	AzureEndpoint    string `env:"AZURE_ENDPOINT" help:"${env} - Azure OpenAI Endpoint"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY" help:"${env} - API Key for OpenAI. If none is provided, OpenAI support is disabled"`
	OpenAIModel      string `env:"OPENAI_MODEL" help:"${env} - OpenAI Model type. Default is gpt-3.5-turbo-instruct" default:"gpt-3.5-turbo-instruct"`
	EnablePrometheus bool   `env:"ENABLE_PROMETHEUS" help:"${env} - Enable Prometheus metrics" default:"true"`
}

func main() {
	// Variable Setup //
	///////////////////
	_ = godotenv.Load()
	kong.Parse(&cli,
		kong.Name(AppName),
		kong.Description(AppDesc),
	)
	log.Logger = log.Output(os.Stderr).With().Caller().Logger() // Logger
	cfg := config.InitConfig(cli.ConfigPath)                    // Config

	// Cache Store //
	////////////////
	// A broken or unprovisioned store degrades the resolver to cache-miss
	// behavior rather than stopping the service.
	var st *store.Store
	st, err := store.New(cli.DBPath)
	if err != nil {
		log.Error().Err(err).Str("path", cli.DBPath).Msg("Could not open merchant cache store, continuing without cache")
		st = nil
	}

	// Collaborator Setup //
	///////////////////////
	// Google Programmable Search
	var searcher resolver.Searcher
	if cli.GoogleAPIKey != "" && cli.GoogleSearchCX != "" {
		sc, err := search.New(context.Background(), cli.GoogleAPIKey, cli.GoogleSearchCX, cfg.Search.ResultCount, cfg.SearchTimeout())
		if err != nil {
			log.Error().Err(err).Msg("Could not initialize search client, search enrichment disabled")
		} else {
			searcher = sc
		}
	} else {
		log.Info().Msg("No Google Search API Key provided, search enrichment disabled")
	}

	// OpenAI / Azure OpenAI
	var oai *openai.Client
	if cli.OpenAIAPIKey != "" {
		oai = openai.NewClient(cli.OpenAIAPIKey)
	}
	if cli.AzureAIAPIKey != "" {
		if cli.AzureEndpoint == "" {
			log.Error().Msg("Azure Endpoint is required if Azure API Key is provided")
		} else {
			oai = openai.NewClientWithConfig(openai.DefaultAzureConfig(cli.AzureAIAPIKey, cli.AzureEndpoint))
		}
	}
	var gen resolver.Generator
	if oai != nil {
		gen = llm.New(oai, cli.OpenAIModel, cfg.Model.CallBudget, 30*time.Second)
	} else {
		log.Info().Msg("No OpenAI API Key provided, language-model fallback disabled")
	}

	// Resolver //
	/////////////
	rv := resolver.New(resolver.Config{
		Enabled:            cfg.ResolverEnabled(),
		MinNameLength:      cfg.Resolver.MinNameLength,
		SearchEnabled:      cfg.SearchEnabled(),
		ModelEnabled:       cfg.ModelEnabled(),
		DailyCap:           cfg.Resolver.DailyCap,
		AcceptThreshold:    cfg.Resolver.AcceptThreshold,
		ModelMinConfidence: cfg.Model.MinConfidence,
		Bypasses:           bypasses(cfg),
	}, taxonomy(cfg), storeOrNil(st), searcher, gen)

	srv := &server{
		resolver:        rv,
		defaultCategory: cfg.Resolver.DefaultCategory,
	}

	// Start //
	///////////
	log.Logger.Info().
		Str("version", version.Info()).
		Msg("Starting " + AppName)

	// Create a channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	mux := http.DefaultServeMux
	srv.routes(mux)
	mux.HandleFunc("/health", prom.HealthHandler)

	// Metric Registration
	if cli.EnablePrometheus {
		prometheus.MustRegister(
			versioncollector.NewCollector(metricNamespace),
			prom.NewExporter(metricNamespace, st),
		)
		mux.Handle(cli.MetricsPath, promhttp.Handler())

		if cli.MetricsPath != "/" && cli.MetricsPath != "" {
			landingConfig := web.LandingConfig{
				Name:        AppName,
				Description: AppDesc,
				Version:     version.Print(AppName),
				Links: []web.LandingLinks{
					{
						Address: cli.MetricsPath,
						Text:    "Metrics",
					},
					{
						Address: "/health",
						Text:    "Health",
					},
				},
			}
			landingPage, err := web.NewLandingPage(landingConfig)
			if err != nil {
				log.Fatal().Err(err).Msg("")
			}
			mux.Handle("/", landingPage)
		}
	}

	log.Info().Msgf("Starting HTTP server on listen address :%s and metric path %s", cli.ListenAddress, cli.MetricsPath)

	httpServer := &http.Server{
		Addr:         ":" + cli.ListenAddress,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Listen and serve
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Error starting HTTP server")
		}
	}()

	// Handle shutdown
	sig := <-sigChan
	log.Info().Msgf("Received signal %s. Exiting...", sig)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down HTTP server...")
	_ = httpServer.Shutdown(ctx)
	if st != nil {
		_ = st.Close()
	}
	log.Info().Msg("Shutdown Complete; Exiting...")
}

// taxonomy builds the resolver taxonomy from the config table, falling back
// to the built-in one when the file omits it.
func taxonomy(cfg *config.MasterConfig) *resolver.Taxonomy {
	if len(cfg.Taxonomy) == 0 {
		return resolver.DefaultTaxonomy()
	}
	categories := make([]resolver.Category, 0, len(cfg.Taxonomy))
	for _, entry := range cfg.Taxonomy {
		categories = append(categories, resolver.Category{
			Name:           entry.Category,
			ID:             entry.CategoryID,
			Keywords:       entry.Keywords,
			BaseConfidence: entry.BaseConfidence,
		})
	}
	return resolver.NewTaxonomy(categories)
}

func bypasses(cfg *config.MasterConfig) []resolver.Bypass {
	out := make([]resolver.Bypass, 0, len(cfg.Bypasses))
	for _, b := range cfg.Bypasses {
		out = append(out, resolver.Bypass{
			Match:        b.Match,
			CategoryName: b.Category,
			CategoryID:   b.CategoryID,
		})
	}
	return out
}

// storeOrNil keeps a typed-nil *store.Store from sneaking into the Store
// interface.
func storeOrNil(st *store.Store) resolver.Store {
	if st == nil {
		return nil
	}
	return st
}
