// Package app assembles the edge functions from configuration and infrastructure
// clients. cmd/edge-server and the end-to-end tests share it.
package app

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"maritime-edge/internal/common/config"
	"maritime-edge/internal/common/edge"
	"maritime-edge/internal/common/logger"
	"maritime-edge/internal/common/openai"
	"maritime-edge/internal/common/ratelimit"
	"maritime-edge/internal/common/repository"
	"maritime-edge/internal/common/starfix"
	"maritime-edge/internal/common/terrastar"
	"maritime-edge/pkg/registry"

	iono "maritime-edge/internal/functions/gnss/ionosphere-processor"
	sfs "maritime-edge/internal/functions/inspection/starfix-sync"
	gst "maritime-edge/internal/functions/planning/generate-scheduled-tasks"
	gar "maritime-edge/internal/functions/reporting/generate-report"
	de "maritime-edge/internal/functions/training/drill-evaluation"
	te "maritime-edge/internal/functions/training/training-explanation"
	tq "maritime-edge/internal/functions/training/training-quiz"
)

// Deps are the long-lived clients built by the caller. Only Repo is required.
type Deps struct {
	Repo    repository.Repository
	Indexer gar.Indexer
	Mailer  gar.Mailer
	Alerts  iono.AlertPublisher
	// Redis backs the limiter when rate_limit.backend is redis.
	Redis redis.Scripter
	// Docs supplies descriptive catalog fields.
	Docs *registry.FunctionRegistry
}

// Functions builds a mount for every enabled function and the matching catalog.
func Functions(cfg *config.Config, deps Deps, log logger.Logger) ([]edge.Mount, *registry.Catalog) {
	catalog := registry.NewCatalog(cfg.App.Version, time.Now().UTC().Format(time.RFC3339))
	var mounts []edge.Mount

	register := func(fn edge.Function) {
		name := fn.Name()
		if !config.IsFunctionEnabled(cfg, name) {
			log.Info("function disabled", map[string]interface{}{"function": name})
			return
		}
		fc := config.GetFunctionConfig(cfg, name)
		timeout := config.GetDuration(fc.Timeout)

		mounts = append(mounts, edge.Mount{
			Function: fn,
			Limiter:  newLimiter(cfg, fc, deps.Redis),
			Timeout:  timeout,
		})
		catalog.Register(registry.Function{
			Name:           name,
			Path:           edge.FunctionsPrefix + "/" + name,
			Method:         http.MethodPost,
			RequiredFields: fn.RequiredFields(),
			Timeout:        timeout.String(),
			RateLimit:      fc.RateLimit,
		}, deps.Docs)
		log.Info("function registered", map[string]interface{}{
			"function":  name,
			"timeoutMs": timeout.Milliseconds(),
		})
	}

	llm := openai.NewClient(openai.Config{
		BaseURL:    cfg.APIs.OpenAI.BaseURL,
		APIKey:     cfg.APIs.OpenAI.APIKey,
		Model:      cfg.APIs.OpenAI.Model,
		Timeout:    config.GetDuration(cfg.APIs.OpenAI.Timeout),
		MaxRetries: cfg.APIs.OpenAI.MaxRetries,
	})

	register(de.NewHandler(de.LoadConfig(), llm, deps.Repo, log))

	reportCfg := gar.LoadConfig()
	reportCfg.Index = cfg.Reports.Index
	register(gar.NewHandler(reportCfg, llm, deps.Repo, deps.Indexer, deps.Mailer, log))

	register(gst.NewHandler(gst.LoadConfig(), llm, deps.Repo, log))
	register(tq.NewHandler(tq.LoadConfig(), llm, deps.Repo, log))
	register(te.NewHandler(te.LoadConfig(), llm, deps.Repo, log))

	if config.IsFunctionEnabled(cfg, config.FunctionIonosphereProcessor) {
		source := terrastar.NewClient(terrastar.Config{
			URL:     cfg.APIs.Terrastar.URL,
			APIKey:  cfg.APIs.Terrastar.APIKey,
			Timeout: config.GetDuration(cfg.APIs.Terrastar.Timeout),
		})
		ionoCfg := iono.LoadConfig()
		ionoCfg.StormKpThreshold = cfg.GNSS.StormKpThreshold
		register(iono.NewHandler(ionoCfg, source, deps.Repo, deps.Alerts, log))
	}

	if config.IsFunctionEnabled(cfg, config.FunctionStarfixSync) {
		source := starfix.NewClient(starfix.Config{
			URL:            cfg.APIs.StarFix.URL,
			APIKey:         cfg.APIs.StarFix.APIKey,
			OrganizationID: cfg.APIs.StarFix.OrganizationID,
			Timeout:        config.GetDuration(cfg.APIs.StarFix.Timeout),
		})
		register(sfs.NewHandler(source, deps.Repo, deps.Alerts, log))
	}

	return mounts, catalog
}

func newLimiter(cfg *config.Config, fc config.FunctionConfig, rdb redis.Scripter) ratelimit.Limiter {
	window := config.GetDuration(fc.RateLimitWindow)
	switch cfg.RateLimit.Backend {
	case config.RateLimitBackendNone:
		return nil
	case config.RateLimitBackendRedis:
		if rdb == nil {
			return ratelimit.NewMemoryLimiter(fc.RateLimit, window)
		}
		return ratelimit.NewRedisLimiter(rdb, fc.RateLimit, window, nil)
	default:
		return ratelimit.NewMemoryLimiter(fc.RateLimit, window)
	}
}
