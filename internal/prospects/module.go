// Package prospects is the prospect ingestion and scoring bounded context.
// It owns the import entry point, owner assignment and the daily rescoring run.
package prospects

import (
	apphttp "prospect_backend/internal/http"
	"prospect_backend/internal/prospects/handler"
	"prospect_backend/internal/prospects/importer"
	"prospect_backend/internal/prospects/repository"
	"prospect_backend/platform/config"
	"prospect_backend/platform/httpkit"
	"prospect_backend/platform/logger"

	"golang.org/x/time/rate"
)

// importRate bounds import calls per client IP.
const (
	importRate  = rate.Limit(2)
	importBurst = 10
)

// Module is the prospects bounded context module implementing http.Module.
type Module struct {
	handler      *handler.Handler
	importer     *importer.Service
	repo         *repository.Repository
	maxBodyBytes int64
	limiter      *httpkit.IPRateLimiter
}

// NewModule wires the HTTP surface over an already built importer and repository.
// queue may be nil when Redis is not configured.
func NewModule(imp *importer.Service, repo *repository.Repository, queue handler.RecalculationQueue, cfg config.ImportConfig, log *logger.Logger) *Module {
	return &Module{
		handler:      handler.New(imp, repo, queue),
		importer:     imp,
		repo:         repo,
		maxBodyBytes: cfg.GetImportMaxBodyBytes(),
		limiter:      httpkit.NewIPRateLimiter(importRate, importBurst, log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "prospects"
}

// Importer returns the import orchestrator.
func (m *Module) Importer() *importer.Service {
	return m.importer
}

// RegisterRoutes mounts prospect routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/prospects")
	group.POST("/import", m.limiter.RateLimit(), httpkit.BodyLimit(m.maxBodyBytes), m.handler.Import)
	group.GET("/:tenantId/:id", m.handler.Get)

	ctx.Admin.POST("/prospects/recalculate", m.handler.Recalculate)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
