package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"prospect_backend/internal/prospects/domain"
	"prospect_backend/internal/prospects/importer"
	"prospect_backend/internal/prospects/repository"
	"prospect_backend/internal/prospects/transport"
	"prospect_backend/platform/apperr"
	"prospect_backend/platform/httpkit"
)

// Importer runs one import call.
type Importer interface {
	ImportPayload(ctx context.Context, callerID string, payload []byte) (importer.Result, error)
}

// Reader loads stored prospects and their children.
type Reader interface {
	GetProspect(ctx context.Context, tenantID, id string) (domain.Prospect, error)
	ListContacts(ctx context.Context, tenantID, prospectID string) ([]domain.Contact, error)
	ListSignals(ctx context.Context, tenantID, prospectID string) ([]domain.Signal, error)
	ListAuditRecords(ctx context.Context, tenantID, prospectID string) ([]domain.AuditRecord, error)
}

// RecalculationQueue enqueues a scoring run.
type RecalculationQueue interface {
	EnqueueRecalculation(ctx context.Context) (string, error)
}

// Handler handles HTTP requests for prospects.
type Handler struct {
	importer Importer
	reader   Reader
	queue    RecalculationQueue
}

const (
	msgBodyTooLarge  = "request body too large"
	msgUnreadable    = "unable to read request body"
	msgNotFound      = "prospect not found"
	msgQueueDisabled = "recalculation queue not configured"
)

// New creates a prospects handler. queue may be nil when Redis is not configured.
func New(imp Importer, reader Reader, queue RecalculationQueue) *Handler {
	return &Handler{importer: imp, reader: reader, queue: queue}
}

// Import ingests a JSON object, JSON array or delimited text payload.
// POST /api/v1/prospects/import
func (h *Handler) Import(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpkit.Error(c, http.StatusRequestEntityTooLarge, msgBodyTooLarge, map[string]int64{"limit": tooLarge.Limit})
			return
		}
		httpkit.Error(c, http.StatusBadRequest, msgUnreadable, nil)
		return
	}

	result, err := h.importer.ImportPayload(c.Request.Context(), identity.CallerID(), payload)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ImportResponse{OK: true, Count: result.Count})
}

// Get returns one prospect with its contacts, signals and audit trail.
// GET /api/v1/prospects/:tenantId/:id
func (h *Handler) Get(c *gin.Context) {
	if httpkit.MustGetIdentity(c) == nil {
		return
	}
	tenantID := strings.TrimSpace(c.Param("tenantId"))
	id := strings.TrimSpace(c.Param("id"))
	if tenantID == "" || id == "" {
		httpkit.Error(c, http.StatusBadRequest, "tenantId and id are required", nil)
		return
	}

	ctx := c.Request.Context()
	p, err := h.reader.GetProspect(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		err = apperr.NotFound(msgNotFound)
	}
	if httpkit.HandleError(c, err) {
		return
	}

	contacts, err := h.reader.ListContacts(ctx, tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	signals, err := h.reader.ListSignals(ctx, tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	audit, err := h.reader.ListAuditRecords(ctx, tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToProspectResponse(p, contacts, signals, audit))
}

// Recalculate enqueues a scoring run outside the daily schedule.
// POST /api/v1/admin/prospects/recalculate
func (h *Handler) Recalculate(c *gin.Context) {
	if h.queue == nil {
		httpkit.HandleError(c, apperr.Unavailable(msgQueueDisabled))
		return
	}

	taskID, err := h.queue.EnqueueRecalculation(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindUnavailable, "enqueue recalculation", err))
		return
	}
	httpkit.JSON(c, http.StatusAccepted, transport.RecalculateResponse{Queued: true, TaskID: taskID})
}
