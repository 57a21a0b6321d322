// Chatbot HTTP handlers.
//
// This file exposes the chatbot endpoints:
//   - POST /chatbot/query    (answer or store one free-text request)
//   - GET  /chatbot/health   (generator and database availability)
//
// Handlers are transport-thin: they validate input, read the tenant set by
// middleware.Tenant, call the ChatbotService and serialize its Reply.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a reply to a
// successful create was stored for (tenant, route, key), the handler returns
// that stored reply and sets `Idempotency-Replayed: true`. Reads are never
// stored: asking the same question later should see fresh data.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-arth-chatbot/internal/domain"
	"github.com/tbourn/go-arth-chatbot/internal/http/middleware"
	"github.com/tbourn/go-arth-chatbot/internal/services"
)

//
// Service contracts (context-aware)
//

// ChatbotService answers chatbot queries. Process never fails; every
// outcome is a Reply.
type ChatbotService interface {
	CheckQuery(text string) error
	Process(ctx context.Context, text string, tenant int64) services.Reply
	Health(ctx context.Context) services.Health
}

// RecordService lists a tenant's stored records.
type RecordService interface {
	ListFinance(ctx context.Context, tenant int64, page, pageSize int) ([]domain.Finance, int64, error)
	ListTasks(ctx context.Context, tenant int64, page, pageSize int) ([]domain.Task, int64, error)
	FinanceStats(ctx context.Context, tenant int64) (int64, *time.Time, error)
	TasksStats(ctx context.Context, tenant int64) (int64, *time.Time, error)
}

// IdempotencyStore stores replies for safe retries. A nil store disables
// idempotency.
type IdempotencyStore interface {
	Get(ctx context.Context, tenant int64, scope, key string, now time.Time) (services.StoredReply, bool, error)
	Save(ctx context.Context, tenant int64, scope, key string, r services.StoredReply) error
}

//
// Handler wiring
//

// Handlers groups the chatbot and record endpoints.
type Handlers struct {
	bot     ChatbotService
	records RecordService
	idem    IdempotencyStore

	// MaxQueryRunes is reported in validation errors.
	MaxQueryRunes int
	now           func() time.Time
}

// New constructs Handlers bound to the given services.
func New(bot ChatbotService, records RecordService, idem IdempotencyStore) *Handlers {
	return &Handlers{bot: bot, records: records, idem: idem, MaxQueryRunes: 500, now: time.Now}
}

// tenant returns the id set by middleware.Tenant, failing with 401 when it
// is missing.
func tenant(c *gin.Context) (int64, bool) {
	id, ok := middleware.TenantFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing or invalid "+middleware.HeaderUserID)
	}
	return id, ok
}

//
// DTOs
//

// QueryRequest is the JSON payload of a chatbot query.
type QueryRequest struct {
	// Query is the user's question or create request.
	Query string `json:"query" binding:"required,min=3,max=500" example:"How much did I spend on food this month?"`
}

// QueryResponse is the chatbot's reply.
type QueryResponse struct {
	Message   string    `json:"message" example:"📊 Financial Summary:\n\nTotal Amount: ₹1250.50"`
	Success   bool      `json:"success" example:"true"`
	Timestamp time.Time `json:"timestamp" example:"2026-10-18T10:00:00Z"`
	QueryType string    `json:"query_type" example:"FINANCE_READ"`
}

// HealthResponse reports chatbot dependencies.
type HealthResponse struct {
	Status                string    `json:"status" example:"healthy"`
	SQLGeneratorAvailable bool      `json:"sql_generator_available" example:"true"`
	DatabaseAvailable     bool      `json:"database_available" example:"true"`
	Timestamp             time.Time `json:"timestamp" example:"2026-10-18T10:00:00Z"`
}

//
// Handlers
//

// Query godoc
// @ID          chatbotQuery
// @Summary     Ask the chatbot
// @Description Classifies the query. Create requests store a finance record or task; read requests are
// @Description answered from the caller's own records through generated, validated SQL.
// @Description Supports idempotent retries of creates via the Idempotency-Key header.
// @Tags        Chatbot
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  int     true   "Authenticated user id"                    example(42)
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"         example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.QueryRequest  true  "Chatbot query"
//
// @Success     200  {object}  handlers.QueryResponse
// @Header      200  {string}  Idempotency-Replayed  "true when a stored reply was returned"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing X-User-ID"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Router      /chatbot/query [post]
func (h *Handlers) Query(c *gin.Context) {
	ctx := c.Request.Context()
	uid, okTenant := tenant(c)
	if !okTenant {
		return
	}

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failQuery(c, err)
		return
	}
	text := strings.TrimSpace(req.Query)
	if err := h.bot.CheckQuery(text); err != nil {
		h.failQuery(c, err)
		return
	}

	scope := middleware.IdempotencyScope(c)
	idemKey, _ := middleware.GetIdempotencyKey(c)

	// Idempotency (replay path).
	if idemKey != "" && h.idem != nil {
		prev, found, err := h.idem.Get(ctx, uid, scope, idemKey, h.now().UTC())
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency read failed")
		}
		if found {
			c.Header("Idempotency-Replayed", "true")
			c.Data(prev.Status, "application/json; charset=utf-8", []byte(prev.Body))
			return
		}
	}

	rep := h.bot.Process(ctx, text, uid)
	resp := QueryResponse{
		Message:   rep.Message,
		Success:   rep.Success,
		Timestamp: h.now().UTC(),
		QueryType: rep.QueryType,
	}

	// Idempotency (store path) – best effort, successful creates only.
	if idemKey != "" && h.idem != nil && rep.Outcome == services.OutcomeCreated {
		if body, err := json.Marshal(resp); err == nil {
			if err := h.idem.Save(ctx, uid, scope, idemKey, services.StoredReply{Status: http.StatusOK, Body: string(body)}); err != nil {
				middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency write failed")
			}
		}
	}

	ok(c, http.StatusOK, resp)
}

// failQuery maps binding and length errors to stable codes.
func (h *Handlers) failQuery(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "min":
			err = services.ErrEmptyQuery
		case "max":
			err = services.ErrQueryTooLong
		}
	}
	switch {
	case errors.Is(err, services.ErrQueryTooLong):
		fail(c, http.StatusBadRequest, ErrCodeQueryTooLong, fmt.Sprintf("query must be at most %d characters", h.MaxQueryRunes))
	case errors.Is(err, services.ErrEmptyQuery):
		fail(c, http.StatusBadRequest, ErrCodeQueryTooShort, fmt.Sprintf("query must be at least %d characters", services.MinQueryRunes))
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body must be {\"query\": \"...\"} with 3 to 500 characters")
	}
}

// Health godoc
// @ID          chatbotHealth
// @Summary     Chatbot dependency health
// @Description Probes the database and the SQL generator. Always 200; inspect the flags.
// @Tags        Chatbot
// @Produce     json
// @Param       X-User-ID  header  int  true  "Authenticated user id"  example(42)
// @Success     200  {object}  handlers.HealthResponse
// @Router      /chatbot/health [get]
func (h *Handlers) Health(c *gin.Context) {
	hs := h.bot.Health(c.Request.Context())
	ok(c, http.StatusOK, HealthResponse{
		Status:                hs.Status,
		SQLGeneratorAvailable: hs.GeneratorAvailable,
		DatabaseAvailable:     hs.DatabaseAvailable,
		Timestamp:             h.now().UTC(),
	})
}
