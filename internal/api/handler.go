package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"machine-manual-backend/config"
	"machine-manual-backend/internal/apperr"
	"machine-manual-backend/internal/lifecycle"
	"machine-manual-backend/internal/mw"
	"machine-manual-backend/internal/parse"
	"machine-manual-backend/internal/qr"
	"machine-manual-backend/internal/query"
	"machine-manual-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	lifecycle *lifecycle.Engine
	query     *query.Service
	qr        *qr.Generator
	cfg       *config.Config
	log       logrus.FieldLogger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, gen *qr.Generator, cfg *config.Config, log logrus.FieldLogger) *Handler {
	return &Handler{
		store:     s,
		lifecycle: lifecycle.NewEngine(s, log),
		query:     query.NewService(s),
		qr:        gen,
		cfg:       cfg,
		log:       log,
	}
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   string            `json:"error"`
	Code    apperr.Code       `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// fail renders err. Anything that is not an *apperr.Error is an internal
// error and its message is not exposed.
func (h *Handler) fail(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.New(apperr.CodeInternal, "internal server error")
	}
	status := e.HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("request_id", mw.GetRequestID(c)).Error("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: e.Message, Code: e.Code, Details: e.Details})
}

// badRequest renders a BAD_REQUEST error for an unparseable input.
func (h *Handler) badRequest(c *gin.Context, message string) {
	h.fail(c, apperr.BadRequest(message))
}

func (h *Handler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := parse.ID(c.Param(name))
	if err != nil {
		h.badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// page reads skip and limit, clamping limit to the configured maximum.
func (h *Handler) page(c *gin.Context) (store.Page, bool) {
	p := store.Page{Limit: h.cfg.Pagination.DefaultLimit}
	if v := c.Query("skip"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil || skip < 0 {
			h.badRequest(c, "invalid skip")
			return p, false
		}
		p.Offset = skip
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			h.badRequest(c, "invalid limit")
			return p, false
		}
		p.Limit = limit
	}
	if p.Limit > h.cfg.Pagination.MaxLimit {
		p.Limit = h.cfg.Pagination.MaxLimit
	}
	return p, true
}

// bind decodes a JSON body, rendering BAD_REQUEST on failure.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, apperr.BadRequest("invalid request body").WithDetail("reason", err.Error()))
		return false
	}
	return true
}

// persistQR reports whether QR images may be stored on disk. Without a
// configured base URL the encoded address comes from request headers, so
// images are rendered per request instead.
func (h *Handler) persistQR() bool {
	return h.cfg.Server.BaseURL != ""
}

// baseURL is the configured public address, or the one the request came in on.
// X-Forwarded-Proto is only honoured behind configured trusted proxies.
func (h *Handler) baseURL(c *gin.Context) string {
	if h.cfg.Server.BaseURL != "" {
		return h.cfg.Server.BaseURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if len(h.cfg.Server.TrustedProxies) > 0 {
		if proto := c.GetHeader("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}
	}
	return scheme + "://" + c.Request.Host
}
