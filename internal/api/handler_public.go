package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"machine-manual-backend/internal/apperr"
	"machine-manual-backend/internal/qr"
	"machine-manual-backend/internal/query"
	"machine-manual-backend/internal/slug"
)

type publicMachineResponse struct {
	*query.MachineView
	QRURL string `json:"qr_url"`
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.log.WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}

// Dashboard handles GET /api/dashboard?search=. Without a search term only
// the newest machines are listed.
func (h *Handler) Dashboard(c *gin.Context) {
	machines, err := h.query.Dashboard(c.Request.Context(), strings.TrimSpace(c.Query("search")), h.cfg.Pagination.DashboardLimit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, machines)
}

// PublicMachine handles GET /m/:slug, the page a machine's QR code opens.
func (h *Handler) PublicMachine(c *gin.Context) {
	publicSlug := c.Param("slug")
	if !slug.Valid(publicSlug) {
		h.fail(c, apperr.NotFound("machine"))
		return
	}
	view, err := h.query.PublicMachine(c.Request.Context(), publicSlug)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, publicMachineResponse{MachineView: view, QRURL: "/qr/" + publicSlug + ".png"})
}

// QRImage handles GET /qr/:slug.png, regenerating the image if it is missing.
// Without server.base_url the image is rendered for this request only.
func (h *Handler) QRImage(c *gin.Context) {
	publicSlug, ok := strings.CutSuffix(c.Param("file"), ".png")
	if !ok || !slug.Valid(publicSlug) {
		h.fail(c, apperr.NotFound("qr code"))
		return
	}
	if _, err := h.store.GetMachineBySlug(c.Request.Context(), publicSlug); err != nil {
		h.fail(c, err)
		return
	}
	if !h.persistQR() {
		png, err := h.qr.PNG(qr.URLFor(h.baseURL(c), publicSlug))
		if err != nil {
			h.fail(c, &apperr.Error{Code: apperr.CodeInternal, Message: "failed to render qr code", Cause: err})
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", png)
		return
	}
	path, err := h.qr.Ensure(h.baseURL(c), publicSlug)
	if err != nil {
		h.fail(c, &apperr.Error{Code: apperr.CodeInternal, Message: "failed to render qr code", Cause: err})
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.File(path)
}
