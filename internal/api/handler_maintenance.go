package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"machine-manual-backend/internal/lifecycle"
	"machine-manual-backend/internal/model"
)

type maintenanceRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	PerformedBy string  `json:"performed_by"`
	PerformedAt string  `json:"performed_at"`
	NextDueAt   string  `json:"next_due_at"`
}

// ListMaintenance handles GET /api/machines/:id/maintenance. Without
// ?limit= the full history is returned.
func (h *Handler) ListMaintenance(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.badRequest(c, "invalid limit")
			return
		}
		limit = min(n, h.cfg.Pagination.MaxLimit)
	}
	if _, err := h.store.GetMachine(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}

	var (
		recs []model.Maintenance
		err  error
	)
	if limit > 0 {
		recs, err = h.store.ListMaintenance(c.Request.Context(), id, limit)
	} else {
		recs, err = h.store.ListAllMaintenance(c.Request.Context(), id)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(recs))
}

// CreateMaintenance handles POST /api/machines/:id/maintenance.
func (h *Handler) CreateMaintenance(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req maintenanceRequest
	if !h.bind(c, &req) {
		return
	}
	performedAt, ok := h.timestamp(c, "performed_at", req.PerformedAt)
	if !ok {
		return
	}
	nextDueAt, ok := h.timestamp(c, "next_due_at", req.NextDueAt)
	if !ok {
		return
	}

	rec, err := h.lifecycle.RecordMaintenance(c.Request.Context(), lifecycle.MaintenanceEntry{
		MachineID:   id,
		Title:       req.Title,
		Description: req.Description,
		PerformedBy: req.PerformedBy,
		PerformedAt: performedAt,
		NextDueAt:   nextDueAt,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}
