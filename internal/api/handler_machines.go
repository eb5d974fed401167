package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"machine-manual-backend/internal/model"
	"machine-manual-backend/internal/store"
)

type machineRequest struct {
	Name         *string `json:"name"`
	SerialNumber *string `json:"serial_number"`
	Location     *string `json:"location"`
	Description  *string `json:"description"`
}

// ListMachines handles GET /api/machines. With ?search= it returns every
// match; otherwise a skip/limit page. Each machine carries its open issues.
func (h *Handler) ListMachines(c *gin.Context) {
	if term := c.Query("search"); term != "" {
		machines, err := h.query.SearchWithOpenIssues(c.Request.Context(), term)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, machines)
		return
	}

	page, ok := h.page(c)
	if !ok {
		return
	}
	machines, err := h.query.ListWithOpenIssues(c.Request.Context(), page)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, machines)
}

// CreateMachine handles POST /api/machines and writes the machine's QR code.
func (h *Handler) CreateMachine(c *gin.Context) {
	var req machineRequest
	if !h.bind(c, &req) {
		return
	}
	in := store.NewMachine{
		SerialNumber: req.SerialNumber,
		Location:     req.Location,
		Description:  req.Description,
	}
	if req.Name != nil {
		in.Name = *req.Name
	}

	m, err := h.store.CreateMachine(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	// The image is regenerated on first request if this fails.
	if h.persistQR() {
		if err := h.qr.Write(h.baseURL(c), m.PublicSlug); err != nil {
			h.log.WithError(err).WithField("slug", m.PublicSlug).Warn("failed to write qr image")
		}
	}
	c.JSON(http.StatusCreated, m)
}

// GetMachine handles GET /api/machines/:id.
func (h *Handler) GetMachine(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.query.MachineOverview(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateMachine handles PATCH /api/machines/:id. Omitted fields are kept.
func (h *Handler) UpdateMachine(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req machineRequest
	if !h.bind(c, &req) {
		return
	}
	m, err := h.store.UpdateMachine(c.Request.Context(), id, store.MachineUpdate{
		Name:         req.Name,
		SerialNumber: req.SerialNumber,
		Location:     req.Location,
		Description:  req.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// DeleteMachine handles DELETE /api/machines/:id, removing its issues,
// updates and maintenance records with it.
func (h *Handler) DeleteMachine(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	m, err := h.store.GetMachine(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.store.DeleteMachine(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.removeQR(m)
	c.Status(http.StatusNoContent)
}

func (h *Handler) removeQR(m *model.Machine) {
	if err := h.qr.Remove(m.PublicSlug); err != nil {
		h.log.WithError(err).WithField("slug", m.PublicSlug).Warn("failed to remove qr image")
	}
}
