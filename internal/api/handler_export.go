package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"machine-manual-backend/internal/export"
)

const csvContentType = "text/csv; charset=utf-8"

// ExportIssues handles GET /api/machines/:id/export/issues.
func (h *Handler) ExportIssues(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	m, err := h.store.GetMachine(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	issues, err := h.store.ListMachineIssues(ctx, id, nil)
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteIssues(&buf, issues); err != nil {
		h.fail(c, err)
		return
	}
	sendCSV(c, export.IssuesFilename(m.Name, time.Now()), buf.Bytes())
}

// ExportMaintenance handles GET /api/machines/:id/export/maintenance.
func (h *Handler) ExportMaintenance(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	m, err := h.store.GetMachine(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	recs, err := h.store.ListAllMaintenance(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteMaintenance(&buf, recs); err != nil {
		h.fail(c, err)
		return
	}
	sendCSV(c, export.MaintenanceFilename(m.Name, time.Now()), buf.Bytes())
}

func sendCSV(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, csvContentType, body)
}
