package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"machine-manual-backend/internal/apperr"
	"machine-manual-backend/internal/lifecycle"
	"machine-manual-backend/internal/model"
	"machine-manual-backend/internal/parse"
)

type issueRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	ReporterID  *int64  `json:"reporter_id"`
	ReportedBy  string  `json:"reported_by"`
	ReportedAt  string  `json:"reported_at"`
	Status      string  `json:"status"`
	MachineID   *int64  `json:"machine_id"` // Ignored; the path wins
}

type statusRequest struct {
	Status string `json:"status"`
}

type issueUpdateRequest struct {
	Note         string `json:"note"`
	AuthorID     *int64 `json:"author_id"`
	Author       string `json:"author"`
	StatusChange string `json:"status_change"`
}

type issueUpdateResponse struct {
	Update *model.IssueUpdate `json:"update"`
	Issue  *model.Issue       `json:"issue,omitempty"`
}

// timestamp parses an optional timestamp field, rendering a validation
// error naming the field when it is malformed.
func (h *Handler) timestamp(c *gin.Context, field, raw string) (*time.Time, bool) {
	t, err := parse.Timestamp(raw, time.Now())
	if err != nil {
		h.fail(c, apperr.Validation("invalid %s: %q", field, raw).WithDetail("field", field))
		return nil, false
	}
	return t, true
}

// ListMachineIssues handles GET /api/machines/:id/issues?status=.
func (h *Handler) ListMachineIssues(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var status *model.IssueStatus
	if v := c.Query("status"); v != "" {
		s, err := model.ParseIssueStatus(v)
		if err != nil {
			h.fail(c, apperr.Validation("%s", err.Error()).WithDetail("field", "status"))
			return
		}
		status = &s
	}
	if _, err := h.store.GetMachine(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	issues, err := h.store.ListMachineIssues(c.Request.Context(), id, status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(issues))
}

// CreateIssue handles POST /api/machines/:id/issues.
func (h *Handler) CreateIssue(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req issueRequest
	if !h.bind(c, &req) {
		return
	}
	reportedAt, ok := h.timestamp(c, "reported_at", req.ReportedAt)
	if !ok {
		return
	}

	issue, err := h.lifecycle.ReportIssue(c.Request.Context(), lifecycle.IssueReport{
		MachineID:   id,
		Title:       req.Title,
		Description: req.Description,
		ReporterID:  req.ReporterID,
		ReportedBy:  req.ReportedBy,
		ReportedAt:  reportedAt,
		Status:      model.IssueStatus(req.Status),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

// GetIssue handles GET /api/issues/:id.
func (h *Handler) GetIssue(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.query.IssueDetail(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SetIssueStatus handles POST /api/issues/:id/status.
func (h *Handler) SetIssueStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !h.bind(c, &req) {
		return
	}
	issue, err := h.lifecycle.SetStatus(c.Request.Context(), id, model.IssueStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// CloseIssue handles POST /api/issues/:id/close.
func (h *Handler) CloseIssue(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	issue, err := h.lifecycle.CloseIssue(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// AddIssueUpdate handles POST /api/issues/:id/updates. An empty
// status_change means the note leaves the status alone.
func (h *Handler) AddIssueUpdate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req issueUpdateRequest
	if !h.bind(c, &req) {
		return
	}
	note := lifecycle.UpdateNote{
		IssueID:  id,
		Note:     req.Note,
		AuthorID: req.AuthorID,
		Author:   req.Author,
	}
	if v := strings.TrimSpace(req.StatusChange); v != "" {
		s := model.IssueStatus(v)
		note.StatusChange = &s
	}

	upd, issue, err := h.lifecycle.AddUpdate(c.Request.Context(), note)
	if err != nil {
		if e, ok := apperr.As(err); ok && upd != nil {
			err = e.WithDetail("update_id", strconv.FormatInt(upd.ID, 10))
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, issueUpdateResponse{Update: upd, Issue: issue})
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
