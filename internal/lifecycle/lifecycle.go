// Package lifecycle governs issue status transitions, status-changing issue
// updates and the capture of reporter and author names.
package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"machine-manual-backend/internal/apperr"
	"machine-manual-backend/internal/model"
	"machine-manual-backend/internal/store"
)

// Store is the subset of the entity store the engine works with.
type Store interface {
	store.IssueStore
	store.MaintenanceStore
	GetEmployee(ctx context.Context, id int64) (*model.Employee, error)
}

// Engine applies issue lifecycle rules on top of a Store.
type Engine struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(st Store, log logrus.FieldLogger) *Engine {
	return &Engine{store: st, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// IssueReport describes a newly reported issue. The reporter is either an
// employee (ReporterID) or a free-text name (ReportedBy); the employee wins
// when both are given.
type IssueReport struct {
	MachineID   int64
	Title       string
	Description *string
	ReporterID  *int64
	ReportedBy  string
	ReportedAt  *time.Time
	Status      model.IssueStatus
}

// ReportIssue creates an issue. The reporter name is resolved now and stored
// as plain text; later employee edits do not change it.
func (e *Engine) ReportIssue(ctx context.Context, r IssueReport) (*model.Issue, error) {
	reporter, err := e.resolveName(ctx, r.ReporterID, r.ReportedBy, "reported_by")
	if err != nil {
		return nil, err
	}
	issue := &model.Issue{
		MachineID:   r.MachineID,
		Title:       r.Title,
		Description: r.Description,
		ReportedBy:  reporter,
		Status:      r.Status,
	}
	if r.ReportedAt != nil {
		issue.ReportedAt = *r.ReportedAt
	}
	if err := e.store.CreateIssue(ctx, issue); err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"issue_id": issue.ID, "machine_id": issue.MachineID}).Info("issue reported")
	return issue, nil
}

// SetStatus moves an issue to status. Any state may follow any other.
// Entering closed stamps closed_at with the current time, never earlier than
// reported_at; leaving closed keeps the previous stamp.
func (e *Engine) SetStatus(ctx context.Context, issueID int64, status model.IssueStatus) (*model.Issue, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid issue status: %q", status).WithDetail("field", "status")
	}
	issue, err := e.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}

	var closedAt *time.Time
	if status == model.IssueStatusClosed {
		t := e.now()
		if t.Before(issue.ReportedAt) {
			t = issue.ReportedAt
		}
		closedAt = &t
	}

	updated, err := e.store.UpdateIssueStatus(ctx, issueID, status, closedAt)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{
		"issue_id": issueID,
		"from":     issue.Status,
		"to":       status,
		"reopened": issue.Status == model.IssueStatusClosed && status.IsOpen(),
	}).Info("issue status changed")
	return updated, nil
}

// CloseIssue is SetStatus(closed).
func (e *Engine) CloseIssue(ctx context.Context, issueID int64) (*model.Issue, error) {
	return e.SetStatus(ctx, issueID, model.IssueStatusClosed)
}

// UpdateNote describes a note appended to an issue. The author follows the
// same rules as IssueReport's reporter.
type UpdateNote struct {
	IssueID      int64
	Note         string
	AuthorID     *int64
	Author       string
	StatusChange *model.IssueStatus
}

// AddUpdate records a note and, when it carries a status change, applies it
// to the issue. The two steps commit independently: if the status change
// fails the note stays recorded, and both the note and the error are
// returned. The returned issue is nil unless a status change was applied.
func (e *Engine) AddUpdate(ctx context.Context, n UpdateNote) (*model.IssueUpdate, *model.Issue, error) {
	if n.StatusChange != nil && !n.StatusChange.Valid() {
		return nil, nil, apperr.Validation("invalid status_change: %q", *n.StatusChange).WithDetail("field", "status_change")
	}
	author, err := e.resolveName(ctx, n.AuthorID, n.Author, "author")
	if err != nil {
		return nil, nil, err
	}

	upd := &model.IssueUpdate{
		IssueID:      n.IssueID,
		Note:         n.Note,
		Author:       author,
		StatusChange: n.StatusChange,
	}
	if err := e.store.CreateIssueUpdate(ctx, upd); err != nil {
		return nil, nil, err
	}
	if upd.StatusChange == nil {
		return upd, nil, nil
	}

	issue, err := e.SetStatus(ctx, n.IssueID, *upd.StatusChange)
	if err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"issue_id":  n.IssueID,
			"update_id": upd.ID,
		}).Error("issue update recorded but status change failed")
		return upd, nil, err
	}
	return upd, issue, nil
}

// MaintenanceEntry describes service performed on a machine.
type MaintenanceEntry struct {
	MachineID   int64
	Title       string
	Description *string
	PerformedBy string
	PerformedAt *time.Time
	NextDueAt   *time.Time
}

// RecordMaintenance stores a maintenance record. PerformedAt defaults to now;
// NextDueAt is stored as given.
func (e *Engine) RecordMaintenance(ctx context.Context, m MaintenanceEntry) (*model.Maintenance, error) {
	rec := &model.Maintenance{
		MachineID:   m.MachineID,
		Title:       m.Title,
		Description: m.Description,
		PerformedBy: m.PerformedBy,
		NextDueAt:   m.NextDueAt,
	}
	if m.PerformedAt != nil {
		rec.PerformedAt = *m.PerformedAt
	} else {
		rec.PerformedAt = e.now()
	}
	if err := e.store.CreateMaintenance(ctx, rec); err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"maintenance_id": rec.ID, "machine_id": rec.MachineID}).Info("maintenance recorded")
	return rec, nil
}

// resolveName returns the full name of the referenced employee, or the
// free-text fallback. Deactivated employees cannot be named.
func (e *Engine) resolveName(ctx context.Context, employeeID *int64, fallback, field string) (string, error) {
	if employeeID != nil {
		emp, err := e.store.GetEmployee(ctx, *employeeID)
		if err != nil {
			return "", err
		}
		if !emp.IsActive() {
			return "", apperr.Validation("employee %d is inactive", emp.ID).WithDetail("field", field)
		}
		return emp.FullName(), nil
	}
	name := strings.TrimSpace(fallback)
	if name == "" {
		return "", apperr.Validation("%s is required", field).WithDetail("field", field)
	}
	return name, nil
}
