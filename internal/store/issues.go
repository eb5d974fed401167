package store

import (
	"context"
	"strings"
	"time"

	"machine-manual-backend/internal/apperr"
	"machine-manual-backend/internal/model"
)

// CreateIssue inserts an issue for an existing machine. A zero ReportedAt
// defaults to now and an empty Status to open.
func (s *gormStore) CreateIssue(ctx context.Context, issue *model.Issue) error {
	title, err := required("title", issue.Title)
	if err != nil {
		return err
	}
	reporter, err := required("reported_by", issue.ReportedBy)
	if err != nil {
		return err
	}
	if issue.Status == "" {
		issue.Status = model.IssueStatusOpen
	}
	if !issue.Status.Valid() {
		return apperr.Validation("invalid issue status: %q", issue.Status).WithDetail("field", "status")
	}
	if issue.ReportedAt.IsZero() {
		issue.ReportedAt = s.now()
	}
	issue.ReportedAt = issue.ReportedAt.UTC()
	issue.ClosedAt = utcPtr(issue.ClosedAt)
	if issue.Status == model.IssueStatusClosed && issue.ClosedAt == nil {
		closedAt := s.now()
		if closedAt.Before(issue.ReportedAt) {
			closedAt = issue.ReportedAt
		}
		issue.ClosedAt = &closedAt
	}
	issue.Title = title
	issue.ReportedBy = reporter
	issue.Description = optional(issue.Description)

	if _, err := s.GetMachine(ctx, issue.MachineID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(issue).Error; err != nil {
		return wrapDB(err, "issue", "create issue")
	}
	return nil
}

func (s *gormStore) GetIssue(ctx context.Context, id int64) (*model.Issue, error) {
	var issue model.Issue
	if err := s.db.WithContext(ctx).First(&issue, id).Error; err != nil {
		return nil, wrapDB(err, "issue", "load issue")
	}
	return &issue, nil
}

// ListMachineIssues returns a machine's issues newest-reported first,
// optionally restricted to one status.
func (s *gormStore) ListMachineIssues(ctx context.Context, machineID int64, status *model.IssueStatus) ([]model.Issue, error) {
	q := s.db.WithContext(ctx).Where("machine_id = ?", machineID)
	if status != nil {
		if !status.Valid() {
			return nil, apperr.Validation("invalid issue status: %q", *status).WithDetail("field", "status")
		}
		q = q.Where("status = ?", *status)
	}
	var issues []model.Issue
	if err := q.Order("reported_at DESC").Order("id DESC").Find(&issues).Error; err != nil {
		return nil, wrapDB(err, "issue", "list issues")
	}
	return issues, nil
}

// ListOpenIssues returns the open and in-progress issues of a machine,
// newest-reported first.
func (s *gormStore) ListOpenIssues(ctx context.Context, machineID int64) ([]model.Issue, error) {
	var issues []model.Issue
	err := s.db.WithContext(ctx).
		Where("machine_id = ? AND status IN ?", machineID, model.OpenIssueStatuses).
		Order("reported_at DESC").Order("id DESC").
		Find(&issues).Error
	if err != nil {
		return nil, wrapDB(err, "issue", "list open issues")
	}
	return issues, nil
}

// ListClosedIssues returns closed issues, most recently closed first.
func (s *gormStore) ListClosedIssues(ctx context.Context, machineID int64, page Page) ([]model.Issue, error) {
	if page.Limit <= 0 {
		page.Limit = 20
	}
	page = clampPage(page)
	var issues []model.Issue
	err := s.db.WithContext(ctx).
		Where("machine_id = ? AND status = ?", machineID, model.IssueStatusClosed).
		Order("closed_at DESC").Order("id DESC").
		Offset(page.Offset).Limit(page.Limit).
		Find(&issues).Error
	if err != nil {
		return nil, wrapDB(err, "issue", "list closed issues")
	}
	return issues, nil
}

// UpdateIssueStatus sets the status and, when closedAt is non-nil, the
// closed_at stamp. A nil closedAt leaves the existing stamp untouched.
func (s *gormStore) UpdateIssueStatus(ctx context.Context, id int64, status model.IssueStatus, closedAt *time.Time) (*model.Issue, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid issue status: %q", status).WithDetail("field", "status")
	}
	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	changes := map[string]any{"status": status}
	if closedAt != nil {
		changes["closed_at"] = closedAt.UTC()
	}
	if err := s.db.WithContext(ctx).Model(issue).Updates(changes).Error; err != nil {
		return nil, wrapDB(err, "issue", "update issue status")
	}
	return s.GetIssue(ctx, id)
}

// CreateIssueUpdate inserts a note on an existing issue. It does not apply
// StatusChange; that is the lifecycle engine's follow-up step.
func (s *gormStore) CreateIssueUpdate(ctx context.Context, upd *model.IssueUpdate) error {
	if strings.TrimSpace(upd.Note) == "" {
		return apperr.Validation("note is required").WithDetail("field", "note")
	}
	author, err := required("author", upd.Author)
	if err != nil {
		return err
	}
	if upd.StatusChange != nil && !upd.StatusChange.Valid() {
		return apperr.Validation("invalid status_change: %q", *upd.StatusChange).WithDetail("field", "status_change")
	}
	upd.Author = author

	if _, err := s.GetIssue(ctx, upd.IssueID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(upd).Error; err != nil {
		return wrapDB(err, "issue update", "create issue update")
	}
	return nil
}

func (s *gormStore) GetIssueUpdate(ctx context.Context, id int64) (*model.IssueUpdate, error) {
	var upd model.IssueUpdate
	if err := s.db.WithContext(ctx).First(&upd, id).Error; err != nil {
		return nil, wrapDB(err, "issue update", "load issue update")
	}
	return &upd, nil
}

// ListIssueUpdates returns the notes of an issue, newest first.
func (s *gormStore) ListIssueUpdates(ctx context.Context, issueID int64) ([]model.IssueUpdate, error) {
	var updates []model.IssueUpdate
	err := s.db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at DESC").Order("id DESC").
		Find(&updates).Error
	if err != nil {
		return nil, wrapDB(err, "issue update", "list issue updates")
	}
	return updates, nil
}
