// Package query composes entity store reads into the views shown on the
// dashboard, the machine pages and the public QR landing page.
package query

import (
	"context"

	"machine-manual-backend/internal/model"
	"machine-manual-backend/internal/store"
)

// MachineWithOpenIssues decorates a machine with its open and in-progress
// issues. The decoration is never persisted.
type MachineWithOpenIssues struct {
	model.Machine
	OpenIssues []model.Issue `json:"open_issues"`
}

// MachineView is the full picture of one machine.
type MachineView struct {
	Machine      model.Machine       `json:"machine"`
	OpenIssues   []model.Issue       `json:"open_issues"`
	ClosedIssues []model.Issue       `json:"closed_issues"`
	Maintenance  []model.Maintenance `json:"maintenance"`
}

// IssueView is an issue with its notes, newest first, and its machine.
type IssueView struct {
	Issue   model.Issue         `json:"issue"`
	Machine model.Machine       `json:"machine"`
	Updates []model.IssueUpdate `json:"updates"`
}

const (
	overviewClosedIssues = 10
	publicClosedIssues   = 5
	recentMaintenance    = 5
)

// Service builds read models.
type Service struct {
	store store.Store
}

// NewService creates a Service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// ListWithOpenIssues returns a page of machines, newest first, each with
// its open issues. Issues are fetched per machine; at the expected number of
// machines the extra queries do not matter, but this is the place to batch
// if that changes.
func (s *Service) ListWithOpenIssues(ctx context.Context, page store.Page) ([]MachineWithOpenIssues, error) {
	machines, err := s.store.ListMachines(ctx, page)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, machines)
}

// SearchWithOpenIssues is ListWithOpenIssues over every machine matching
// term. The result is not paginated.
func (s *Service) SearchWithOpenIssues(ctx context.Context, term string) ([]MachineWithOpenIssues, error) {
	machines, err := s.store.SearchMachines(ctx, term)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, machines)
}

// Dashboard returns the search result when term is non-empty and the first
// limit machines otherwise.
func (s *Service) Dashboard(ctx context.Context, term string, limit int) ([]MachineWithOpenIssues, error) {
	if term != "" {
		return s.SearchWithOpenIssues(ctx, term)
	}
	return s.ListWithOpenIssues(ctx, store.Page{Limit: limit})
}

func (s *Service) decorate(ctx context.Context, machines []model.Machine) ([]MachineWithOpenIssues, error) {
	out := make([]MachineWithOpenIssues, 0, len(machines))
	for _, m := range machines {
		open, err := s.store.ListOpenIssues(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, MachineWithOpenIssues{Machine: m, OpenIssues: nonNil(open)})
	}
	return out, nil
}

// MachineOverview is the internal machine page: open issues, the last ten
// closed issues and the latest maintenance records.
func (s *Service) MachineOverview(ctx context.Context, machineID int64) (*MachineView, error) {
	m, err := s.store.GetMachine(ctx, machineID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, m, overviewClosedIssues)
}

// PublicMachine is the page reached through a machine's QR code.
func (s *Service) PublicMachine(ctx context.Context, publicSlug string) (*MachineView, error) {
	m, err := s.store.GetMachineBySlug(ctx, publicSlug)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, m, publicClosedIssues)
}

func (s *Service) view(ctx context.Context, m *model.Machine, closedLimit int) (*MachineView, error) {
	open, err := s.store.ListOpenIssues(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	closed, err := s.store.ListClosedIssues(ctx, m.ID, store.Page{Limit: closedLimit})
	if err != nil {
		return nil, err
	}
	maintenance, err := s.store.ListMaintenance(ctx, m.ID, recentMaintenance)
	if err != nil {
		return nil, err
	}
	return &MachineView{
		Machine:      *m,
		OpenIssues:   nonNil(open),
		ClosedIssues: nonNil(closed),
		Maintenance:  nonNil(maintenance),
	}, nil
}

// IssueDetail returns an issue with its machine and notes.
func (s *Service) IssueDetail(ctx context.Context, issueID int64) (*IssueView, error) {
	issue, err := s.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	m, err := s.store.GetMachine(ctx, issue.MachineID)
	if err != nil {
		return nil, err
	}
	updates, err := s.store.ListIssueUpdates(ctx, issueID)
	if err != nil {
		return nil, err
	}
	return &IssueView{Issue: *issue, Machine: *m, Updates: nonNil(updates)}, nil
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
