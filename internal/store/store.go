package store

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"machine-manual-backend/internal/apperr"
	"machine-manual-backend/internal/db"
	"machine-manual-backend/internal/model"
	"machine-manual-backend/internal/slug"
)

// MachineStore persists machines and owns public slug assignment.
type MachineStore interface {
	CreateMachine(ctx context.Context, in NewMachine) (*model.Machine, error)
	GetMachine(ctx context.Context, id int64) (*model.Machine, error)
	GetMachineBySlug(ctx context.Context, publicSlug string) (*model.Machine, error)
	ListMachines(ctx context.Context, page Page) ([]model.Machine, error)
	SearchMachines(ctx context.Context, term string) ([]model.Machine, error)
	UpdateMachine(ctx context.Context, id int64, upd MachineUpdate) (*model.Machine, error)
	DeleteMachine(ctx context.Context, id int64) error
	SlugExists(ctx context.Context, publicSlug string) (bool, error)
}

// IssueStore persists issues and their updates.
type IssueStore interface {
	CreateIssue(ctx context.Context, issue *model.Issue) error
	GetIssue(ctx context.Context, id int64) (*model.Issue, error)
	ListMachineIssues(ctx context.Context, machineID int64, status *model.IssueStatus) ([]model.Issue, error)
	ListOpenIssues(ctx context.Context, machineID int64) ([]model.Issue, error)
	ListClosedIssues(ctx context.Context, machineID int64, page Page) ([]model.Issue, error)
	UpdateIssueStatus(ctx context.Context, id int64, status model.IssueStatus, closedAt *time.Time) (*model.Issue, error)

	CreateIssueUpdate(ctx context.Context, upd *model.IssueUpdate) error
	GetIssueUpdate(ctx context.Context, id int64) (*model.IssueUpdate, error)
	ListIssueUpdates(ctx context.Context, issueID int64) ([]model.IssueUpdate, error)
}

// MaintenanceStore persists maintenance records.
type MaintenanceStore interface {
	CreateMaintenance(ctx context.Context, rec *model.Maintenance) error
	GetMaintenance(ctx context.Context, id int64) (*model.Maintenance, error)
	ListMaintenance(ctx context.Context, machineID int64, limit int) ([]model.Maintenance, error)
	ListAllMaintenance(ctx context.Context, machineID int64) ([]model.Maintenance, error)
}

// EmployeeStore persists employees. Rows are never removed, only deactivated.
type EmployeeStore interface {
	CreateEmployee(ctx context.Context, in NewEmployee) (*model.Employee, error)
	GetEmployee(ctx context.Context, id int64) (*model.Employee, error)
	GetEmployeeByEmail(ctx context.Context, email string) (*model.Employee, error)
	GetEmployeeByCode(ctx context.Context, code string) (*model.Employee, error)
	ListEmployees(ctx context.Context, page Page, filter EmployeeFilter) ([]model.Employee, error)
	SearchEmployees(ctx context.Context, term string, filter EmployeeFilter) ([]model.Employee, error)
	UpdateEmployee(ctx context.Context, id int64, upd EmployeeUpdate) (*model.Employee, error)
	SetEmployeeStatus(ctx context.Context, id int64, status model.EmployeeStatus) (*model.Employee, error)
	DeactivateEmployee(ctx context.Context, id int64) (*model.Employee, error)
	ReactivateEmployee(ctx context.Context, id int64) (*model.Employee, error)
}

// Store defines the interface for all database operations.
type Store interface {
	MachineStore
	IssueStore
	MaintenanceStore
	EmployeeStore
	Ping(ctx context.Context) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db       *gorm.DB
	nextSlug slug.Source
	now      func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, nextSlug: slug.Generate, now: utcNow}
}

// Timestamps are stored in UTC. SQLite keeps time.Time as offset-suffixed
// text, so ORDER BY only follows the instant when every row shares a zone.
func utcNow() time.Time { return time.Now().UTC() }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Ping reports a storage health failure as a Database error.
func (s *gormStore) Ping(ctx context.Context) error {
	if err := db.Ping(ctx, s.db); err != nil {
		return apperr.Database("database is not reachable", err)
	}
	return nil
}

// wrapDB classifies a gorm error. Missing rows become NotFound for the named
// entity, unique index violations become Conflict and anything else is a
// Database failure.
func wrapDB(err error, entity, action string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(entity + " already exists")
	default:
		return apperr.Database("failed to "+action, err)
	}
}

func (s *gormStore) exists(ctx context.Context, table any, query string, args ...any) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(table).Where(query, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// likePattern builds a case-insensitive substring pattern. "!" escapes the
// LIKE wildcards so user input matches literally on every supported driver.
func likePattern(term string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

// searchClause ORs a LOWER(col) LIKE comparison over columns.
func searchClause(columns ...string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = "LOWER(" + c + ") LIKE @term ESCAPE '!'"
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func clampPage(p Page) Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = 100
	}
	return p
}

// optional normalizes an optional text field: empty means NULL.
func optional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func required(field string, v string) (string, error) {
	t := strings.TrimSpace(v)
	if t == "" {
		return "", apperr.Validation("%s is required", field).WithDetail("field", field)
	}
	return t, nil
}
