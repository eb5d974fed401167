package store

import (
	"context"
	"net/mail"
	"strings"

	"machine-manual-backend/internal/apperr"
	"machine-manual-backend/internal/model"
)

var employeeSearchColumns = []string{"first_name", "last_name", "email", "employee_id", "department", "position"}

// CreateEmployee rejects an email or employee code already in use before
// inserting. New employees are active.
func (s *gormStore) CreateEmployee(ctx context.Context, in NewEmployee) (*model.Employee, error) {
	e := model.Employee{
		Phone:      optional(in.Phone),
		Department: optional(in.Department),
		Position:   optional(in.Position),
		Status:     model.EmployeeStatusActive,
	}
	var err error
	if e.FirstName, err = required("first_name", in.FirstName); err != nil {
		return nil, err
	}
	if e.LastName, err = required("last_name", in.LastName); err != nil {
		return nil, err
	}
	if e.Email, err = normalizeEmail(in.Email); err != nil {
		return nil, err
	}
	if e.EmployeeCode, err = required("employee_id", in.EmployeeCode); err != nil {
		return nil, err
	}

	if err := s.checkEmployeeKeysFree(ctx, &e.Email, &e.EmployeeCode, 0); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, wrapDB(err, "employee", "create employee")
	}
	return &e, nil
}

func (s *gormStore) GetEmployee(ctx context.Context, id int64) (*model.Employee, error) {
	var e model.Employee
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, wrapDB(err, "employee", "load employee")
	}
	return &e, nil
}

func (s *gormStore) GetEmployeeByEmail(ctx context.Context, email string) (*model.Employee, error) {
	var e model.Employee
	if err := s.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).First(&e).Error; err != nil {
		return nil, wrapDB(err, "employee", "load employee")
	}
	return &e, nil
}

// GetEmployeeByCode looks an employee up by the business employee_id.
func (s *gormStore) GetEmployeeByCode(ctx context.Context, code string) (*model.Employee, error) {
	var e model.Employee
	if err := s.db.WithContext(ctx).Where("employee_id = ?", strings.TrimSpace(code)).First(&e).Error; err != nil {
		return nil, wrapDB(err, "employee", "load employee")
	}
	return &e, nil
}

// ListEmployees returns a page of employees, newest first. Inactive
// employees are skipped unless the filter asks for them.
func (s *gormStore) ListEmployees(ctx context.Context, page Page, filter EmployeeFilter) ([]model.Employee, error) {
	page = clampPage(page)
	q := s.db.WithContext(ctx)
	if !filter.IncludeInactive {
		q = q.Where("status = ?", model.EmployeeStatusActive)
	}
	var employees []model.Employee
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(page.Offset).Limit(page.Limit).
		Find(&employees).Error
	if err != nil {
		return nil, wrapDB(err, "employee", "list employees")
	}
	return employees, nil
}

// SearchEmployees matches term case-insensitively against names, email,
// employee code, department and position.
func (s *gormStore) SearchEmployees(ctx context.Context, term string, filter EmployeeFilter) ([]model.Employee, error) {
	q := s.db.WithContext(ctx).
		Where(searchClause(employeeSearchColumns...), map[string]any{"term": likePattern(term)})
	if !filter.IncludeInactive {
		q = q.Where("status = ?", model.EmployeeStatusActive)
	}
	var employees []model.Employee
	if err := q.Order("created_at DESC").Order("id DESC").Find(&employees).Error; err != nil {
		return nil, wrapDB(err, "employee", "search employees")
	}
	return employees, nil
}

// UpdateEmployee applies the non-nil fields of upd and refreshes updated_at.
// A changed email or employee code is checked against every other row.
func (s *gormStore) UpdateEmployee(ctx context.Context, id int64, upd EmployeeUpdate) (*model.Employee, error) {
	e, err := s.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	for _, f := range []struct {
		column string
		value  *string
	}{
		{"first_name", upd.FirstName},
		{"last_name", upd.LastName},
		{"employee_id", upd.EmployeeCode},
	} {
		if f.value == nil {
			continue
		}
		v, err := required(f.column, *f.value)
		if err != nil {
			return nil, err
		}
		changes[f.column] = v
	}
	var email *string
	if upd.Email != nil {
		v, err := normalizeEmail(*upd.Email)
		if err != nil {
			return nil, err
		}
		email = &v
		changes["email"] = v
	}
	var code *string
	if v, ok := changes["employee_id"].(string); ok {
		code = &v
	}
	if upd.Phone != nil {
		changes["phone"] = optional(upd.Phone)
	}
	if upd.Department != nil {
		changes["department"] = optional(upd.Department)
	}
	if upd.Position != nil {
		changes["position"] = optional(upd.Position)
	}

	if err := s.checkEmployeeKeysFree(ctx, email, code, e.ID); err != nil {
		return nil, err
	}

	changes["updated_at"] = s.now()
	if err := s.db.WithContext(ctx).Model(e).Updates(changes).Error; err != nil {
		return nil, wrapDB(err, "employee", "update employee")
	}
	return s.GetEmployee(ctx, id)
}

// SetEmployeeStatus deactivates or reactivates an employee. Only status and
// updated_at change.
func (s *gormStore) SetEmployeeStatus(ctx context.Context, id int64, status model.EmployeeStatus) (*model.Employee, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid employee status: %q", status).WithDetail("field", "status")
	}
	e, err := s.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	changes := map[string]any{"status": status, "updated_at": s.now()}
	if err := s.db.WithContext(ctx).Model(e).Updates(changes).Error; err != nil {
		return nil, wrapDB(err, "employee", "update employee status")
	}
	return s.GetEmployee(ctx, id)
}

// DeactivateEmployee soft-deletes an employee. The row is kept.
func (s *gormStore) DeactivateEmployee(ctx context.Context, id int64) (*model.Employee, error) {
	return s.SetEmployeeStatus(ctx, id, model.EmployeeStatusInactive)
}

// ReactivateEmployee undoes DeactivateEmployee.
func (s *gormStore) ReactivateEmployee(ctx context.Context, id int64) (*model.Employee, error) {
	return s.SetEmployeeStatus(ctx, id, model.EmployeeStatusActive)
}

// checkEmployeeKeysFree rejects an email or employee code held by an
// employee other than selfID. Nil values are not checked.
func (s *gormStore) checkEmployeeKeysFree(ctx context.Context, email, code *string, selfID int64) error {
	if email != nil {
		taken, err := s.exists(ctx, &model.Employee{}, "email = ? AND id <> ?", *email, selfID)
		if err != nil {
			return apperr.Database("failed to check email", err)
		}
		if taken {
			return apperr.Conflict("Email already exists").WithDetail("field", "email")
		}
	}
	if code != nil {
		taken, err := s.exists(ctx, &model.Employee{}, "employee_id = ? AND id <> ?", *code, selfID)
		if err != nil {
			return apperr.Database("failed to check employee id", err)
		}
		if taken {
			return apperr.Conflict("Employee ID already exists").WithDetail("field", "employee_id")
		}
	}
	return nil
}

func normalizeEmail(v string) (string, error) {
	email, err := required("email", v)
	if err != nil {
		return "", err
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Validation("invalid email address: %q", email).WithDetail("field", "email")
	}
	return email, nil
}
