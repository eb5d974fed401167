package store

import (
	"context"

	"gorm.io/gorm"

	"machine-manual-backend/internal/apperr"
	"machine-manual-backend/internal/model"
	"machine-manual-backend/internal/slug"
)

var machineSearchColumns = []string{"name", "serial_number", "location"}

// CreateMachine validates the input, assigns a fresh public slug and inserts
// the machine.
func (s *gormStore) CreateMachine(ctx context.Context, in NewMachine) (*model.Machine, error) {
	name, err := required("name", in.Name)
	if err != nil {
		return nil, err
	}
	m := model.Machine{
		Name:         name,
		SerialNumber: optional(in.SerialNumber),
		Location:     optional(in.Location),
		Description:  optional(in.Description),
	}
	if err := s.checkSerialFree(ctx, m.SerialNumber, 0); err != nil {
		return nil, err
	}

	publicSlug, err := slug.Unique(ctx, s.SlugExists, s.nextSlug)
	if err != nil {
		return nil, apperr.Database("failed to assign public slug", err)
	}
	m.PublicSlug = publicSlug

	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, wrapDB(err, "machine", "create machine")
	}
	return &m, nil
}

// SlugExists reports whether any machine already holds publicSlug.
func (s *gormStore) SlugExists(ctx context.Context, publicSlug string) (bool, error) {
	return s.exists(ctx, &model.Machine{}, "public_slug = ?", publicSlug)
}

func (s *gormStore) GetMachine(ctx context.Context, id int64) (*model.Machine, error) {
	var m model.Machine
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, wrapDB(err, "machine", "load machine")
	}
	return &m, nil
}

func (s *gormStore) GetMachineBySlug(ctx context.Context, publicSlug string) (*model.Machine, error) {
	var m model.Machine
	if err := s.db.WithContext(ctx).Where("public_slug = ?", publicSlug).First(&m).Error; err != nil {
		return nil, wrapDB(err, "machine", "load machine")
	}
	return &m, nil
}

// ListMachines returns a page of machines, newest first.
func (s *gormStore) ListMachines(ctx context.Context, page Page) ([]model.Machine, error) {
	page = clampPage(page)
	var machines []model.Machine
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Offset(page.Offset).Limit(page.Limit).
		Find(&machines).Error
	if err != nil {
		return nil, wrapDB(err, "machine", "list machines")
	}
	return machines, nil
}

// SearchMachines matches term case-insensitively against name, serial number
// and location. The result is not paginated.
func (s *gormStore) SearchMachines(ctx context.Context, term string) ([]model.Machine, error) {
	var machines []model.Machine
	err := s.db.WithContext(ctx).
		Where(searchClause(machineSearchColumns...), map[string]any{"term": likePattern(term)}).
		Order("created_at DESC").Order("id DESC").
		Find(&machines).Error
	if err != nil {
		return nil, wrapDB(err, "machine", "search machines")
	}
	return machines, nil
}

// UpdateMachine applies the non-nil fields of upd and refreshes updated_at.
// The public slug is never changed.
func (s *gormStore) UpdateMachine(ctx context.Context, id int64, upd MachineUpdate) (*model.Machine, error) {
	m, err := s.GetMachine(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if upd.Name != nil {
		name, err := required("name", *upd.Name)
		if err != nil {
			return nil, err
		}
		changes["name"] = name
	}
	if upd.SerialNumber != nil {
		serial := optional(upd.SerialNumber)
		if err := s.checkSerialFree(ctx, serial, m.ID); err != nil {
			return nil, err
		}
		changes["serial_number"] = serial
	}
	if upd.Location != nil {
		changes["location"] = optional(upd.Location)
	}
	if upd.Description != nil {
		changes["description"] = optional(upd.Description)
	}
	changes["updated_at"] = s.now()

	if err := s.db.WithContext(ctx).Model(m).Updates(changes).Error; err != nil {
		return nil, wrapDB(err, "machine", "update machine")
	}
	return s.GetMachine(ctx, id)
}

// DeleteMachine removes the machine together with its issues, their updates
// and its maintenance records.
func (s *gormStore) DeleteMachine(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Machine
		if err := tx.Select("id").First(&m, id).Error; err != nil {
			return wrapDB(err, "machine", "load machine")
		}

		var issueIDs []int64
		if err := tx.Model(&model.Issue{}).Where("machine_id = ?", id).Pluck("id", &issueIDs).Error; err != nil {
			return wrapDB(err, "issue", "collect machine issues")
		}
		if len(issueIDs) > 0 {
			if err := tx.Where("issue_id IN ?", issueIDs).Delete(&model.IssueUpdate{}).Error; err != nil {
				return wrapDB(err, "issue update", "delete issue updates")
			}
		}
		if err := tx.Where("machine_id = ?", id).Delete(&model.Issue{}).Error; err != nil {
			return wrapDB(err, "issue", "delete issues")
		}
		if err := tx.Where("machine_id = ?", id).Delete(&model.Maintenance{}).Error; err != nil {
			return wrapDB(err, "maintenance", "delete maintenance records")
		}
		if err := tx.Delete(&model.Machine{}, id).Error; err != nil {
			return wrapDB(err, "machine", "delete machine")
		}
		return nil
	})
}

// checkSerialFree rejects a serial number held by another machine. selfID
// excludes the machine being updated.
func (s *gormStore) checkSerialFree(ctx context.Context, serial *string, selfID int64) error {
	if serial == nil {
		return nil
	}
	taken, err := s.exists(ctx, &model.Machine{}, "serial_number = ? AND id <> ?", *serial, selfID)
	if err != nil {
		return apperr.Database("failed to check serial number", err)
	}
	if taken {
		return apperr.Conflict("Serial number already exists").WithDetail("field", "serial_number")
	}
	return nil
}
