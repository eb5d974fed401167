package store

import (
	"context"

	"machine-manual-backend/internal/model"
)

// CreateMaintenance inserts a maintenance record for an existing machine. A
// zero PerformedAt defaults to now.
func (s *gormStore) CreateMaintenance(ctx context.Context, rec *model.Maintenance) error {
	title, err := required("title", rec.Title)
	if err != nil {
		return err
	}
	performer, err := required("performed_by", rec.PerformedBy)
	if err != nil {
		return err
	}
	rec.Title = title
	rec.PerformedBy = performer
	rec.Description = optional(rec.Description)
	if rec.PerformedAt.IsZero() {
		rec.PerformedAt = s.now()
	}
	rec.PerformedAt = rec.PerformedAt.UTC()
	rec.NextDueAt = utcPtr(rec.NextDueAt)

	if _, err := s.GetMachine(ctx, rec.MachineID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return wrapDB(err, "maintenance record", "create maintenance record")
	}
	return nil
}

func (s *gormStore) GetMaintenance(ctx context.Context, id int64) (*model.Maintenance, error) {
	var rec model.Maintenance
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, wrapDB(err, "maintenance record", "load maintenance record")
	}
	return &rec, nil
}

// ListMaintenance returns the latest limit records of a machine.
func (s *gormStore) ListMaintenance(ctx context.Context, machineID int64, limit int) ([]model.Maintenance, error) {
	if limit <= 0 {
		limit = 5
	}
	var recs []model.Maintenance
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("performed_at DESC").Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, wrapDB(err, "maintenance record", "list maintenance records")
	}
	return recs, nil
}

// ListAllMaintenance returns every record of a machine, latest first.
func (s *gormStore) ListAllMaintenance(ctx context.Context, machineID int64) ([]model.Maintenance, error) {
	var recs []model.Maintenance
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("performed_at DESC").Order("id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, wrapDB(err, "maintenance record", "list maintenance records")
	}
	return recs, nil
}
