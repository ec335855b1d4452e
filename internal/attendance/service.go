package attendance

import (
	"context"
	"errors"
)

// Store is the persistence surface the marking service needs.
type Store interface {
	Upsert(ctx context.Context, rec Record) error
	UpsertAll(ctx context.Context, studentIDs []int64, scheduleID int64, date string, status Status) error
}

// Service handles teacher-driven marking.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Mark records one student's status for a class occurrence.
func (s *Service) Mark(ctx context.Context, studentID, scheduleID int64, date string, status Status) error {
	if studentID == 0 || scheduleID == 0 || date == "" {
		return errors.New("student, schedule and date required")
	}
	if !status.Valid() {
		return errors.New("unknown attendance status")
	}
	return s.store.Upsert(ctx, Record{
		StudentID:  studentID,
		ScheduleID: &scheduleID,
		Date:       date,
		Status:     status,
	})
}

// MarkAll records one status for every listed student of a class.
func (s *Service) MarkAll(ctx context.Context, studentIDs []int64, scheduleID int64, date string, status Status) error {
	if len(studentIDs) == 0 || scheduleID == 0 || date == "" {
		return errors.New("students, schedule and date required")
	}
	if !status.Valid() {
		return errors.New("unknown attendance status")
	}
	return s.store.UpsertAll(ctx, studentIDs, scheduleID, date, status)
}
