package absence

import (
	"context"
	"errors"
	"fmt"
	"log"

	"attendboard/internal/schedule"
)

// RequestStore is the persistence surface of the request lifecycle.
type RequestStore interface {
	Insert(ctx context.Context, reqs []Request) ([]Request, error)
	ByID(ctx context.Context, id int64) (*Request, error)
	List(ctx context.Context, status RequestStatus) ([]Request, error)
	UpdateStatus(ctx context.Context, id int64, status RequestStatus) error
	UpdateReason(ctx context.Context, id int64, reasonType, description string) error
}

// Service drives the absence-request lifecycle: submission by students and
// decisions by staff, the latter reconciled into attendance records.
type Service struct {
	store      RequestStore
	reconciler *Reconciler
}

// NewService wires the service.
func NewService(store RequestStore, reconciler *Reconciler) *Service {
	return &Service{store: store, reconciler: reconciler}
}

// Submit creates one request per selected class. A class not yet synced to
// the store (addressed by its natural key) is stored with a NULL schedule
// reference and its identity preserved in the description prefix; a pending
// ref must never leak into the store as a foreign key.
func (s *Service) Submit(ctx context.Context, studentID int64, classes []schedule.Ref, reasonType, comment string) ([]Request, error) {
	if studentID == 0 || len(classes) == 0 {
		return nil, errors.New("student and classes required")
	}
	if err := validateReason(reasonType, comment); err != nil {
		return nil, err
	}

	reqs := make([]Request, 0, len(classes))
	for _, ref := range classes {
		req := Request{
			StudentID:   studentID,
			ReasonType:  reasonType,
			Description: comment,
			Status:      StatusPending,
		}
		if id, ok := ref.Persisted(); ok {
			req.ScheduleID = &id
		} else {
			key, _ := ref.Pending()
			req.Description = BuildClassDescription(key.Date, key.Subject, key.Time, comment)
		}
		reqs = append(reqs, req)
	}

	return s.store.Insert(ctx, reqs)
}

// SubmitPeriod creates a single request covering several calendar dates.
func (s *Service) SubmitPeriod(ctx context.Context, studentID int64, dates []string, reasonType, comment string) (*Request, error) {
	if studentID == 0 || len(dates) == 0 {
		return nil, errors.New("student and dates required")
	}
	if err := validateReason(reasonType, comment); err != nil {
		return nil, err
	}

	inserted, err := s.store.Insert(ctx, []Request{{
		StudentID:   studentID,
		ReasonType:  reasonType,
		Description: BuildPeriodDescription(dates, comment),
		Status:      StatusPending,
	}})
	if err != nil {
		return nil, err
	}
	return &inserted[0], nil
}

// SetStatus transitions a request and reconciles attendance. Allowed moves:
// pending to approved or rejected, and approved and rejected into each
// other. Per-class reconciliation failures are logged without blocking the
// transition itself; partial success beats all-or-nothing for multi-date
// requests.
func (s *Service) SetStatus(ctx context.Context, requestID int64, newStatus RequestStatus) (*Request, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("unknown status %q", newStatus)
	}

	req, err := s.store.ByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errors.New("заявка не найдена")
	}
	if req.Status == newStatus {
		return req, nil
	}
	if newStatus == StatusPending && req.Status != StatusPending {
		// Not reachable from the dashboard; resets the decision only.
		if err := s.store.UpdateStatus(ctx, requestID, newStatus); err != nil {
			return nil, err
		}
		req.Status = newStatus
		return req, nil
	}

	if err := s.store.UpdateStatus(ctx, requestID, newStatus); err != nil {
		return nil, err
	}
	req.Status = newStatus

	switch newStatus {
	case StatusApproved:
		if err := s.reconciler.Approve(ctx, *req); err != nil {
			log.Printf("absence: approval of request %d reconciled with errors: %v", requestID, err)
		}
	case StatusRejected:
		if err := s.reconciler.Reject(ctx, requestID); err != nil {
			log.Printf("absence: rejection of request %d reconciled with errors: %v", requestID, err)
		}
	}

	return req, nil
}

// EditReason updates the justification of a request.
func (s *Service) EditReason(ctx context.Context, requestID int64, reasonType, description string) error {
	if _, ok := ReasonLabels[reasonType]; !ok {
		return fmt.Errorf("unknown reason type %q", reasonType)
	}
	return s.store.UpdateReason(ctx, requestID, reasonType, description)
}

// List returns requests, optionally filtered by status ("" for all).
func (s *Service) List(ctx context.Context, status RequestStatus) ([]Request, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	return s.store.List(ctx, status)
}

func validateReason(reasonType, comment string) error {
	if _, ok := ReasonLabels[reasonType]; !ok {
		return fmt.Errorf("unknown reason type %q", reasonType)
	}
	if reasonType == "other" && comment == "" {
		return errors.New("reason 'other' requires a comment")
	}
	return nil
}
