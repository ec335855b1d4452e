package absence

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"attendboard/internal/attendance"
	"attendboard/internal/roster"
	"attendboard/internal/schedule"
)

// ErrScheduleNotFound reports a request whose direct schedule reference no
// longer resolves. Logged by callers; it never blocks the status transition.
var ErrScheduleNotFound = errors.New("schedule not found for request")

var reconcileOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "attendboard_absence_reconcile_total",
	Help: "Attendance reconciliations by resolution path.",
}, []string{"path"})

// ScheduleFinder locates schedule entries for the resolver chain.
type ScheduleFinder interface {
	ByID(ctx context.Context, id int64) (*schedule.Entry, error)
	ByDateAndGroup(ctx context.Context, date, group string) ([]schedule.Entry, error)
	ByDateSubjectTime(ctx context.Context, date, subject, timeRange string) ([]schedule.Entry, error)
	ByGroupSubjectTime(ctx context.Context, group, subject, timeRange string) ([]schedule.Entry, error)
}

// AttendanceStore mutates attendance rows on behalf of the reconciler.
type AttendanceStore interface {
	Find(ctx context.Context, studentID int64, date string, scheduleID *int64) (*attendance.Record, error)
	Insert(ctx context.Context, rec attendance.Record) error
	SetExcused(ctx context.Context, id, requestID int64) error
	RevertByRequest(ctx context.Context, requestID int64) (int64, error)
}

// StudentFinder resolves a request's student to their group.
type StudentFinder interface {
	StudentByID(ctx context.Context, id int64) (*roster.Student, error)
}

// Reconciler derives attendance records from absence-request decisions.
//
// Approval walks an ordered fallback chain per absent class: direct schedule
// reference, then every class of the student's group on each extracted date,
// then a subject/time match recovered from the description, and finally a
// record with no schedule at all so the absence is still on the books.
// Rejection reverts everything linked to the request. Both directions are
// idempotent, so approved and rejected can be flipped back and forth.
type Reconciler struct {
	schedules ScheduleFinder
	records   AttendanceStore
	students  StudentFinder
}

// NewReconciler wires the reconciler to its stores.
func NewReconciler(schedules ScheduleFinder, records AttendanceStore, students StudentFinder) *Reconciler {
	return &Reconciler{schedules: schedules, records: records, students: students}
}

// Approve materializes excused absences for an approved request.
func (r *Reconciler) Approve(ctx context.Context, req Request) error {
	if req.ScheduleID != nil {
		return r.approveDirect(ctx, req)
	}
	return r.approvePeriod(ctx, req)
}

// approveDirect handles a request carrying a persisted schedule reference.
func (r *Reconciler) approveDirect(ctx context.Context, req Request) error {
	entry, err := r.schedules.ByID(ctx, *req.ScheduleID)
	if err != nil {
		return err
	}
	if entry == nil {
		reconcileOutcomes.WithLabelValues("dangling_ref").Inc()
		return fmt.Errorf("%w: request %d references schedule %d", ErrScheduleNotFound, req.ID, *req.ScheduleID)
	}
	if err := r.excuse(ctx, req, &entry.ID, entry.Date); err != nil {
		return err
	}
	reconcileOutcomes.WithLabelValues("direct").Inc()
	return nil
}

// approvePeriod handles a request without a schedule reference: a multi-date
// period, a single unsynced class, or a legacy pre-date-format request.
func (r *Reconciler) approvePeriod(ctx context.Context, req Request) error {
	dates := ExtractDates(req.Description)
	if len(dates) == 0 {
		return r.approveLegacy(ctx, req)
	}

	student, err := r.students.StudentByID(ctx, req.StudentID)
	if err != nil {
		return err
	}
	if student == nil {
		log.Printf("reconcile: student %d not found for request %d", req.StudentID, req.ID)
		return nil
	}

	// Per-date failures are logged and skipped; one unresolved class must
	// not sink the rest of a multi-date request.
	for _, date := range dates {
		if err := r.approveDate(ctx, req, student, date); err != nil {
			log.Printf("reconcile: request %d date %s: %v", req.ID, date, err)
		}
	}
	return nil
}

// approveDate runs the fallback chain for one absent date.
func (r *Reconciler) approveDate(ctx context.Context, req Request, student *roster.Student, date string) error {
	day, err := r.schedules.ByDateAndGroup(ctx, date, student.Group)
	if err != nil {
		return err
	}
	if len(day) > 0 {
		for _, entry := range day {
			if err := r.excuse(ctx, req, &entry.ID, date); err != nil {
				log.Printf("reconcile: request %d schedule %d: %v", req.ID, entry.ID, err)
			}
		}
		reconcileOutcomes.WithLabelValues("group_day").Inc()
		return nil
	}

	// The group has nothing persisted for that date. Try to recover the
	// specific class from the description prefix.
	if subject, timeRange, ok := suffixSubjectTime(req.Description); ok {
		matches, err := r.schedules.ByDateSubjectTime(ctx, date, subject, timeRange)
		if err != nil {
			log.Printf("reconcile: request %d subject/time lookup: %v", req.ID, err)
		} else if len(matches) > 0 {
			if err := r.excuse(ctx, req, &matches[0].ID, date); err != nil {
				return err
			}
			reconcileOutcomes.WithLabelValues("subject_time").Inc()
			return nil
		}
	}

	// Last resort: record the absence without a schedule identity.
	if err := r.excuse(ctx, req, nil, date); err != nil {
		return err
	}
	reconcileOutcomes.WithLabelValues("no_schedule").Inc()
	return nil
}

// approveLegacy serves the oldest description format, which encoded only
// "[Subject (Time)]". The first schedule of the student's group matching the
// subject substring at that exact time wins; no match is log-only.
func (r *Reconciler) approveLegacy(ctx context.Context, req Request) error {
	identity, ok := ParseLegacyDescription(req.Description)
	if !ok {
		log.Printf("reconcile: request %d has no recoverable class identity", req.ID)
		return nil
	}

	student, err := r.students.StudentByID(ctx, req.StudentID)
	if err != nil {
		return err
	}
	if student == nil {
		log.Printf("reconcile: student %d not found for request %d", req.StudentID, req.ID)
		return nil
	}

	matches, err := r.schedules.ByGroupSubjectTime(ctx, student.Group, identity.Subject, identity.Time)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		log.Printf("reconcile: no schedule matches %q (%s) for request %d", identity.Subject, identity.Time, req.ID)
		reconcileOutcomes.WithLabelValues("legacy_miss").Inc()
		return nil
	}

	if err := r.excuse(ctx, req, &matches[0].ID, matches[0].Date); err != nil {
		return err
	}
	reconcileOutcomes.WithLabelValues("legacy").Inc()
	return nil
}

// excuse upserts one ExcusedAbsent record for (student, date, schedule),
// updating in place when the row already exists so re-approval never
// duplicates.
func (r *Reconciler) excuse(ctx context.Context, req Request, scheduleID *int64, date string) error {
	existing, err := r.records.Find(ctx, req.StudentID, date, scheduleID)
	if err != nil {
		return err
	}
	if existing != nil {
		return r.records.SetExcused(ctx, existing.ID, req.ID)
	}
	requestID := req.ID
	return r.records.Insert(ctx, attendance.Record{
		StudentID:        req.StudentID,
		ScheduleID:       scheduleID,
		Date:             date,
		Status:           attendance.ExcusedAbsent,
		AbsenceRequestID: &requestID,
	})
}

// Reject reverts every record linked to the request to an unexcused absence
// and clears the link, including rows created via the no-schedule fallback.
func (r *Reconciler) Reject(ctx context.Context, requestID int64) error {
	reverted, err := r.records.RevertByRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if reverted > 0 {
		log.Printf("reconcile: request %d rejected, %d records reverted", requestID, reverted)
	}
	reconcileOutcomes.WithLabelValues("rejected").Inc()
	return nil
}
