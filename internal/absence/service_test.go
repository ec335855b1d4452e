package absence

import (
	"context"
	"strings"
	"testing"

	"attendboard/internal/schedule"
)

// memRequests is an in-memory RequestStore.
type memRequests struct {
	nextID int64
	reqs   []Request
}

func (m *memRequests) Insert(_ context.Context, reqs []Request) ([]Request, error) {
	out := make([]Request, 0, len(reqs))
	for _, req := range reqs {
		m.nextID++
		req.ID = m.nextID
		m.reqs = append(m.reqs, req)
		out = append(out, req)
	}
	return out, nil
}

func (m *memRequests) ByID(_ context.Context, id int64) (*Request, error) {
	for i := range m.reqs {
		if m.reqs[i].ID == id {
			req := m.reqs[i]
			return &req, nil
		}
	}
	return nil, nil
}

func (m *memRequests) List(_ context.Context, status RequestStatus) ([]Request, error) {
	if status == "" {
		return m.reqs, nil
	}
	var out []Request
	for _, req := range m.reqs {
		if req.Status == status {
			out = append(out, req)
		}
	}
	return out, nil
}

func (m *memRequests) UpdateStatus(_ context.Context, id int64, status RequestStatus) error {
	for i := range m.reqs {
		if m.reqs[i].ID == id {
			m.reqs[i].Status = status
			return nil
		}
	}
	return nil
}

func (m *memRequests) UpdateReason(_ context.Context, id int64, reasonType, description string) error {
	for i := range m.reqs {
		if m.reqs[i].ID == id {
			m.reqs[i].ReasonType = reasonType
			m.reqs[i].Description = description
			return nil
		}
	}
	return nil
}

func testService(entries []schedule.Entry) (*Service, *memRequests, *memRecords) {
	reconciler, records := testReconciler(entries)
	store := &memRequests{}
	return NewService(store, reconciler), store, records
}

func TestSubmitPersistedAndPendingRefs(t *testing.T) {
	svc, _, _ := testService(nil)

	classes := []schedule.Ref{
		schedule.PersistedRef(101),
		schedule.PendingRef(schedule.Key{
			Date:        "2025-12-23",
			Group:       "ИС-21",
			TeacherName: "Петров",
			Subject:     "Математика",
			Time:        "09:00-10:30",
		}),
	}
	reqs, err := svc.Submit(context.Background(), 7, classes, "medical", "болел")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("got %d requests, want 2", len(reqs))
	}

	persisted, pending := reqs[0], reqs[1]
	if persisted.ScheduleID == nil || *persisted.ScheduleID != 101 {
		t.Fatalf("persisted ref not stored: %+v", persisted)
	}
	if persisted.Description != "болел" {
		t.Fatalf("persisted description: %q", persisted.Description)
	}

	if pending.ScheduleID != nil {
		t.Fatalf("pending ref leaked a schedule id: %+v", pending)
	}
	identity, ok := ParseClassIdentity(pending.Description)
	if !ok || identity.Date != "2025-12-23" || identity.Subject != "Математика" || identity.Time != "09:00-10:30" {
		t.Fatalf("pending description not recoverable: %q -> %+v", pending.Description, identity)
	}

	for _, req := range reqs {
		if req.Status != StatusPending {
			t.Fatalf("new request status %q", req.Status)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := testService(nil)
	ctx := context.Background()
	classes := []schedule.Ref{schedule.PersistedRef(1)}

	if _, err := svc.Submit(ctx, 0, classes, "medical", ""); err == nil {
		t.Fatal("missing student accepted")
	}
	if _, err := svc.Submit(ctx, 7, nil, "medical", ""); err == nil {
		t.Fatal("empty class list accepted")
	}
	if _, err := svc.Submit(ctx, 7, classes, "vacation", ""); err == nil {
		t.Fatal("unknown reason accepted")
	}
	if _, err := svc.Submit(ctx, 7, classes, "other", ""); err == nil {
		t.Fatal("reason 'other' without comment accepted")
	}
	if _, err := svc.Submit(ctx, 7, classes, "other", "объяснение"); err != nil {
		t.Fatalf("reason 'other' with comment rejected: %v", err)
	}
}

func TestSubmitPeriod(t *testing.T) {
	svc, _, _ := testService(nil)

	req, err := svc.SubmitPeriod(context.Background(), 7, []string{"2025-03-01", "2025-03-02"}, "event_participation", "конференция")
	if err != nil {
		t.Fatalf("SubmitPeriod: %v", err)
	}
	if req.ScheduleID != nil {
		t.Fatalf("period request carries a schedule id: %+v", req)
	}
	dates := ExtractDates(req.Description)
	if len(dates) != 2 || dates[0] != "2025-03-01" || dates[1] != "2025-03-02" {
		t.Fatalf("period dates not recoverable from %q: %v", req.Description, dates)
	}
	if !strings.Contains(req.Description, "конференция") {
		t.Fatalf("comment missing from %q", req.Description)
	}
}

func TestSetStatusApprovesAndReconciles(t *testing.T) {
	svc, store, records := testService([]schedule.Entry{
		{ID: 101, Date: "2025-12-23", Group: "ИС-21", TeacherName: "Петров", Subject: "Математика", Time: "09:00-10:30"},
	})
	ctx := context.Background()

	reqs, err := svc.Submit(ctx, 7, []schedule.Ref{schedule.PersistedRef(101)}, "medical", "болел")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	id := reqs[0].ID

	updated, err := svc.SetStatus(ctx, id, StatusApproved)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if updated.Status != StatusApproved {
		t.Fatalf("status %q", updated.Status)
	}
	if got := records.linkedTo(id); len(got) != 1 {
		t.Fatalf("approval linked %d records, want 1", len(got))
	}

	// Same-status transition is a no-op.
	before := len(records.rows)
	if _, err := svc.SetStatus(ctx, id, StatusApproved); err != nil {
		t.Fatalf("repeat SetStatus: %v", err)
	}
	if len(records.rows) != before {
		t.Fatal("repeat approval touched attendance")
	}

	// Approved flips to rejected and reverts the record.
	if _, err := svc.SetStatus(ctx, id, StatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := records.linkedTo(id); len(got) != 0 {
		t.Fatalf("rejection left %d linked records", len(got))
	}
	if stored, _ := store.ByID(ctx, id); stored.Status != StatusRejected {
		t.Fatalf("stored status %q", stored.Status)
	}
}

func TestSetStatusBackToPending(t *testing.T) {
	svc, store, records := testService([]schedule.Entry{
		{ID: 101, Date: "2025-12-23", Group: "ИС-21", TeacherName: "Петров", Subject: "Математика", Time: "09:00-10:30"},
	})
	ctx := context.Background()

	reqs, _ := svc.Submit(ctx, 7, []schedule.Ref{schedule.PersistedRef(101)}, "medical", "болел")
	id := reqs[0].ID
	if _, err := svc.SetStatus(ctx, id, StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Resetting to pending changes the request only; attendance keeps the
	// excused record until an explicit rejection.
	if _, err := svc.SetStatus(ctx, id, StatusPending); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if stored, _ := store.ByID(ctx, id); stored.Status != StatusPending {
		t.Fatalf("stored status %q", stored.Status)
	}
	if got := records.linkedTo(id); len(got) != 1 {
		t.Fatalf("reset touched attendance, %d linked records", len(got))
	}
}

func TestSetStatusUnknownRequest(t *testing.T) {
	svc, _, _ := testService(nil)
	if _, err := svc.SetStatus(context.Background(), 404, StatusApproved); err == nil {
		t.Fatal("unknown request accepted")
	}
	if _, err := svc.SetStatus(context.Background(), 1, "cancelled"); err == nil {
		t.Fatal("unknown status accepted")
	}
}

func TestEditReason(t *testing.T) {
	svc, store, _ := testService(nil)
	ctx := context.Background()

	reqs, _ := svc.Submit(ctx, 7, []schedule.Ref{schedule.PersistedRef(1)}, "medical", "болел")
	id := reqs[0].ID

	if err := svc.EditReason(ctx, id, "family", "уважительная причина"); err != nil {
		t.Fatalf("EditReason: %v", err)
	}
	stored, _ := store.ByID(ctx, id)
	if stored.ReasonType != "family" || stored.Description != "уважительная причина" {
		t.Fatalf("edit not applied: %+v", stored)
	}

	if err := svc.EditReason(ctx, id, "vacation", ""); err == nil {
		t.Fatal("unknown reason accepted")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _, _ := testService(nil)
	ctx := context.Background()

	reqs, _ := svc.Submit(ctx, 7, []schedule.Ref{schedule.PersistedRef(1), schedule.PersistedRef(2)}, "medical", "болел")
	if _, err := svc.SetStatus(ctx, reqs[0].ID, StatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}

	pending, err := svc.List(ctx, StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != reqs[1].ID {
		t.Fatalf("pending filter: %+v", pending)
	}

	all, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d requests, want 2", len(all))
	}

	if _, err := svc.List(ctx, "cancelled"); err == nil {
		t.Fatal("unknown status accepted")
	}
}
