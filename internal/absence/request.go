package absence

import "time"

// RequestStatus is the staff decision state of an absence request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Valid reports whether s is a known status value.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ReasonLabels enumerates the accepted justification codes with their
// display labels.
var ReasonLabels = map[string]string{
	"event_participation": "Участие в мероприятии",
	"event_prep":          "Подготовка к мероприятию",
	"career_guidance":     "Профориентация",
	"medical":             "Болезнь",
	"family":              "Семейные обстоятельства",
	"other":               "Другое",
}

// Request is a student's justification for missing one or more classes.
// ScheduleID is nil when the class was known only from the spreadsheet feed
// at submission time; in that case Description starts with a recoverable
// prefix encoding the class identity (see description.go).
type Request struct {
	ID          int64         `json:"id"`
	StudentID   int64         `json:"student_id"`
	ScheduleID  *int64        `json:"schedule_id"`
	ReasonType  string        `json:"reason_type"`
	Description string        `json:"description"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}
