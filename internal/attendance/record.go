package attendance

// Status is a student's state for one class occurrence.
type Status string

const (
	Present       Status = "Present"
	Absent        Status = "Absent"
	ExcusedAbsent Status = "ExcusedAbsent"
	Unmarked      Status = "Unmarked"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case Present, Absent, ExcusedAbsent, Unmarked:
		return true
	}
	return false
}

// Record is one student's status for one class occurrence. ScheduleID is
// nil only on the documented fallback path where no matching schedule could
// be resolved for an approved absence.
type Record struct {
	ID               int64  `json:"id"`
	StudentID        int64  `json:"student_id"`
	ScheduleID       *int64 `json:"schedule_id"`
	Date             string `json:"date"`
	Status           Status `json:"status"`
	AbsenceRequestID *int64 `json:"absence_request_id"`
}
