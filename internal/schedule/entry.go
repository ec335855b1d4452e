package schedule

import "strings"

// Entry is one scheduled class occurrence.
type Entry struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"` // ISO YYYY-MM-DD
	Group       string  `json:"group"`
	TeacherName string  `json:"teacher_name"`
	Subject     string  `json:"subject"`
	Time        string  `json:"time"`
	LoadType    *string `json:"load_type,omitempty"`
	Classroom   *string `json:"classroom,omitempty"`
}

// Key is the natural identity of an entry: no two persisted entries may
// share it, and the upsert conflict target is built from it.
type Key struct {
	Date        string
	Group       string
	TeacherName string
	Subject     string
	Time        string
}

// KeyOf extracts the natural key of an entry.
func KeyOf(e Entry) Key {
	return Key{Date: e.Date, Group: e.Group, TeacherName: e.TeacherName, Subject: e.Subject, Time: e.Time}
}

// String renders the key in its pipe-joined dedup form.
func (k Key) String() string {
	return strings.Join([]string{k.Date, k.Group, k.TeacherName, k.Subject, k.Time}, "|")
}

// Ref addresses a schedule entry that is either already persisted or known
// only from the spreadsheet feed. A variant type makes the "is this unsynced"
// check explicit instead of smuggling it through a sentinel id.
type Ref struct {
	persisted bool
	id        int64
	key       Key
}

// PersistedRef addresses a row that exists in the store.
func PersistedRef(id int64) Ref {
	return Ref{persisted: true, id: id}
}

// PendingRef addresses a feed-only row by its natural key. It must never be
// sent to the store as a foreign key.
func PendingRef(key Key) Ref {
	return Ref{key: key}
}

// Persisted reports the store id when the ref is persisted.
func (r Ref) Persisted() (int64, bool) {
	return r.id, r.persisted
}

// Pending reports the natural key when the ref is not yet synced.
func (r Ref) Pending() (Key, bool) {
	if r.persisted {
		return Key{}, false
	}
	return r.key, true
}
