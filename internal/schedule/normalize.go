package schedule

import (
	"fmt"
	"regexp"
	"strings"
)

// ColumnMap maps the feed's Russian header names to canonical field names.
// The feed is maintained by hand, so header text is matched after trimming
// and lower-casing.
var ColumnMap = map[string]string{
	"учебная группа":       "group",
	"преподаватель":        "teacher_name",
	"дисциплина":           "subject",
	"время":                "time",
	"дата":                 "date",
	"вид нагрузки кафедры": "load_type",
	"аудитория":            "classroom",
}

// RequiredHeaders are the feed columns without which a sync cannot proceed.
var RequiredHeaders = []string{"учебная группа", "преподаватель", "дисциплина", "время", "дата"}

// MissingColumnsError reports every required column absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("заголовок таблицы неверный: %s", strings.Join(e.Columns, ", "))
}

var sheetDateRe = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)

// ReformatDate rewrites D.M.YYYY (single- or double-digit day/month) to ISO
// YYYY-MM-DD. Anything else passes through unchanged on the assumption it is
// already ISO; a malformed value therefore survives into the date column.
func ReformatDate(raw string) string {
	trimmed := strings.TrimSpace(raw)
	m := sheetDateRe.FindStringSubmatch(trimmed)
	if m == nil {
		return trimmed
	}
	return m[3] + "-" + pad2(m[2]) + "-" + pad2(m[1])
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// Normalize maps parsed feed rows onto schedule entries using columnMap.
// The first row is the header. Rows missing any required field after
// trimming are dropped silently: partial rows are expected noise in a
// manually maintained sheet, not failures.
func Normalize(rows [][]string, columnMap map[string]string) ([]Entry, error) {
	if len(rows) < 2 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var missing []string
	for _, required := range RequiredHeaders {
		if !contains(header, required) {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	index := map[string]int{}
	for localized, canonical := range columnMap {
		for i, h := range header {
			if h == localized {
				index[canonical] = i
				break
			}
		}
	}

	cell := func(row []string, field string) (string, bool) {
		i, ok := index[field]
		if !ok || i >= len(row) {
			return "", ok
		}
		return strings.TrimSpace(row[i]), true
	}

	var entries []Entry
	for _, row := range rows[1:] {
		group, _ := cell(row, "group")
		teacher, _ := cell(row, "teacher_name")
		subject, _ := cell(row, "subject")
		timeRange, _ := cell(row, "time")
		rawDate, _ := cell(row, "date")
		date := ReformatDate(rawDate)

		if date == "" || group == "" || teacher == "" || subject == "" || timeRange == "" {
			continue
		}

		e := Entry{
			Date:        date,
			Group:       group,
			TeacherName: teacher,
			Subject:     subject,
			Time:        timeRange,
		}
		if v, mapped := cell(row, "load_type"); mapped && v != "" {
			e.LoadType = &v
		}
		if v, mapped := cell(row, "classroom"); mapped && v != "" {
			e.Classroom = &v
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Deduplicate collapses entries to one per natural key; the last row wins,
// so within a single sync pass later sheet rows override earlier ones.
func Deduplicate(entries []Entry) []Entry {
	seen := make(map[string]int, len(entries))
	unique := make([]Entry, 0, len(entries))
	for _, e := range entries {
		key := KeyOf(e).String()
		if i, ok := seen[key]; ok {
			unique[i] = e
			continue
		}
		seen[key] = len(unique)
		unique = append(unique, e)
	}
	return unique
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
