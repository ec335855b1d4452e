package sheet

import "strings"

// Parse splits published-spreadsheet CSV text into rows of fields.
//
// The feed is not RFC 4180: the delimiter is sniffed from the first line
// (semicolon if present, comma otherwise), a quote only opens a field while
// the field is still empty, and a doubled quote inside a quoted field is a
// literal quote. encoding/csv cannot reproduce these rules, so the state
// machine is spelled out.
func Parse(text string) [][]string {
	var rows [][]string
	if text == "" {
		return rows
	}

	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")

	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}
	delimiter := byte(',')
	if strings.Contains(strings.TrimSpace(firstLine), ";") {
		delimiter = ';'
	}

	var (
		currentRow   []string
		currentField strings.Builder
		inQuotes     bool
	)

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if inQuotes {
			if ch == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					currentField.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				currentField.WriteByte(ch)
			}
			continue
		}

		switch {
		case ch == delimiter:
			currentRow = append(currentRow, currentField.String())
			currentField.Reset()
		case ch == '\n':
			currentRow = append(currentRow, currentField.String())
			rows = append(rows, currentRow)
			currentRow = nil
			currentField.Reset()
		case ch == '"' && currentField.Len() == 0:
			inQuotes = true
		default:
			currentField.WriteByte(ch)
		}
	}

	currentRow = append(currentRow, currentField.String())
	rows = append(rows, currentRow)

	// A trailing newline leaves a single empty field behind.
	if last := rows[len(rows)-1]; len(last) == 1 && last[0] == "" {
		rows = rows[:len(rows)-1]
	}

	return rows
}
