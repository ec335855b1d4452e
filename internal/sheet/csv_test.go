package sheet

import (
	"reflect"
	"testing"
)

func TestParseDelimiterSniffing(t *testing.T) {
	semicolon := "a;b;c\n1;2;3"
	got := Parse(semicolon)
	want := [][]string{{"a", "b", "c"}, {"1", "2", "3"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("semicolon: got %v, want %v", got, want)
	}

	comma := "a,b,c\n1,2,3"
	got = Parse(comma)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("comma: got %v, want %v", got, want)
	}
}

func TestParseQuotedFields(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want [][]string
	}{
		{
			name: "embedded delimiter",
			in:   "a,b\n\"x,y\",z",
			want: [][]string{{"a", "b"}, {"x,y", "z"}},
		},
		{
			name: "embedded newline",
			in:   "a,b\n\"line1\nline2\",z",
			want: [][]string{{"a", "b"}, {"line1\nline2", "z"}},
		},
		{
			name: "doubled quote is literal",
			in:   "a,b\n\"he said \"\"hi\"\"\",z",
			want: [][]string{{"a", "b"}, {`he said "hi"`, "z"}},
		},
		{
			name: "quote mid-field stays literal",
			in:   "a,b\nx\"y,z",
			want: [][]string{{"a", "b"}, {`x"y`, "z"}},
		},
		{
			name: "crlf normalized",
			in:   "a,b\r\n1,2\r\n",
			want: [][]string{{"a", "b"}, {"1", "2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	// A field with both an embedded delimiter and a newline, quoted and
	// escaped per convention, must parse back to the exact original.
	original := "subject, with delimiter\nand \"newline\""
	encoded := "h1,h2\n\"subject, with delimiter\nand \"\"newline\"\"\",x"

	rows := Parse(encoded)
	if len(rows) != 2 || rows[1][0] != original {
		t.Fatalf("round trip failed: got %q, want %q", rows[1][0], original)
	}
}

func TestParseEdgeCases(t *testing.T) {
	if rows := Parse(""); len(rows) != 0 {
		t.Fatalf("empty input: got %v rows", rows)
	}

	// Trailing newline must not produce a phantom empty row.
	rows := Parse("a,b\n1,2\n")
	if len(rows) != 2 {
		t.Fatalf("trailing newline: got %d rows, want 2", len(rows))
	}

	// A single header-only line still parses.
	rows = Parse("only,one,line")
	if len(rows) != 1 || len(rows[0]) != 3 {
		t.Fatalf("single line: got %v", rows)
	}
}

func TestValidateBody(t *testing.T) {
	if err := ValidateBody("a,b\n1,2"); err != nil {
		t.Fatalf("valid csv rejected: %v", err)
	}
	if err := ValidateBody(""); err != ErrInvalidFeedFormat {
		t.Fatalf("empty body: got %v", err)
	}
	if err := ValidateBody("  \n "); err != ErrInvalidFeedFormat {
		t.Fatalf("blank body: got %v", err)
	}
	if err := ValidateBody("<!DOCTYPE html><html><body>sign in</body></html>"); err != ErrInvalidFeedFormat {
		t.Fatalf("html body: got %v", err)
	}
}
