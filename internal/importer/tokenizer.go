package importer

import (
	"strings"
)

// Table is a tokenized CSV file.
type Table struct {
	// Headers are lower-cased and trimmed.
	Headers []string
	// Rows have exactly len(Headers) fields each.
	Rows      [][]string
	Delimiter rune
	// Malformed counts data lines dropped because their field count did
	// not match the header.
	Malformed int
}

// Empty reports whether the file had no data rows to consider.
func (t Table) Empty() bool {
	return len(t.Headers) == 0
}

// DetectDelimiter picks ';' when the header line contains a semicolon and
// no comma, and ',' otherwise.
func DetectDelimiter(headerLine string) rune {
	if strings.ContainsRune(headerLine, ';') && !strings.ContainsRune(headerLine, ',') {
		return ';'
	}
	return ','
}

// Tokenize splits text into a header and data rows.
//
// Lines are split on CR, LF or CRLF and blank lines are discarded before
// anything else. Quoting is handled per line, so a quoted field cannot
// span lines. Fewer than two non-blank lines yield an empty Table.
func Tokenize(text string) Table {
	lines := splitLines(text)
	if len(lines) < 2 {
		return Table{}
	}

	delim := DetectDelimiter(lines[0])
	headers := splitFields(lines[0], delim)
	for i, h := range headers {
		headers[i] = normalizeHeader(h)
	}

	t := Table{
		Headers:   headers,
		Rows:      make([][]string, 0, len(lines)-1),
		Delimiter: delim,
	}
	for _, line := range lines[1:] {
		fields := splitFields(line, delim)
		if len(fields) != len(headers) {
			t.Malformed++
			continue
		}
		t.Rows = append(t.Rows, fields)
	}
	return t
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// splitFields splits one line on delim. A double quote toggles quoted
// mode; inside quotes a doubled quote is a literal quote and delim is
// ordinary text.
func splitFields(line string, delim rune) []string {
	var (
		fields   []string
		cur      strings.Builder
		inQuotes bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}
