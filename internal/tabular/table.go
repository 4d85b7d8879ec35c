package tabular

import (
	"fmt"
	"strings"
)

var instructionMarkers = []string{
	"#",
	"//",
	"instructions",
	"instruction:",
	"note:",
	"notes:",
	"example:",
	"e.g.",
	"tip:",
	"valid categories",
	"valid frequencies",
	"categories:",
	"frequencies:",
	"delete this",
	"fill in",
	"please ",
}

// Schema describes the columns a table must carry.
type Schema struct {
	// Required column names. A header cell matches when it contains the
	// name, ignoring case, so "Payment Amount (£)" satisfies "amount".
	Required []string

	// EchoLabels are canonical labels that templates tend to list on their
	// own lines. A line made only of these labels is not data.
	EchoLabels []string
}

// Record is one data row keyed by required column name.
type Record struct {
	Line   int
	Values map[string]string
	Raw    []string
}

// Get returns the value for a required column.
func (r Record) Get(name string) string {
	return r.Values[name]
}

// SkippedLine is a data row that did not populate every required column.
type SkippedLine struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Table is the parsed form of a file.
type Table struct {
	Header     []string
	Columns    map[string]int
	Records    []Record
	Skipped    []SkippedLine
	TotalLines int
}

// ParseTable normalises line endings, strips a byte-order mark, drops
// blank and instructional lines and then reads the first surviving line as
// the header. Rows missing required values are skipped and reported.
func ParseTable(text string, schema Schema) (*Table, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	echo := make(map[string]struct{}, len(schema.EchoLabels))
	for _, l := range schema.EchoLabels {
		echo[strings.ToLower(l)] = struct{}{}
	}

	type line struct {
		number int
		fields []string
	}
	var surviving []line
	for i, raw := range lines {
		if isInstruction(raw) {
			continue
		}
		fields := ParseDelimitedLine(raw)
		if len(fields) == 0 || isEcho(fields, echo) {
			continue
		}
		surviving = append(surviving, line{number: i + 1, fields: fields})
	}

	if len(surviving) == 0 {
		return nil, &EmptyFileError{TotalLines: len(lines), SurvivingLines: 0}
	}

	header := surviving[0].fields
	columns, missing := matchHeader(header, schema.Required)
	if len(missing) > 0 {
		return nil, &MissingHeaderError{Missing: missing, Found: header}
	}
	if len(surviving) == 1 {
		return nil, &EmptyFileError{TotalLines: len(lines), SurvivingLines: 1}
	}

	table := &Table{
		Header:     header,
		Columns:    columns,
		TotalLines: len(lines),
	}
	for _, l := range surviving[1:] {
		values := make(map[string]string, len(columns))
		var empty []string
		for _, name := range schema.Required {
			idx := columns[name]
			var v string
			if idx < len(l.fields) {
				v = l.fields[idx]
			}
			if v == "" {
				empty = append(empty, name)
				continue
			}
			values[name] = v
		}
		if len(empty) > 0 {
			table.Skipped = append(table.Skipped, SkippedLine{
				Line:   l.number,
				Reason: fmt.Sprintf("missing %s", strings.Join(empty, ", ")),
			})
			continue
		}
		table.Records = append(table.Records, Record{Line: l.number, Values: values, Raw: l.fields})
	}
	return table, nil
}

func isInstruction(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return true
	}
	s = strings.TrimLeft(s, `"`)
	for _, m := range instructionMarkers {
		if strings.HasPrefix(s, m) {
			return true
		}
	}
	return false
}

func isEcho(fields []string, labels map[string]struct{}) bool {
	if len(labels) == 0 {
		return false
	}
	seen := 0
	for _, f := range fields {
		if f == "" {
			continue
		}
		if _, ok := labels[strings.ToLower(f)]; !ok {
			return false
		}
		seen++
	}
	return seen > 0
}

func matchHeader(header, required []string) (map[string]int, []string) {
	columns := make(map[string]int, len(required))
	var missing []string
	for _, name := range required {
		found := -1
		for i, cell := range header {
			if strings.Contains(strings.ToLower(cell), strings.ToLower(name)) {
				found = i
				break
			}
		}
		if found < 0 {
			missing = append(missing, name)
			continue
		}
		columns[name] = found
	}
	return columns, missing
}
