// Package tabular reads user-supplied obligation tables. Well-formed text
// goes through ParseTable; anything else can be scanned with
// ExtractBestEffortRecords.
package tabular

import "strings"

// ParseDelimitedLine splits one line on commas or semicolons. Quoted
// fields may contain separators, a doubled quote inside quotes is a literal
// quote, surrounding whitespace is trimmed and trailing empty fields are
// dropped.
func ParseDelimitedLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case (r == ',' || r == ';') && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))

	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}
