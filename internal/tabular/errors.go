package tabular

import (
	"fmt"
	"strings"
)

// MissingHeaderError is returned when the header row lacks required columns.
type MissingHeaderError struct {
	Missing []string
	Found   []string
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("missing required columns: %s (found: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Found, ", "))
}

// EmptyFileError is returned when nothing but blank or instruction lines
// remain, or when a header has no data rows under it.
type EmptyFileError struct {
	TotalLines     int
	SurvivingLines int
}

func (e *EmptyFileError) Error() string {
	return fmt.Sprintf("no data rows found: %d of %d lines remained after removing blank and instruction lines",
		e.SurvivingLines, e.TotalLines)
}
