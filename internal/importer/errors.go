package importer

import "fmt"

// NoRecordsFoundError is returned when a binary file yields nothing
// recognisable.
type NoRecordsFoundError struct {
	Filename string
	Hits     int
}

func (e *NoRecordsFoundError) Error() string {
	name := e.Filename
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("no recognisable obligations in %s (%d candidate matches); export it as CSV and import again", name, e.Hits)
}
