package tabular

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"html"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	sniffLen   = 8192
	minRunLen  = 3
	maxXMLPart = 16 << 20
)

var (
	zipMagic = []byte("PK\x03\x04")
	xmlTagRe = regexp.MustCompile(`<[^>]+>`)
	sheetRe  = regexp.MustCompile(`^xl/worksheets/sheet(\d+)\.xml$`)
)

// LooksBinary reports whether data should skip the structured parser:
// zip containers, NUL bytes or invalid UTF-8 in the leading bytes.
func LooksBinary(data []byte) bool {
	if bytes.HasPrefix(data, zipMagic) {
		return true
	}
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
		if i := lastRuneStart(head); !utf8.FullRune(head[i:]) {
			head = head[:i]
		}
	}
	return bytes.IndexByte(head, 0) >= 0 || !utf8.Valid(head)
}

func lastRuneStart(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if utf8.RuneStart(b[i]) {
			return i
		}
	}
	return 0
}

// HarvestText recovers readable text from a binary spreadsheet. Zip-based
// workbooks have their XML parts stripped of markup; anything else is
// reduced to runs of printable characters, including UTF-16LE runs.
func HarvestText(data []byte) string {
	if bytes.HasPrefix(data, zipMagic) {
		if text, ok := zipText(data); ok {
			return text
		}
	}
	runs := printableRuns(data)
	runs = append(runs, utf16Runs(data)...)
	return strings.Join(runs, "\n")
}

func zipText(data []byte) (string, bool) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", false
	}
	if text, ok := workbookText(zr); ok {
		return text, true
	}
	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".xml") && !strings.Contains(f.Name, "_rels/") {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var sb strings.Builder
	for _, f := range files {
		part, err := readPart(f)
		if err != nil {
			continue
		}
		text := html.UnescapeString(xmlTagRe.ReplaceAllString(string(part), " "))
		sb.WriteString(strings.Join(strings.Fields(text), " "))
		sb.WriteByte('\n')
	}
	return sb.String(), sb.Len() > 0
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxXMLPart))
}

// workbookText renders an xlsx workbook one row per line, sheets in order,
// with shared-string references resolved. Cell text and numbers live in
// different parts, so stripping markup alone separates names from amounts.
func workbookText(zr *zip.Reader) (string, bool) {
	type sheet struct {
		n int
		f *zip.File
	}
	var (
		sheets []sheet
		shared []string
	)
	for _, f := range zr.File {
		if f.Name == "xl/sharedStrings.xml" {
			part, err := readPart(f)
			if err != nil {
				return "", false
			}
			if shared, err = parseSharedStrings(part); err != nil {
				return "", false
			}
			continue
		}
		if m := sheetRe.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			sheets = append(sheets, sheet{n: n, f: f})
		}
	}
	if len(sheets) == 0 {
		return "", false
	}
	sort.Slice(sheets, func(i, j int) bool { return sheets[i].n < sheets[j].n })

	var sb strings.Builder
	for _, sh := range sheets {
		part, err := readPart(sh.f)
		if err != nil {
			continue
		}
		rows, err := parseSheetRows(part, shared)
		if err != nil {
			continue
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, " "))
			sb.WriteByte('\n')
		}
	}
	return sb.String(), sb.Len() > 0
}

// parseSharedStrings returns the text of each <si>, concatenating rich-text
// runs and skipping phonetic hints.
func parseSharedStrings(part []byte) ([]string, error) {
	var (
		out      []string
		cur      strings.Builder
		inItem   bool
		inText   bool
		phonetic int
	)
	dec := xml.NewDecoder(bytes.NewReader(part))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inItem = true
				cur.Reset()
			case "rPh":
				phonetic++
			case "t":
				inText = inItem && phonetic == 0
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "si":
				out = append(out, cur.String())
				inItem = false
			case "rPh":
				phonetic--
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
}

// parseSheetRows returns the non-empty cell values of each row.
func parseSheetRows(part []byte, shared []string) ([][]string, error) {
	var (
		rows     [][]string
		row      []string
		cellType string
		value    strings.Builder
		inValue  bool
	)
	dec := xml.NewDecoder(bytes.NewReader(part))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				row = nil
			case "c":
				cellType = ""
				value.Reset()
				for _, a := range t.Attr {
					if a.Name.Local == "t" {
						cellType = a.Value
					}
				}
			case "v", "t":
				inValue = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "v", "t":
				inValue = false
			case "c":
				if v := cellValue(cellType, strings.TrimSpace(value.String()), shared); v != "" {
					row = append(row, v)
				}
			case "row":
				if len(row) > 0 {
					rows = append(rows, row)
				}
			}
		case xml.CharData:
			if inValue {
				value.Write(t)
			}
		}
	}
}

// cellValue resolves shared strings and renders fractional numbers with two
// decimals so they read as amounts.
func cellValue(cellType, raw string, shared []string) string {
	switch cellType {
	case "s":
		i, err := strconv.Atoi(raw)
		if err != nil || i < 0 || i >= len(shared) {
			return ""
		}
		return shared[i]
	case "", "n":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f == float64(int64(f)) {
			return raw
		}
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	return raw
}

func isPrintable(b byte) bool {
	return b >= 0x20 && b < 0x7f
}

func printableRuns(data []byte) []string {
	var (
		runs    []string
		current []byte
	)
	flush := func() {
		if len(bytes.TrimSpace(current)) >= minRunLen {
			runs = append(runs, string(current))
		}
		current = current[:0]
	}
	for _, b := range data {
		if isPrintable(b) || b == '\t' {
			current = append(current, b)
			continue
		}
		flush()
	}
	flush()
	return runs
}

func utf16Runs(data []byte) []string {
	var (
		runs    []string
		current []byte
	)
	flush := func() {
		if len(bytes.TrimSpace(current)) >= minRunLen {
			runs = append(runs, string(current))
		}
		current = current[:0]
	}
	for i := 0; i+1 < len(data); i += 2 {
		if isPrintable(data[i]) && data[i+1] == 0 {
			current = append(current, data[i])
			continue
		}
		flush()
	}
	flush()
	return runs
}
