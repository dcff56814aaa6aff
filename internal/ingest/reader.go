package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// sniffWindow is how much of the file head is inspected to pick a delimiter.
const sniffWindow = 1024

// sniffCandidates are tried in order; earlier wins a tie.
var sniffCandidates = []rune{',', ';', '\t', '|'}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Source is a fully read delimited file. Every row in Rows has exactly
// len(Header) fields.
type Source struct {
	Header    []string
	Rows      [][]string
	Delimiter rune
}

// ReadSource reads a delimited stream whose first record is the header.
// delimiter is a single character or pgingest.AutoDelimiter.
// A stream with a header and no data rows returns ErrEmptySource
// alongside the parsed header.
func ReadSource(r io.Reader, delimiter string) (*Source, error) {
	br := bufio.NewReaderSize(r, sniffWindow*4)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	comma, err := resolveDelimiter(br, delimiter)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("file has no header row: %w", pgingest.ErrEmptySource)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w: %v", pgingest.ErrParse, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	src := &Source{Header: header, Delimiter: comma}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w: %v", len(src.Rows)+2, pgingest.ErrParse, err)
		}
		src.Rows = append(src.Rows, NormalizeRow(rec, len(header)))
	}

	if len(src.Rows) == 0 {
		return src, pgingest.ErrEmptySource
	}
	return src, nil
}

// NormalizeRow truncates or pads row to width fields. Padding uses "".
func NormalizeRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	if len(row) > width {
		return row[:width]
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

func resolveDelimiter(br *bufio.Reader, delimiter string) (rune, error) {
	if delimiter == "" {
		delimiter = pgingest.DefaultDelimiter
	}
	if delimiter == pgingest.AutoDelimiter {
		head, _ := br.Peek(sniffWindow)
		return SniffDelimiter(head), nil
	}

	comma, size := utf8.DecodeRuneInString(delimiter)
	if size != len(delimiter) || comma == '"' || comma == '\r' || comma == '\n' || comma == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q: %w", delimiter, pgingest.ErrInvalidConfig)
	}
	return comma, nil
}

// SniffDelimiter picks the candidate that splits the complete lines of head
// into the same non-zero number of fields. Among consistent candidates the
// one with most fields wins. Without a consistent candidate, the one most
// frequent on the first line wins, and ',' is the final fallback.
func SniffDelimiter(head []byte) rune {
	lines := completeLines(head)
	if len(lines) == 0 {
		return ','
	}

	best, bestCount := rune(0), 0
	for _, c := range sniffCandidates {
		count, consistent := -1, true
		for _, line := range lines {
			n := countOutsideQuotes(line, c)
			if count == -1 {
				count = n
			} else if n != count {
				consistent = false
				break
			}
		}
		if consistent && count > bestCount {
			best, bestCount = c, count
		}
	}
	if best != 0 {
		return best
	}

	for _, c := range sniffCandidates {
		if n := countOutsideQuotes(lines[0], c); n > bestCount {
			best, bestCount = c, n
		}
	}
	if best != 0 {
		return best
	}
	return ','
}

// completeLines splits head into lines, dropping a trailing partial line
// unless it is the only one.
func completeLines(head []byte) []string {
	text := strings.ReplaceAll(string(head), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 1 {
		lines = lines[:len(lines)-1]
	}
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func countOutsideQuotes(line string, c rune) int {
	n, quoted := 0, false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == c && !quoted:
			n++
		}
	}
	return n
}
