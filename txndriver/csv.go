package txndriver

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSVRecordSource reads prices-CSV records (spec §6: one comma-separated
// list of unsigned amounts per line) in order, and can be repositioned by
// record index for the failover resume policy (spec §4.3).
//
// encoding/csv is standard library: nothing in the retrieved pack pulls in
// a third-party CSV reader for this shape of work (the teacher's own
// init_table.go reaches for encoding/csv in its commented-out stock-loader),
// so there was no ecosystem alternative to ground this on.
type CSVRecordSource struct {
	rows [][]uint32
	pos  int
}

// LoadCSVRecordSource reads the entire prices CSV into memory. Record
// counts in this system are operator-sized (one line per payment), so a
// full read up front keeps Seek trivial.
func LoadCSVRecordSource(path string) (*CSVRecordSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows [][]uint32
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		amounts := make([]uint32, len(rec))
		for i, field := range rec {
			v, err := strconv.ParseUint(strings.TrimSpace(field), 10, 32)
			if err != nil {
				return nil, err
			}
			amounts[i] = uint32(v)
		}
		rows = append(rows, amounts)
	}
	return &CSVRecordSource{rows: rows}, nil
}

func (s *CSVRecordSource) Next() (amounts []uint32, ok bool) {
	if s.pos >= len(s.rows) {
		return nil, false
	}
	amounts = s.rows[s.pos]
	s.pos++
	return amounts, true
}

func (s *CSVRecordSource) Seek(id uint32) {
	s.pos = int(id)
}

// CSVRetrySink appends one aborted record per call, truncating the file at
// leader startup (spec §6: "file is truncated at leader startup").
type CSVRetrySink struct {
	f *os.File
	w *csv.Writer
}

// NewCSVRetrySink truncates path and returns a sink ready to append.
func NewCSVRetrySink(path string) (*CSVRetrySink, error) {
	f, err := os.Create(path) // os.Create truncates an existing file
	if err != nil {
		return nil, err
	}
	return &CSVRetrySink{f: f, w: csv.NewWriter(f)}, nil
}

func (s *CSVRetrySink) Append(amounts []uint32) error {
	fields := make([]string, len(amounts))
	for i, a := range amounts {
		fields[i] = strconv.FormatUint(uint64(a), 10)
	}
	if err := s.w.Write(fields); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVRetrySink) Close() error {
	s.w.Flush()
	return s.f.Close()
}
