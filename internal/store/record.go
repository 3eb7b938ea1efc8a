package store

import (
	"strconv"
	"strings"
	"time"
)

// timeLayout is the Date Found cell format.
const timeLayout = "2006-01-02 15:04:05"

// StatusNew is the status written for every freshly appended record.
// Later status edits happen out-of-band in the sheet itself.
const StatusNew = "New"

// headers is the sheet header row, in column order.
var headers = []string{
	"Date Found",
	"Program Name",
	"Application Deadline",
	"Official URL",
	"Match Score",
	"Notes",
	"Status",
}

// Record is one scholarship row. Records are append-only from this
// system's point of view.
type Record struct {
	DateFound   time.Time `json:"date_found"`
	ProgramName string    `json:"program_name"`
	Deadline    string    `json:"deadline"`
	OfficialURL string    `json:"official_url"`
	MatchScore  int       `json:"match_score"`
	Notes       string    `json:"notes"`
	Status      string    `json:"status"`
}

// row converts the record into a sheet row in header order.
func (r Record) row() []any {
	dateFound := ""
	if !r.DateFound.IsZero() {
		dateFound = r.DateFound.Format(timeLayout)
	}
	return []any{
		dateFound,
		r.ProgramName,
		r.Deadline,
		r.OfficialURL,
		strconv.Itoa(r.MatchScore),
		r.Notes,
		r.Status,
	}
}

// recordFromRow maps a sheet row back into a Record. Cells beyond the
// row's length default to empty; unparseable dates and scores default
// to zero values so externally edited rows still load.
func recordFromRow(row []any) Record {
	rec := Record{
		ProgramName: cellString(row, 1),
		Deadline:    cellString(row, 2),
		OfficialURL: cellString(row, 3),
		Notes:       cellString(row, 5),
		Status:      cellString(row, 6),
	}
	if found, err := time.Parse(timeLayout, cellString(row, 0)); err == nil {
		rec.DateFound = found
	}
	rec.MatchScore = parseScore(cellString(row, 4))
	return rec
}

// isHeaderRow reports whether a row is the header row itself, so reads
// over the full column range can skip it.
func isHeaderRow(row []any) bool {
	return cellString(row, 0) == headers[0] && cellString(row, 1) == headers[1]
}

func cellString(row []any, idx int) string {
	if idx >= len(row) {
		return ""
	}
	switch v := row[idx].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func parseScore(raw string) int {
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	score := int(f)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
