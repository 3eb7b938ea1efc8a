package api

import (
	"math"
	"sort"
	"time"

	"github.com/scholarhunt/scholarhunt/internal/store"
)

// upcomingWindow bounds the "upcoming deadlines" overview metric.
const upcomingWindow = 60 * 24 * time.Hour

// deadlineLayouts are tried in order when interpreting the free-text
// deadline column.
var deadlineLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 Jan 2006",
}

type statsResponse struct {
	Overview   overviewStats   `json:"overview"`
	Histogram  []histogramBin  `json:"score_histogram"`
	Timeline   []timelineEntry `json:"deadline_timeline"`
	Statuses   map[string]int  `json:"status_distribution"`
	ScoreStats scoreStatistics `json:"score_statistics"`
}

type overviewStats struct {
	Total             int     `json:"total"`
	AverageScore      float64 `json:"average_score"`
	UpcomingDeadlines int     `json:"upcoming_deadlines"`
	LastFoundDaysAgo  int     `json:"last_found_days_ago"`
}

type histogramBin struct {
	From  int `json:"from"`
	To    int `json:"to"`
	Count int `json:"count"`
}

type timelineEntry struct {
	ProgramName string `json:"program_name"`
	Deadline    string `json:"deadline"`
}

type scoreStatistics struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
}

func buildStats(records []store.Record) statsResponse {
	resp := statsResponse{
		Overview:  buildOverview(records, time.Now()),
		Histogram: buildHistogram(records),
		Timeline:  buildTimeline(records, time.Now(), 10),
		Statuses:  map[string]int{},
	}
	for _, rec := range records {
		status := rec.Status
		if status == "" {
			status = store.StatusNew
		}
		resp.Statuses[status]++
	}
	resp.ScoreStats = buildScoreStatistics(records)
	return resp
}

func buildOverview(records []store.Record, now time.Time) overviewStats {
	overview := overviewStats{Total: len(records), LastFoundDaysAgo: -1}
	if len(records) == 0 {
		return overview
	}

	var sum int
	var lastFound time.Time
	for _, rec := range records {
		sum += rec.MatchScore
		if rec.DateFound.After(lastFound) {
			lastFound = rec.DateFound
		}
		if deadline, ok := parseDeadline(rec.Deadline); ok {
			if deadline.After(now) && deadline.Sub(now) <= upcomingWindow {
				overview.UpcomingDeadlines++
			}
		}
	}
	overview.AverageScore = round1(float64(sum) / float64(len(records)))
	if !lastFound.IsZero() {
		overview.LastFoundDaysAgo = int(now.Sub(lastFound).Hours() / 24)
	}
	return overview
}

// buildHistogram buckets match scores into ten decile bins; scores of
// 100 land in the top bin.
func buildHistogram(records []store.Record) []histogramBin {
	bins := make([]histogramBin, 10)
	for i := range bins {
		bins[i].From = i * 10
		bins[i].To = i*10 + 9
	}
	bins[9].To = 100
	for _, rec := range records {
		idx := rec.MatchScore / 10
		if idx > 9 {
			idx = 9
		}
		if idx < 0 {
			idx = 0
		}
		bins[idx].Count++
	}
	return bins
}

// buildTimeline returns the next limit deadlines after now, earliest
// first, skipping unparseable deadlines.
func buildTimeline(records []store.Record, now time.Time, limit int) []timelineEntry {
	type dated struct {
		entry timelineEntry
		when  time.Time
	}
	upcoming := make([]dated, 0, len(records))
	for _, rec := range records {
		deadline, ok := parseDeadline(rec.Deadline)
		if !ok || !deadline.After(now) {
			continue
		}
		upcoming = append(upcoming, dated{
			entry: timelineEntry{ProgramName: rec.ProgramName, Deadline: rec.Deadline},
			when:  deadline,
		})
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].when.Before(upcoming[j].when)
	})
	if len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	entries := make([]timelineEntry, len(upcoming))
	for i, d := range upcoming {
		entries[i] = d.entry
	}
	return entries
}

func buildScoreStatistics(records []store.Record) scoreStatistics {
	if len(records) == 0 {
		return scoreStatistics{}
	}
	scores := make([]float64, len(records))
	var sum float64
	for i, rec := range records {
		scores[i] = float64(rec.MatchScore)
		sum += scores[i]
	}
	sort.Float64s(scores)
	return scoreStatistics{
		Min:    scores[0],
		Q1:     round1(quantile(scores, 0.25)),
		Median: round1(quantile(scores, 0.5)),
		Q3:     round1(quantile(scores, 0.75)),
		Max:    scores[len(scores)-1],
		Mean:   round1(sum / float64(len(scores))),
	}
}

// quantile linearly interpolates over a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func parseDeadline(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
