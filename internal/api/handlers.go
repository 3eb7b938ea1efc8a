package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/scholarhunt/scholarhunt/internal/store"
)

type listResponse struct {
	Count        int            `json:"count"`
	Total        int            `json:"total"`
	Scholarships []store.Record `json:"scholarships"`
}

type runRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type runResponse struct {
	Results        int     `json:"results"`
	Processed      int     `json:"processed"`
	Matches        int     `json:"matches"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

func (s *Server) listScholarships(w http.ResponseWriter, r *http.Request) {
	records := s.cache.get(r.Context())
	total := len(records)

	minScore := 0
	if raw := r.URL.Query().Get("min_score"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > 100 {
			writeError(w, http.StatusBadRequest, "min_score must be an integer between 0 and 100")
			return
		}
		minScore = parsed
	}

	filtered := records[:0:0]
	for _, rec := range records {
		if rec.MatchScore >= minScore {
			filtered = append(filtered, rec)
		}
	}

	switch sortKey := r.URL.Query().Get("sort"); sortKey {
	case "", "score":
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].MatchScore > filtered[j].MatchScore
		})
	case "deadline":
		sort.SliceStable(filtered, func(i, j int) bool {
			di, iOK := parseDeadline(filtered[i].Deadline)
			dj, jOK := parseDeadline(filtered[j].Deadline)
			if iOK != jOK {
				return iOK // records without parseable deadlines go last
			}
			return di.Before(dj)
		})
	case "found":
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].DateFound.After(filtered[j].DateFound)
		})
	default:
		writeError(w, http.StatusBadRequest, "sort must be one of score, deadline, found")
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Count:        len(filtered),
		Total:        total,
		Scholarships: filtered,
	})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	records := s.cache.get(r.Context())
	writeJSON(w, http.StatusOK, buildStats(records))
}

func (s *Server) getConfigStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"credentials": s.cfg.Credentials})
}

func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" {
		req.Query = s.cfg.DefaultQuery
	}
	if req.MaxResults <= 0 {
		req.MaxResults = s.cfg.DefaultMaxResults
	}

	// The pipeline runs synchronously inside this request; a second
	// trigger waits here rather than interleaving store appends.
	s.runMu.Lock()
	summary, err := s.runner.Run(r.Context(), req.Query, req.MaxResults)
	s.runMu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.cache.invalidate()

	writeJSON(w, http.StatusOK, runResponse{
		Results:        summary.Results,
		Processed:      summary.Processed,
		Matches:        summary.Matches,
		ElapsedSeconds: summary.Elapsed.Seconds(),
	})
}
