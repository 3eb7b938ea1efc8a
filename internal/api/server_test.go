package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scholarhunt/scholarhunt/internal/pipeline"
	"github.com/scholarhunt/scholarhunt/internal/store"
)

type fakeReader struct {
	records []store.Record
	err     error
	calls   int
}

func (f *fakeReader) ReadAll(context.Context) ([]store.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeRunner struct {
	summary   pipeline.Summary
	err       error
	lastQuery string
	lastMax   int
	timesRun  int
}

func (f *fakeRunner) Run(_ context.Context, query string, maxResults int) (pipeline.Summary, error) {
	f.timesRun++
	f.lastQuery = query
	f.lastMax = maxResults
	return f.summary, f.err
}

func sampleRecords() []store.Record {
	return []store.Record{
		{
			DateFound:   time.Now().AddDate(0, 0, -3),
			ProgramName: "DAAD EPOS",
			Deadline:    time.Now().AddDate(0, 0, 30).Format("2006-01-02"),
			OfficialURL: "https://example.org/daad",
			MatchScore:  90,
			Status:      "New",
		},
		{
			DateFound:   time.Now().AddDate(0, 0, -1),
			ProgramName: "Gates Cambridge",
			Deadline:    "rolling",
			OfficialURL: "https://example.org/gates",
			MatchScore:  60,
			Status:      "Applied",
		},
		{
			DateFound:   time.Now().AddDate(0, 0, -10),
			ProgramName: "Chevening",
			Deadline:    time.Now().AddDate(0, 0, 10).Format("2006-01-02"),
			OfficialURL: "https://example.org/chevening",
			MatchScore:  75,
			Status:      "New",
		},
	}
}

func newTestServer(runner Runner, reader Reader, cfg Config) *Server {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Minute
	}
	return NewServer(runner, reader, cfg, zap.NewNop())
}

func doRequest(s *Server, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeRunner{}, &fakeReader{}, Config{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doRequest(s, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rr.Code, path)
		require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	}
}

func TestListScholarships(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeRunner{}, &fakeReader{records: sampleRecords()}, Config{})

	rr := doRequest(s, http.MethodGet, "/v1/scholarships", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Total)
	require.Equal(t, 3, resp.Count)
	// Default sort is score descending.
	require.Equal(t, "DAAD EPOS", resp.Scholarships[0].ProgramName)
	require.Equal(t, "Chevening", resp.Scholarships[1].ProgramName)
	require.Equal(t, "Gates Cambridge", resp.Scholarships[2].ProgramName)
}

func TestListScholarshipsMinScoreFilter(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeRunner{}, &fakeReader{records: sampleRecords()}, Config{})

	rr := doRequest(s, http.MethodGet, "/v1/scholarships?min_score=70", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Total)
	require.Equal(t, 2, resp.Count)
	for _, rec := range resp.Scholarships {
		require.GreaterOrEqual(t, rec.MatchScore, 70)
	}
}

func TestListScholarshipsSortDeadline(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeRunner{}, &fakeReader{records: sampleRecords()}, Config{})

	rr := doRequest(s, http.MethodGet, "/v1/scholarships?sort=deadline", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "Chevening", resp.Scholarships[0].ProgramName)
	require.Equal(t, "DAAD EPOS", resp.Scholarships[1].ProgramName)
	// "rolling" is not a parseable deadline and sorts last.
	require.Equal(t, "Gates Cambridge", resp.Scholarships[2].ProgramName)
}

func TestListScholarshipsBadParams(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeRunner{}, &fakeReader{records: sampleRecords()}, Config{})

	tests := []struct {
		name   string
		target string
	}{
		{"non-numeric min_score", "/v1/scholarships?min_score=high"},
		{"min_score above 100", "/v1/scholarships?min_score=150"},
		{"negative min_score", "/v1/scholarships?min_score=-1"},
		{"unknown sort key", "/v1/scholarships?sort=alphabetical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rr := doRequest(s, http.MethodGet, tt.target, "", nil)
			require.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestListScholarshipsReaderFailureServesEmpty(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeRunner{}, &fakeReader{err: errors.New("sheet down")}, Config{})

	rr := doRequest(s, http.MethodGet, "/v1/scholarships", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 0, resp.Total)
}

func TestGetStats(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeRunner{}, &fakeReader{records: sampleRecords()}, Config{})

	rr := doRequest(s, http.MethodGet, "/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp statsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Overview.Total)
	require.Equal(t, map[string]int{"New": 2, "Applied": 1}, resp.Statuses)
	require.Len(t, resp.Histogram, 10)
}

func TestGetConfigStatus(t *testing.T) {
	t.Parallel()

	creds := map[string]bool{"gemini_api_key": true, "search_api_key": false}
	s := newTestServer(&fakeRunner{}, &fakeReader{}, Config{Credentials: creds})

	rr := doRequest(s, http.MethodGet, "/v1/config", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Credentials map[string]bool `json:"credentials"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, creds, resp.Credentials)
}

func TestTriggerRun(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{summary: pipeline.Summary{
		Results:   5,
		Processed: 4,
		Matches:   2,
		Elapsed:   3 * time.Second,
	}}
	s := newTestServer(runner, &fakeReader{}, Config{
		DefaultQuery:      "default query",
		DefaultMaxResults: 10,
	})

	rr := doRequest(s, http.MethodPost, "/v1/runs", `{"query":"custom","max_results":5}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, runner.timesRun)
	require.Equal(t, "custom", runner.lastQuery)
	require.Equal(t, 5, runner.lastMax)

	var resp runResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 5, resp.Results)
	require.Equal(t, 4, resp.Processed)
	require.Equal(t, 2, resp.Matches)
	require.InDelta(t, 3.0, resp.ElapsedSeconds, 0.001)
}

func TestTriggerRunDefaults(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s := newTestServer(runner, &fakeReader{}, Config{
		DefaultQuery:      "default query",
		DefaultMaxResults: 10,
	})

	rr := doRequest(s, http.MethodPost, "/v1/runs", `{}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "default query", runner.lastQuery)
	require.Equal(t, 10, runner.lastMax)
}

func TestTriggerRunBadJSON(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s := newTestServer(runner, &fakeReader{}, Config{})

	rr := doRequest(s, http.MethodPost, "/v1/runs", `{"query":`, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Zero(t, runner.timesRun)
}

func TestTriggerRunFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: errors.New("run blew up")}
	s := newTestServer(runner, &fakeReader{}, Config{})

	rr := doRequest(s, http.MethodPost, "/v1/runs", `{}`, nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestTriggerRunInvalidatesCache(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{records: sampleRecords()}
	s := newTestServer(&fakeRunner{}, reader, Config{CacheTTL: time.Hour})

	doRequest(s, http.MethodGet, "/v1/scholarships", "", nil)
	doRequest(s, http.MethodGet, "/v1/scholarships", "", nil)
	require.Equal(t, 1, reader.calls)

	doRequest(s, http.MethodPost, "/v1/runs", `{}`, nil)
	doRequest(s, http.MethodGet, "/v1/scholarships", "", nil)
	require.Equal(t, 2, reader.calls)
}

func TestAPIKeyAuth(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeRunner{}, &fakeReader{}, Config{
		AuthEnabled: true,
		APIKey:      "s3cret",
	})

	rr := doRequest(s, http.MethodGet, "/v1/scholarships", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(s, http.MethodGet, "/v1/scholarships", "", http.Header{
		"X-Api-Key": []string{"wrong"},
	})
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(s, http.MethodGet, "/v1/scholarships", "", http.Header{
		"X-Api-Key": []string{"s3cret"},
	})
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeRunner{}, &fakeReader{}, Config{})

	rr := doRequest(s, http.MethodGet, "/healthz", "", nil)
	require.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}
