package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/report"
	"PricePulse/internal/service/ratelimit"
	"PricePulse/internal/usecase"
)

var runDate = time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)

type fakeReports struct {
	rep models.Report
	err error
}

func (f *fakeReports) Anomalies(_ context.Context, brand, name string) (models.Report, error) {
	if f.err != nil {
		return models.Report{}, f.err
	}
	rep := f.rep
	rep.Records = report.Filter(rep.Records, brand, name)
	return rep, nil
}

func (f *fakeReports) Movers(_ context.Context, kind domrepo.MoverKind, limit int) (*usecase.MoversResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	recs := report.Movers(f.rep.Records, kind, limit)
	return &usecase.MoversResult{RunDate: f.rep.RunDate, Kind: kind, Count: len(recs), Records: recs}, nil
}

type fakeRuns struct {
	calls   int
	lastCSV bool
	ctxErr  error
	err     error
}

func (f *fakeRuns) Run(ctx context.Context, opts usecase.RunOptions) (models.RunSummary, error) {
	f.calls++
	f.lastCSV = opts.CSVOut
	f.ctxErr = ctx.Err()
	return models.RunSummary{RunDate: runDate, Entities: 4, Flagged: 1}, f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(context.Context) error { return f.err }

func record(name string, pct float64) models.AnomalyRecord {
	return models.AnomalyRecord{
		Brand:       "Acme",
		Name:        name,
		LatestDate:  runDate,
		LatestPrice: decimal.NewFromInt(10),
		MedianPrice: decimal.NewFromInt(10),
		PctDiff:     decimal.NewFromFloat(pct),
		Reasons:     []string{"median_diff_30pct"},
	}
}

func newTestServer(reports ReportReader, runs RunTrigger, health HealthChecker, limiter *ratelimit.Limiter) *echo.Echo {
	e := echo.New()
	NewAnomaliesEchoHandler(nil, reports, runs, health, limiter).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if dst != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func TestMovers(t *testing.T) {
	reports := &fakeReports{rep: models.Report{RunDate: runDate, Records: []models.AnomalyRecord{
		record("Milk", -40), record("Bread", 55), record("Eggs", -70), record("Tea", 35),
	}}}
	e := newTestServer(reports, &fakeRuns{}, fakeHealth{}, nil)

	tests := []struct {
		name   string
		query  string
		status int
		want   []string
	}{
		{"default deals", "", http.StatusOK, []string{"Eggs", "Milk"}},
		{"hikes", "?kind=hike", http.StatusOK, []string{"Bread", "Tea"}},
		{"limited", "?kind=hike&limit=1", http.StatusOK, []string{"Bread"}},
		{"bad kind", "?kind=flat", http.StatusBadRequest, nil},
		{"bad limit", "?limit=0", http.StatusOK, []string{"Eggs", "Milk"}},
		{"limit too large", "?limit=501", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodGet, "/api/movers"+tt.query, "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var res usecase.MoversResult
			decode(t, rec, &res)
			var got []string
			for _, r := range res.Records {
				got = append(got, r.Name)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Fatalf("names = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnomalies(t *testing.T) {
	reports := &fakeReports{rep: models.Report{RunDate: runDate, Records: []models.AnomalyRecord{
		record("Whole Milk", -40), record("Bread", 55),
	}}}
	e := newTestServer(reports, &fakeRuns{}, fakeHealth{}, nil)

	rec := do(e, http.MethodGet, "/api/anomalies?name=milk", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rep models.Report
	decode(t, rec, &rep)
	if len(rep.Records) != 1 || rep.Records[0].Name != "Whole Milk" {
		t.Fatalf("records = %+v", rep.Records)
	}
}

func TestAnomalies_NoReport(t *testing.T) {
	reports := &fakeReports{err: fmt.Errorf("latest report: %w", domrepo.ErrNotFound)}
	e := newTestServer(reports, &fakeRuns{}, fakeHealth{}, nil)

	if rec := do(e, http.MethodGet, "/api/anomalies", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/movers", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("movers status = %d, want 404", rec.Code)
	}
}

func TestTriggerRun(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"ok", nil, http.StatusOK},
		{"csv failure keeps summary", fmt.Errorf("%w: disk full", usecase.ErrReportCSV), http.StatusOK},
		{"in progress", usecase.ErrRunInProgress, http.StatusConflict},
		{"failed", errors.New("load observations: boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := &fakeRuns{err: tt.err}
			e := newTestServer(&fakeReports{}, runs, fakeHealth{}, nil)

			rec := do(e, http.MethodPost, "/api/runs", `{"csv_out":true}`)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if !runs.lastCSV {
				t.Fatal("csv_out not forwarded")
			}
			if tt.status == http.StatusOK {
				var sum models.RunSummary
				decode(t, rec, &sum)
				if sum.Flagged != 1 || !sum.RunDate.Equal(runDate) {
					t.Fatalf("summary = %+v", sum)
				}
			}
		})
	}
}

func TestTriggerRun_DetachedFromClient(t *testing.T) {
	runs := &fakeRuns{}
	e := newTestServer(&fakeReports{}, runs, fakeHealth{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/runs", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if runs.ctxErr != nil {
		t.Fatalf("run context cancelled with the request: %v", runs.ctxErr)
	}
}

func TestTriggerRun_RateLimited(t *testing.T) {
	runs := &fakeRuns{}
	e := newTestServer(&fakeReports{}, runs, fakeHealth{}, ratelimit.New(1, 1))

	if rec := do(e, http.MethodPost, "/api/runs", ""); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/runs", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if runs.calls != 1 {
		t.Fatalf("calls = %d, want 1", runs.calls)
	}
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"up", nil, http.StatusOK},
		{"down", errors.New("connection refused"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestServer(&fakeReports{}, &fakeRuns{}, fakeHealth{err: tt.err}, nil)
			if rec := do(e, http.MethodGet, "/healthz", ""); rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}
