package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type listReq struct {
	Kind  string `query:"kind" default:"deal" validate:"oneof=deal hike"`
	Limit int    `query:"limit" default:"30" validate:"gte=1,lte=500"`
}

func TestReadAndValidateRequest(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantKind  string
		wantLimit int
		wantField string
	}{
		{name: "defaults", query: "", wantKind: "deal", wantLimit: 30},
		{name: "explicit", query: "?kind=hike&limit=5", wantKind: "hike", wantLimit: 5},
		{name: "bad kind", query: "?kind=flat", wantField: "kind"},
		{name: "limit too large", query: "?limit=1000", wantField: "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil), rec)

			var req listReq
			verr := ReadAndValidateRequest(c, &req)
			if tt.wantField != "" {
				errs, ok := verr.([]ValidationError)
				if !ok || len(errs) == 0 {
					t.Fatalf("expected validation errors, got %#v", verr)
				}
				if errs[0].Field != tt.wantField {
					t.Fatalf("field = %q, want %q", errs[0].Field, tt.wantField)
				}
				return
			}
			if verr != nil {
				t.Fatalf("unexpected validation error: %#v", verr)
			}
			if req.Kind != tt.wantKind || req.Limit != tt.wantLimit {
				t.Fatalf("got %+v", req)
			}
		})
	}
}

func TestAppErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"app error", NotFoundError("no report"), http.StatusNotFound},
		{"wrapped app error", errors.Join(errors.New("ctx"), ConflictError("busy")), http.StatusConflict},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			if err := AppErrorResponse(c, tt.err); err != nil {
				t.Fatalf("write: %v", err)
			}
			if rec.Code != tt.status {
				t.Fatalf("code = %d, want %d", rec.Code, tt.status)
			}
			var body APIResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.status {
				t.Fatalf("body status = %d", body.Status)
			}
		})
	}
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
}

func TestServerRoutesAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(nil, []Handler{pingHandler{}}, WithMetrics("/metrics", reg, reg))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ping code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics code = %d", rec.Code)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "http_requests_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("http_requests_total not registered")
	}

	// a second server on the same registry must not panic
	NewServer(nil, nil, WithMetrics("/metrics", reg, reg))
}
