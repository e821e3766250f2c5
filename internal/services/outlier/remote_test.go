package outlier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRemoteDetector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/outlier/classify" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req classifyReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(classifyResp{Outlier: req.Query > 100})
	}))
	defer srv.Close()

	d := NewRemoteDetector(srv.URL, time.Second, 1)
	got, err := d.FitAndClassify(context.Background(), []float64{1, 2, 3}, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Fatalf("expected outlier")
	}
}

func TestRemoteDetectorRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"outlier":false}`))
	}))
	defer srv.Close()

	d := NewRemoteDetector(srv.URL, time.Second, 3)
	if _, err := d.FitAndClassify(context.Background(), []float64{1, 2}, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRemoteDetectorFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewRemoteDetector(srv.URL, time.Second, 2)
	if _, err := d.FitAndClassify(context.Background(), []float64{1, 2}, 1); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRemoteDetectorNoRetryOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	d := NewRemoteDetector(srv.URL, time.Second, 3)
	if _, err := d.FitAndClassify(context.Background(), []float64{1, 2}, 1); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
