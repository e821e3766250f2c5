package outlier

import (
	"context"
	"errors"
	"fmt"
	"time"

	xhttp "PricePulse/pkg/http"
)

// RemoteDetector delegates classification to an HTTP model service.
type RemoteDetector struct {
	baseURL  string
	client   *xhttp.Client
	attempts int
}

func NewRemoteDetector(baseURL string, timeout time.Duration, attempts int) *RemoteDetector {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if attempts < 1 {
		attempts = 1
	}
	return &RemoteDetector{
		baseURL:  baseURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		attempts: attempts,
	}
}

type classifyReq struct {
	Points []float64 `json:"points"`
	Query  float64   `json:"query"`
}

type classifyResp struct {
	Outlier bool `json:"outlier"`
}

func (d *RemoteDetector) Name() string { return "remote" }

func (d *RemoteDetector) FitAndClassify(ctx context.Context, points []float64, query float64) (bool, error) {
	if d.baseURL == "" {
		return false, fmt.Errorf("remote detector: base url not configured")
	}
	var resp classifyResp
	var err error
	for i := 1; i <= d.attempts; i++ {
		err = d.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:  xhttp.MethodPost,
			URL:     d.baseURL + "/outlier/classify",
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    classifyReq{Points: points, Query: query},
		}, &resp)
		if err == nil {
			return resp.Outlier, nil
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Temporary() {
			break
		}
		if i == d.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return false, fmt.Errorf("post classify: %w", err)
}
