package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	httpH "github.com/yungbote/planadapt-backend/internal/http/handlers"
	"github.com/yungbote/planadapt-backend/internal/jobs/runtime"
	"github.com/yungbote/planadapt-backend/internal/jobs/scheduler"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type stubRunner struct{}

func (stubRunner) RunJob(_ context.Context, name string) (runtime.Report, error) {
	switch name {
	case scheduler.JobDailyAdjustment:
		return runtime.Report{Job: name, Processed: 2, Succeeded: 2}, nil
	case scheduler.JobReassessmentDue:
		return runtime.Report{Job: name}, scheduler.ErrJobRunning
	case "broken":
		return runtime.Report{Job: name, Error: "list active users: timeout"}, nil
	}
	return runtime.Report{Job: name}, fmt.Errorf("%w: %s", scheduler.ErrUnknownJob, name)
}

func newTestRouter(ready error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	metrics := observability.NewMetrics()
	return NewRouter(RouterConfig{
		Log:            logger.Nop(),
		Metrics:        metrics,
		MetricsHandler: metrics.Handler(),
		HealthHandler: httpH.NewHealthHandler(map[string]httpH.Check{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return ready },
		}),
		JobHandler: httpH.NewJobHandler(stubRunner{}),
	})
}

func do(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(nil)
	require.Equal(t, nethttp.StatusOK, do(r, nethttp.MethodGet, "/healthz").Code)

	w := do(r, nethttp.MethodGet, "/readyz")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))

	down := newTestRouter(errors.New("connection refused"))
	w = do(down, nethttp.MethodGet, "/readyz")
	require.Equal(t, nethttp.StatusServiceUnavailable, w.Code)
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Checks["database"])
	require.Equal(t, "connection refused", body.Checks["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(nil)
	do(r, nethttp.MethodGet, "/healthz")
	w := do(r, nethttp.MethodGet, "/metrics")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "planadapt_http_request_seconds"))
}

func TestRunJob(t *testing.T) {
	r := newTestRouter(nil)

	w := do(r, nethttp.MethodPost, "/internal/jobs/daily_adjustment")
	require.Equal(t, nethttp.StatusOK, w.Code)
	var ok struct {
		Report runtime.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	require.Equal(t, 2, ok.Report.Processed)

	require.Equal(t, nethttp.StatusConflict, do(r, nethttp.MethodPost, "/internal/jobs/reassessment_due").Code)
	require.Equal(t, nethttp.StatusNotFound, do(r, nethttp.MethodPost, "/internal/jobs/nope").Code)
	require.Equal(t, nethttp.StatusInternalServerError, do(r, nethttp.MethodPost, "/internal/jobs/broken").Code)
	require.Equal(t, nethttp.StatusNotFound, do(r, nethttp.MethodGet, "/internal/jobs/daily_adjustment").Code)
}
