package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/vessel-tracks/internal/config"
	"github.com/jengzang/vessel-tracks/internal/database"
	"github.com/jengzang/vessel-tracks/internal/handler"
	"github.com/jengzang/vessel-tracks/internal/middleware"
	"github.com/jengzang/vessel-tracks/internal/repository"
	"github.com/jengzang/vessel-tracks/internal/service"
)

type fakeRuns struct {
	begin, end time.Time
	retried    string
	failed     int
	err        error
}

func (f *fakeRuns) Start(begin, end time.Time) (string, error) {
	f.begin, f.end = begin, end
	if f.err != nil {
		return "", f.err
	}
	return "run-123", nil
}

func (f *fakeRuns) StartRetry(runID string) (int, error) {
	f.retried = runID
	return f.failed, f.err
}

type testServer struct {
	router *gin.Engine
	repo   *repository.DayTaskRepository
	runs   *fakeRuns
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Region.Name = "TestCoast"
	cfg.Paths.CSVOutDir = t.TempDir()
	cfg.Server.JWTSecret = "test-secret"

	db, err := database.Open(database.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewDayTaskRepository(db)
	runs := &fakeRuns{}
	h := handler.NewDayTaskHandler(repo, runs, cfg.Paths.CSVOutDir)
	return &testServer{router: SetupRouter(cfg, h), repo: repo, runs: runs, cfg: cfg}
}

func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "TestCoast", decode(t, w)["region"])
}

func TestListAndGetDays(t *testing.T) {
	s := newTestServer(t)
	tasks, err := s.repo.CreateRun("run-1", []string{"2018-01-01", "2018-01-02"})
	require.NoError(t, err)
	require.NoError(t, s.repo.MarkAsFailed(tasks[1].ID, "boom"))

	w := s.do(http.MethodGet, "/api/v1/days?run_id=run-1&status=failed", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	days := data["days"].([]interface{})
	require.Len(t, days, 1)
	assert.Equal(t, "2018-01-02", days[0].(map[string]interface{})["day"])
	assert.Equal(t, float64(20), data["limit"])

	w = s.do(http.MethodGet, "/api/v1/days/"+itoa(tasks[0].ID), "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decode(t, w)["data"].(map[string]interface{})["status"])

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/days/999", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/days/abc", "", "").Code)
}

func TestDownloadOutput(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.Paths.CSVOutDir, "2018-01-01.csv"), []byte("timestamp\n"), 0o644))

	w := s.do(http.MethodGet, "/api/v1/outputs/2018-01-01", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "timestamp\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "2018-01-01.csv")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/outputs/2018-01-02", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/outputs/2018-13-45", "", "").Code)
}

func TestAdminRequiresToken(t *testing.T) {
	s := newTestServer(t)
	body := `{"begin":"2018-01-01","end":"2018-01-03"}`

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/admin/runs", body, "").Code)

	forged, err := middleware.IssueToken("other-secret", "mallory", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/admin/runs", body, forged).Code)
}

func TestStartRun(t *testing.T) {
	s := newTestServer(t)
	token, err := middleware.IssueToken("test-secret", "alice", time.Hour)
	require.NoError(t, err)

	w := s.do(http.MethodPost, "/api/admin/runs", `{"begin":"2018-01-01","end":"2018-01-03"}`, token)
	require.Equal(t, http.StatusAccepted, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "run-123", data["run_id"])
	assert.Equal(t, "alice", data["started_by"])
	assert.Equal(t, time.Date(2018, 1, 3, 0, 0, 0, 0, time.UTC), s.runs.end)

	assert.Equal(t, http.StatusBadRequest,
		s.do(http.MethodPost, "/api/admin/runs", `{"begin":"2018-01-05","end":"2018-01-03"}`, token).Code)
	assert.Equal(t, http.StatusBadRequest,
		s.do(http.MethodPost, "/api/admin/runs", `{"begin":"Jan 1"}`, token).Code)
}

func TestRetryRun(t *testing.T) {
	s := newTestServer(t)
	token, err := middleware.IssueToken("test-secret", "alice", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/admin/runs/run-9/retry", "", token).Code)
	assert.Equal(t, "run-9", s.runs.retried)

	s.runs.failed = 2
	w := s.do(http.MethodPost, "/api/admin/runs/run-9/retry", "", token)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["data"].(map[string]interface{})["days"])
}

func TestOverlappingRunIsAConflict(t *testing.T) {
	s := newTestServer(t)
	token, err := middleware.IssueToken("test-secret", "alice", time.Hour)
	require.NoError(t, err)
	s.runs.err = fmt.Errorf("%w: 2018-01-02 (run run-1)", service.ErrDaysBusy)

	w := s.do(http.MethodPost, "/api/admin/runs", `{"begin":"2018-01-01","end":"2018-01-03"}`, token)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode(t, w)["message"], "2018-01-02")

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/admin/runs/run-1/retry", "", token).Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
