package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/pkg/config"
	"discord-package-parser/internal/ports"
)

// mockProcessor - подмена варианта использования
type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) ProcessPackage(ctx context.Context, filePath string, sink ports.Sink) (*domain.Report, error) {
	args := m.Called(ctx, filePath, sink)
	if res := args.Get(0); res != nil {
		return res.(*domain.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server: config.Server{
			Host:            "localhost",
			Port:            8080,
			MaxUploadSizeMB: 1,
			UploadDir:       t.TempDir(),
			CleanupInterval: time.Minute,
		},
		Processing: config.Processing{
			ResultRetention: time.Hour,
		},
	}
}

func newTestServer(t *testing.T, proc PackageProcessor) *Server {
	t.Helper()
	srv, err := New(testConfig(t), proc, NewTaskStore(), NewMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return srv
}

func uploadRequest(t *testing.T, content []byte) *http.Request {
	t.Helper()
	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	fw, err := writer.CreateFormFile("file", "package.zip")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", &b)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func startTask(t *testing.T, srv *Server) string {
	t.Helper()
	rr := serve(srv, uploadRequest(t, []byte("PK fake archive")))
	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotEmpty(t, resp["task_id"])
	return resp["task_id"]
}

func waitStatus(t *testing.T, srv *Server, taskID string, status TaskStatus) Task {
	t.Helper()
	require.Eventually(t, func() bool {
		task, err := srv.taskStore.GetTask(taskID)
		return err == nil && task.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	task, _ := srv.taskStore.GetTask(taskID)
	return task
}

func sampleReport() *domain.Report {
	stats := domain.NewUserStatistics()
	stats.MessageCount = 42
	stats.ChannelCount = 3
	events := domain.NewEventStatistics()
	events.AllEvents = 7
	return &domain.Report{Statistics: stats, Events: events}
}

func TestServer(t *testing.T) {
	t.Run("Проверка работоспособности", func(t *testing.T) {
		srv := newTestServer(t, new(mockProcessor))
		rr := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "ok", resp["status"])
	})

	t.Run("Загрузка архива и получение результата", func(t *testing.T) {
		proc := new(mockProcessor)
		report := sampleReport()
		var uploaded string
		proc.On("ProcessPackage", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
			Run(func(args mock.Arguments) {
				uploaded = args.String(1)
				data, err := os.ReadFile(uploaded)
				assert.NoError(t, err)
				assert.Equal(t, "PK fake archive", string(data))
				args.Get(2).(ports.Sink).Progress(domain.StepMessages, "Found 3 channels to process")
			}).
			Return(report, nil).Once()
		srv := newTestServer(t, proc)

		taskID := startTask(t, srv)
		task := waitStatus(t, srv, taskID, TaskStatusCompleted)
		proc.AssertExpectations(t)
		assert.Equal(t, "Found 3 channels to process", task.Progress)

		require.Eventually(t, func() bool {
			_, err := os.Stat(uploaded)
			return os.IsNotExist(err)
		}, time.Second, 5*time.Millisecond, "временный файл удаляется после обработки")

		rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+taskID+"/result", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var got domain.Report
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		require.NotNil(t, got.Statistics)
		require.NotNil(t, got.Events)
		assert.Equal(t, uint64(42), got.Statistics.MessageCount)
		assert.Equal(t, uint64(7), got.Events.AllEvents)
	})

	t.Run("Результат в текстовом виде и XLSX", func(t *testing.T) {
		srv := newTestServer(t, new(mockProcessor))
		srv.taskStore.CreateTask("done", time.Minute, nil)
		require.NoError(t, srv.taskStore.UpdateTaskResult("done", sampleReport()))

		rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/done/result?format=text", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "--- Discord Package Statistics ---")

		rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/done/result?format=xlsx", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "discord_stats.xlsx")
		assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")))

		rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/done/result?format=pdf", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Ошибка обработки отражается в статусе", func(t *testing.T) {
		proc := new(mockProcessor)
		proc.On("ProcessPackage", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				args.Get(2).(ports.Sink).Error(domain.StepMessages, "messages root not found", domain.TitleExtraction)
			}).
			Return(nil, &domain.StructuralError{Root: "messages"}).Once()
		srv := newTestServer(t, proc)

		taskID := startTask(t, srv)
		waitStatus(t, srv, taskID, TaskStatusFailed)

		rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+taskID, nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var resp taskResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, TaskStatusFailed, resp.Status)
		assert.Equal(t, domain.TitleExtraction, resp.ErrorTitle)
		assert.Equal(t, "messages", resp.Step)
		assert.Contains(t, resp.ErrorMessage, "messages root not found")

		rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+taskID+"/result", nil))
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("Отмена задачи", func(t *testing.T) {
		proc := new(mockProcessor)
		started := make(chan struct{})
		proc.On("ProcessPackage", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				close(started)
				<-args.Get(0).(context.Context).Done()
			}).
			Return(nil, domain.ErrCancelled).Once()
		srv := newTestServer(t, proc)

		taskID := startTask(t, srv)
		<-started

		rr := serve(srv, httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/"+taskID, nil))
		assert.Equal(t, http.StatusAccepted, rr.Code)
		waitStatus(t, srv, taskID, TaskStatusCancelled)

		rr = serve(srv, httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/"+taskID, nil))
		assert.Equal(t, http.StatusConflict, rr.Code)

		rr = serve(srv, httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/non-existent", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Истечение task_timeout - ошибка, а не отмена", func(t *testing.T) {
		proc := new(mockProcessor)
		proc.On("ProcessPackage", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			}).
			Return(nil, domain.ErrCancelled).Once()

		cfg := testConfig(t)
		cfg.Processing.TaskTimeout = 20 * time.Millisecond
		srv, err := New(cfg, proc, NewTaskStore(), NewMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))
		require.NoError(t, err)

		taskID := startTask(t, srv)
		task := waitStatus(t, srv, taskID, TaskStatusFailed)
		assert.Equal(t, TitleTimeout, task.ErrorTitle)
		assert.Contains(t, task.ErrorMessage, "20ms")
	})

	t.Run("Задача не найдена", func(t *testing.T) {
		srv := newTestServer(t, new(mockProcessor))
		rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/non-existent", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Некорректные загрузки", func(t *testing.T) {
		srv := newTestServer(t, new(mockProcessor))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/process", strings.NewReader("plain"))
		req.Header.Set("Content-Type", "text/plain")
		assert.Equal(t, http.StatusBadRequest, serve(srv, req).Code)

		big := bytes.Repeat([]byte("x"), 2<<20)
		assert.Equal(t, http.StatusRequestEntityTooLarge, serve(srv, uploadRequest(t, big)).Code)
	})

	t.Run("Метрики", func(t *testing.T) {
		proc := new(mockProcessor)
		proc.On("ProcessPackage", mock.Anything, mock.Anything, mock.Anything).Return(sampleReport(), nil).Once()
		srv := newTestServer(t, proc)

		taskID := startTask(t, srv)
		waitStatus(t, srv, taskID, TaskStatusCompleted)

		require.Eventually(t, func() bool {
			body := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Body.String()
			return strings.Contains(body, `dpkg_tasks_total{status="completed"} 1`)
		}, time.Second, 5*time.Millisecond)

		body := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Body.String()
		assert.Contains(t, body, "dpkg_extraction_duration_seconds_count 1")
		assert.Contains(t, body, `route="/api/v1/process"`)
	})
}
