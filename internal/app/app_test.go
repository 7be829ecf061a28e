package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/birlikkoshan/todos-api/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppWritesActivityLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	mr := miniredis.RunT(t)

	t.Setenv("TODOS_FILE", filepath.Join(dir, "todos.json"))
	t.Setenv("ACTIVITY_LOG_FILE", filepath.Join(dir, "log.txt"))
	t.Setenv("REDIS_ADDR", mr.Addr())
	cfg, err := config.Load()
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	a, err := New(cfg, log)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"title":"buy milk"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/todos/1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, a.Close(context.Background()))

	b, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)

	line := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z - (.+)$`)
	m := line.FindStringSubmatch(lines[0])
	require.NotNil(t, m, lines[0])
	assert.Equal(t, "POST /todos - Created todo ID 1", m[1])
	m = line.FindStringSubmatch(lines[1])
	require.NotNil(t, m, lines[1])
	assert.Equal(t, "GET /todos/1 - Fetched todo ID 1", m[1])

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	n, err := rdb.XLen(context.Background(), cfg.Redis.Stream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAppFailsOnMissingStoreDir(t *testing.T) {
	t.Setenv("TODOS_FILE", filepath.Join(t.TempDir(), "nope", "todos.json"))
	t.Setenv("ACTIVITY_LOG_FILE", filepath.Join(t.TempDir(), "log.txt"))
	cfg, err := config.Load()
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	_, err = New(cfg, log)
	assert.Error(t, err)
}
