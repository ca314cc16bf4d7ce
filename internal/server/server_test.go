package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"quill/internal/config"
	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

// testServer wires a Server over an in-memory database with no Redis.
type testServer struct {
	t   *testing.T
	srv *Server
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db := testutil.NewDB(t)
	cfg := &config.Config{
		JWTSecret:       testSecret,
		Env:             "test",
		UploadDir:       t.TempDir(),
		UploadBaseURL:   "http://localhost:8375",
		UploadMaxSizeMB: 1,
		FeatureFlags:    "web_push=on",
		VAPIDPublicKey:  "BPublicKey",
	}
	srv, err := NewServer(cfg, db, nil)
	require.NoError(t, err)

	// Runs before the database cleanup registered by NewDB.
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.dispatcher.Wait(ctx)
	})

	return &testServer{t: t, srv: srv, app: srv.NewApp(), db: db}
}

func (ts *testServer) user(name string) (*models.User, string) {
	ts.t.Helper()
	u := testutil.CreateUser(ts.t, ts.db, name)
	token, err := ts.srv.tokens.Issue(u.ID)
	require.NoError(ts.t, err)
	return u, token
}

// do sends a JSON request. A nil body sends none; an empty token sends no
// Authorization header.
func (ts *testServer) do(method, path string, body any, token string) *http.Response {
	ts.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(ts.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(ts.t, err)
	ts.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// settle waits for detached notification work started by a request.
func (ts *testServer) settle() {
	ts.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(ts.t, ts.srv.dispatcher.Wait(ctx))
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func uintStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
