package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfslender/Media-Usage-Checker/internal/config"
	"github.com/wolfslender/Media-Usage-Checker/pkg/batch"
	"github.com/wolfslender/Media-Usage-Checker/pkg/cleanup"
	"github.com/wolfslender/Media-Usage-Checker/pkg/log"
	"github.com/wolfslender/Media-Usage-Checker/pkg/usage"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress"
)

const testSecret = "s3cret"

type fakeWalker struct {
	busy       bool
	status     batch.Status
	lastFilter string
	lastPage   int
}

func (f *fakeWalker) Step(ctx context.Context, opts batch.StepOptions) (*batch.StepResult, error) {
	if f.busy {
		return nil, batch.ErrBusy
	}
	return &batch.StepResult{RunID: "run-1", Visited: 3, NextOffset: 3, Completed: true}, nil
}

func (f *fakeWalker) Status(ctx context.Context) (*batch.Status, error) {
	status := f.status
	return &status, nil
}

func (f *fakeWalker) Results(ctx context.Context, status string, page, perPage int) (*batch.ResultPage, error) {
	f.lastFilter = status
	f.lastPage = page
	return &batch.ResultPage{RunID: "run-1", Page: page, PerPage: perPage}, nil
}

func (f *fakeWalker) Reset(ctx context.Context) (bool, error) {
	return true, nil
}

type fakeChecker struct{}

func (fakeChecker) CheckID(ctx context.Context, id uint64, opts usage.Options) (usage.Verdict, *wordpress.Attachment, error) {
	switch id {
	case 404:
		return usage.Verdict{}, nil, wordpress.ErrNotFound
	case 422:
		return usage.Verdict{}, &wordpress.Attachment{ID: id}, usage.ErrNoURL
	}
	return usage.Verdict{AttachmentID: id, Used: true, Reason: usage.ReasonPostMeta},
		&wordpress.Attachment{ID: id, URL: "https://example.test/a.jpg"}, nil
}

type fakeCleaner struct {
	ids   []uint64
	mode  cleanup.Mode
	actor string
}

func (f *fakeCleaner) Delete(ctx context.Context, ids []uint64, mode cleanup.Mode, actor string) (*cleanup.Report, error) {
	f.ids, f.mode, f.actor = ids, mode, actor
	return &cleanup.Report{Deleted: len(ids)}, nil
}

func (f *fakeCleaner) Restore(ctx context.Context, ids []uint64, actor string) (*cleanup.Report, error) {
	f.ids, f.actor = ids, actor
	return &cleanup.Report{Restored: len(ids)}, nil
}

type harness struct {
	server  *Server
	walker  *fakeWalker
	cleaner *fakeCleaner
	token   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	walker := &fakeWalker{status: batch.Status{TotalMedia: 10, RunID: "run-1", InProgress: true, Offset: 5, RunTotal: 10}}
	cleaner := &fakeCleaner{}
	server := NewServer(walker, fakeChecker{}, cleaner, log.Discard(), config.APIConfig{
		Enabled: true,
		Address: "127.0.0.1:0",
		Secret:  testSecret,
		Mode:    "test",
	})

	token, err := IssueToken(testSecret, "alice", []string{CapManageOptions, CapUploadFiles}, time.Hour)
	require.NoError(t, err)

	return &harness{server: server, walker: walker, cleaner: cleaner, token: token}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestAuthorization(t *testing.T) {
	h := newHarness(t)

	uploadOnly, err := IssueToken(testSecret, "bob", []string{CapUploadFiles}, time.Hour)
	require.NoError(t, err)

	wrongSecret, err := IssueToken("other", "eve", []string{CapManageOptions, CapUploadFiles}, time.Hour)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Capabilities: []string{CapManageOptions, CapUploadFiles},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
		code   ResponseCode
	}{
		{name: "missing token", token: "", status: http.StatusUnauthorized, code: CodeUnauthorized},
		{name: "garbage token", token: "not-a-jwt", status: http.StatusUnauthorized, code: CodeUnauthorized},
		{name: "wrong secret", token: wrongSecret, status: http.StatusUnauthorized, code: CodeUnauthorized},
		{name: "expired", token: expired, status: http.StatusUnauthorized, code: CodeUnauthorized},
		{name: "missing capability", token: uploadOnly, status: http.StatusForbidden, code: CodeForbidden},
		{name: "authorized", token: h.token, status: http.StatusOK, code: CodeSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := h.do(t, http.MethodGet, "/v1/status", tt.token, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	_, err := IssueToken("", "alice", nil, 0)
	assert.Error(t, err)
}

func TestProgress(t *testing.T) {
	h := newHarness(t)

	rec, resp := h.do(t, http.MethodGet, "/v1/progress", h.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(50), data["progress"])
	assert.Equal(t, true, data["in_progress"])
}

func TestScan(t *testing.T) {
	h := newHarness(t)

	rec, resp := h.do(t, http.MethodPost, "/v1/scan", h.token, scanRequest{Fresh: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, CodeSuccess, resp.Code)

	h.walker.busy = true
	rec, resp = h.do(t, http.MethodPost, "/v1/scan", h.token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeBusy, resp.Code)
}

func TestListMedia(t *testing.T) {
	h := newHarness(t)

	rec, _ := h.do(t, http.MethodGet, "/v1/media?filter=all&page=2", h.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.walker.lastFilter)
	assert.Equal(t, 2, h.walker.lastPage)

	rec, _ = h.do(t, http.MethodGet, "/v1/media", h.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unused", h.walker.lastFilter)

	rec, resp := h.do(t, http.MethodGet, "/v1/media?filter=weird", h.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidParameter, resp.Code)

	rec, _ = h.do(t, http.MethodGet, "/v1/media?page=0", h.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsage(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		path   string
		status int
		code   ResponseCode
	}{
		{path: "/v1/media/42/usage", status: http.StatusOK, code: CodeSuccess},
		{path: "/v1/media/0/usage", status: http.StatusBadRequest, code: CodeInvalidParameter},
		{path: "/v1/media/abc/usage", status: http.StatusBadRequest, code: CodeInvalidParameter},
		{path: "/v1/media/404/usage", status: http.StatusNotFound, code: CodeNotFound},
		{path: "/v1/media/422/usage", status: http.StatusUnprocessableEntity, code: CodeNoURL},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, resp := h.do(t, http.MethodGet, tt.path, h.token, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestDeleteAndRestore(t *testing.T) {
	h := newHarness(t)

	rec, resp := h.do(t, http.MethodPost, "/v1/media/delete", h.token, idsRequest{IDs: []uint64{1, 2}, Mode: "trash"})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	assert.Equal(t, []uint64{1, 2}, h.cleaner.ids)
	assert.Equal(t, cleanup.ModeTrash, h.cleaner.mode)
	assert.Equal(t, "api:alice", h.cleaner.actor)

	rec, _ = h.do(t, http.MethodPost, "/v1/media/delete", h.token, idsRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(t, http.MethodPost, "/v1/media/delete", h.token, idsRequest{IDs: []uint64{0}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(t, http.MethodPost, "/v1/media/delete", h.token, idsRequest{IDs: []uint64{1}, Mode: "shred"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = h.do(t, http.MethodPost, "/v1/media/restore", h.token, idsRequest{IDs: []uint64{7}})
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["restored"])
}
