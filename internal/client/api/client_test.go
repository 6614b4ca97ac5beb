package api

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(w http.ResponseWriter, code int, status bool, message string, data interface{}) {
	payload, _ := sonic.Marshal(map[string]interface{}{
		"code":    code,
		"status":  status,
		"message": message,
		"data":    data,
	})
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func TestAuthToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/token", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req dto.AuthTokenRequest
		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "device-0001-ab", req.UserID)

		respond(w, 200, true, "Success", dto.AuthTokenResponse{
			UserID: req.UserID,
			Token:  "jwt-token",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	out, err := c.AuthToken(context.Background(), &dto.AuthTokenRequest{
		UserID:  "device-0001-ab",
		AuthKey: "0123456789abcdef",
	})
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", out.Token)
}

func TestBearerHeaderSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer my-token", r.Header.Get("Authorization"))
		respond(w, 200, true, "Success", dto.SyncStatusResponse{Status: "ok"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "my-token")
	out, err := c.SyncStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Status)
}

func TestBusinessErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, 20002, false, "Auth token is invalid", nil)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "stale")
	_, err := c.Profile(context.Background())
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 20002, apiErr.Code)
	assert.True(t, apiErr.IsAuthError())
	assert.False(t, IsTransient(err))
}

func TestSyncNotesConflictStillReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "7", r.URL.Query().Get("changed_since"))
		respond(w, 30005, false, "Conflicts detected during sync", dto.SyncResponse{
			Success: false,
			Message: "1 note(s) in conflict",
			Conflicts: []dto.NoteConflictDto{
				{SyncID: "n1"},
			},
			NewSyncTimestamp: 99,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	resp, err := c.SyncNotes(context.Background(), 7, &dto.SyncRequest{})
	require.NoError(t, err, "conflict response is a result, not an error")
	assert.False(t, resp.Success)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "n1", resp.Conflicts[0].SyncID)
	assert.Equal(t, int64(99), resp.NewSyncTimestamp)
}

func TestIsTransientClassification(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(&net.DNSError{Err: "no such host", IsNotFound: true}))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(&Error{HTTPStatus: 500, Code: 10005}))
	assert.False(t, IsTransient(&Error{HTTPStatus: 403, Code: 30003}))
	assert.False(t, IsTransient(errors.New("validation failed")))
}

func TestUnreachableServerIsTransient(t *testing.T) {
	// 连接被拒绝属于可重试的网络错误
	c := NewClient("http://127.0.0.1:1", "")
	_, err := c.SyncStatus(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}
