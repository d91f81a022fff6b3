package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-teamchat/internal/config"
	"github.com/npezzotti/go-teamchat/internal/database"
	"github.com/npezzotti/go-teamchat/internal/server"
	"github.com/npezzotti/go-teamchat/internal/stats"
	"github.com/npezzotti/go-teamchat/internal/testutil"
	"github.com/npezzotti/go-teamchat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMockStats() *stats.MockStatsUpdater {
	return (&stats.MockStatsUpdater{}).AllowAll()
}

func Test_healthCheck(t *testing.T) {
	mockRepo := &database.MockTeamChatRepository{}
	defer mockRepo.AssertExpectations(t)

	tcases := []struct {
		name    string
		mockErr error
	}{
		{
			name:    "successful health check",
			mockErr: nil,
		},
		{
			name:    "failed health check",
			mockErr: errors.New("db error"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo.On("Ping").Return(tc.mockErr).Once()
			app := NewTeamChatApp(http.NewServeMux(), testutil.TestLogger(t), nil, mockRepo, &config.Config{})
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			app.mux.Handler.ServeHTTP(rr, req)

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusServiceUnavailable, rr.Code, "expected status code to be 503")
			} else {
				assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
				assert.Equal(t, "OK", rr.Body.String(), "expected response body to be 'OK'")
			}
		})
	}
}

func Test_presence(t *testing.T) {
	db := &database.MockTeamChatRepository{}
	defer db.AssertExpectations(t)
	db.On("SetUserOnline", mock.Anything, "u1", true).Return(nil).Once()
	db.On("SetUserOnline", mock.Anything, "u2", false).Return(nil).Once()

	cs, err := server.NewChatServer(testutil.TestLogger(t), db, nil, newMockStats())
	require.NoError(t, err)
	require.NoError(t, cs.Presence().SetOnline(context.Background(), "u1", true))
	require.NoError(t, cs.Presence().SetOnline(context.Background(), "u2", false))

	app := NewTeamChatApp(http.NewServeMux(), testutil.TestLogger(t), cs, db, &config.Config{SigningKey: testSigningKey})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/presence", nil)
	req.Header.Set("Authorization", "Bearer "+userToken(t, "u1"))
	app.mux.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"u1":true,"u2":false}`, rr.Body.String())

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/presence", nil)
	app.mux.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func newWsTestServer(t *testing.T, db database.TeamChatRepository) *httptest.Server {
	// connection goroutines may outlive the test, so logs are discarded
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cs, err := server.NewChatServer(logger, db, nil, newMockStats())
	require.NoError(t, err)
	go cs.Run()

	app := NewTeamChatApp(http.NewServeMux(), logger, cs, db, &config.Config{
		SigningKey:     testSigningKey,
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	srv := httptest.NewServer(app.mux.Handler)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		cs.Shutdown(ctx)
		srv.Close()
	})

	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func Test_serveWs(t *testing.T) {
	db := &database.MockTeamChatRepository{}
	defer db.AssertExpectations(t)
	db.On("GetAccountById", mock.Anything, "u1").Return(types.User{Id: "u1", Username: "alice"}, nil)
	db.On("GetAccountById", mock.Anything, "ghost").Return(types.User{}, database.ErrNotFound)
	db.On("SetUserOnline", mock.Anything, "u1", true).Return(nil).Once()

	srv := newWsTestServer(t, db)

	t.Run("upgrades an authenticated connection", func(t *testing.T) {
		header := http.Header{}
		header.Set("Authorization", "Bearer "+userToken(t, "u1"))
		header.Set("Origin", "http://localhost:3000")

		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(map[string]any{
			"event": server.EventUserJoin,
			"data":  map[string]any{"id": "u1", "isOnline": true},
		}))

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, server.EventUserJoin, msg.Event)
		assert.JSONEq(t, `{"id":"u1","isOnline":true}`, string(msg.Data))
	})

	tcases := []struct {
		name     string
		header   func() http.Header
		wantCode int
	}{
		{
			name:     "missing token",
			header:   func() http.Header { return http.Header{} },
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "unknown account",
			header: func() http.Header {
				h := http.Header{}
				h.Set("Authorization", "Bearer "+userToken(t, "ghost"))
				return h
			},
			wantCode: http.StatusNotFound,
		},
		{
			name: "disallowed origin",
			header: func() http.Header {
				h := http.Header{}
				h.Set("Authorization", "Bearer "+userToken(t, "u1"))
				h.Set("Origin", "http://evil.example.com")
				return h
			},
			wantCode: http.StatusForbidden,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), tc.header())
			if conn != nil {
				conn.Close()
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			assert.Equal(t, tc.wantCode, resp.StatusCode)
		})
	}
}
