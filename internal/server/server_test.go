package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/applepay-relay/internal/observability"
)

func startTestServer(t *testing.T, logger observability.Logger) *Server {
	t.Helper()

	srv := New(Config{Address: "127.0.0.1", Port: 0, ReadTimeout: 5 * time.Second}, WithLogger(logger))
	srv.Engine().GET("/merchant-session/new", func(c *gin.Context) {
		c.String(http.StatusOK, "relayed")
	})

	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})
	return srv
}

func TestServer_StartServesAndLogs(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	srv := startTestServer(t, observability.NewLoggerFromCore(core))

	require.True(t, srv.isRunning())
	require.NotNil(t, srv.Addr())

	resp, err := http.Get("http://" + srv.Addr().String() + "/merchant-session/new")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "relayed", string(body))

	listening := logs.FilterMessage("relay listening").All()
	require.Len(t, listening, 1)
	_, port, err := net.SplitHostPort(srv.Addr().String())
	require.NoError(t, err)
	assert.Equal(t, port, strconv.FormatInt(listening[0].ContextMap()["port"].(int64), 10))

	endpoints := logs.FilterMessage("endpoint available").All()
	require.Len(t, endpoints, 1)
	assert.Equal(t, "GET", endpoints[0].ContextMap()["method"])
	assert.Equal(t, "/merchant-session/new", endpoints[0].ContextMap()["path"])
}

func TestServer_StartTwice(t *testing.T) {
	t.Parallel()

	srv := startTestServer(t, nil)
	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestServer_StartPortInUse(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	port := ln.Addr().(*net.TCPAddr).Port
	srv := New(Config{Address: "127.0.0.1", Port: port})

	err = srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
	assert.False(t, srv.isRunning())
	assert.Nil(t, srv.Addr())
}

func TestServer_Stop(t *testing.T) {
	t.Parallel()

	srv := startTestServer(t, nil)
	addr := srv.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.False(t, srv.isRunning())

	_, err := http.Get("http://" + addr + "/merchant-session/new")
	assert.Error(t, err)

	// Stopping again is a no-op.
	assert.NoError(t, srv.Stop(ctx))
}

func TestServer_StopBeforeStart(t *testing.T) {
	t.Parallel()

	srv := New(Config{Port: 0})
	assert.NoError(t, srv.Stop(context.Background()))
}

func TestServer_Address(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ":3000", New(Config{Port: 3000}).Address())
	assert.Equal(t, "127.0.0.1:8080", New(Config{Address: "127.0.0.1", Port: 8080}).Address())
}
