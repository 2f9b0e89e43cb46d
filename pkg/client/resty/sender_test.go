package resty_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/go-ajax/pkg/client/resty"
	"github.com/keboola/go-ajax/pkg/request"
)

var ginMode sync.Once //nolint:gochecknoglobals

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ginMode.Do(func() {
		gin.SetMode(gin.TestMode)
	})

	router := gin.New()
	router.GET("/text", func(c *gin.Context) {
		c.String(http.StatusOK, "hello")
	})
	router.GET("/json", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"a": 1})
	})
	router.GET("/invalid", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte("{a:"))
	})
	router.GET("/missing", func(c *gin.Context) {
		c.String(http.StatusNotFound, "not found")
	})
	router.GET("/redirect", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/text")
	})
	router.POST("/echo", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Header("X-Content-Type", c.GetHeader("Content-Type"))
		c.String(http.StatusOK, string(body))
	})
	router.GET("/slow", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
		case <-time.After(5 * time.Second):
		}
		c.String(http.StatusOK, "late")
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestSender_Text(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	out := <-request.New(srv.URL + "/text").Go(context.Background(), resty.New(5*time.Second))
	require.True(t, out.IsSuccess(), out.Err)
	assert.Equal(t, "hello", out.Value)
	assert.Equal(t, http.StatusOK, out.StatusCode)
}

func TestSender_Structured(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	sender := resty.New(5 * time.Second)

	out := <-request.Ajax(context.Background(), sender, srv.URL+"/json", nil, "GET", "", true)
	require.True(t, out.IsSuccess(), out.Err)
	assert.Equal(t, map[string]any{"a": 1.0}, out.Value)

	out = <-request.Ajax(context.Background(), sender, srv.URL+"/invalid", nil, "GET", "", true)
	require.True(t, out.IsFailure())
	assert.Equal(t, "decode", out.FailureKind())
}

func TestSender_Failures(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	sender := resty.New(5 * time.Second)

	missing := <-request.New(srv.URL + "/missing").Go(context.Background(), sender)
	require.True(t, missing.IsFailure())
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
	assert.Equal(t, "not found", missing.Body)

	redirect := <-request.New(srv.URL + "/redirect").Go(context.Background(), sender)
	require.True(t, redirect.IsFailure())
	assert.Equal(t, http.StatusFound, redirect.StatusCode)
	assert.Equal(t, "/text", redirect.Header.Get("Location"))

	// Closed port
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()
	down := <-request.New(closedURL).Go(context.Background(), sender)
	require.True(t, down.IsFailure())
	assert.Equal(t, 0, down.StatusCode)
	assert.Equal(t, "transport", down.FailureKind())
}

func TestSender_PostBodyAndHeaders(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	headers := map[string]string{"Content-type": "text/csv"}
	out := <-request.Ajax(context.Background(), resty.New(5*time.Second), srv.URL+"/echo", headers, "POST", "a,b\n1,2", false)
	require.True(t, out.IsSuccess(), out.Err)
	assert.Equal(t, "a,b\n1,2", out.Value)
	assert.Equal(t, "text/csv", out.Header.Get("X-Content-Type"))
}

func TestSender_Canceled(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	ch := request.New(srv.URL + "/slow").Go(ctx, resty.New(0))
	time.Sleep(50 * time.Millisecond)
	cancel()

	out := <-ch
	require.True(t, out.IsFailure())
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, 0, out.StatusCode)
}
