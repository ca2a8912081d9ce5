package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/router"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthRequest() *router.Request {
	return &router.Request{Request: httptest.NewRequest(http.MethodGet, "/health", nil)}
}

func TestHealth(t *testing.T) {
	t.Run("NothingConfigured", func(t *testing.T) {
		a := &App{}
		got, err := a.health(healthRequest())
		require.NoError(t, err)
		assert.Equal(t, healthResponse{Status: healthUp, Database: healthDisabled, Redis: healthDisabled}, got)
	})

	t.Run("RedisUp", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		a := &App{cacheConn: client}
		got, err := a.health(healthRequest())
		require.NoError(t, err)
		assert.Equal(t, healthUp, got.(healthResponse).Redis)
	})

	t.Run("RedisDown", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		t.Cleanup(func() { _ = client.Close() })
		mr.Close()

		a := &App{cacheConn: client}
		_, err := a.health(healthRequest())
		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, goerror.CodeUnavailable, gerr.Code())
	})
}
