package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fulfillment-engine/internal/core/config"
	"fulfillment-engine/internal/core/identity"
	"fulfillment-engine/internal/core/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew verifies that New creates a Server with the correct configuration.
func TestNew(t *testing.T) {
	cfg := &config.AppConfig{
		ServerPort:  8080,
		ServiceName: "fulfillment-engine",
	}

	logger.Init("development", "debug")
	srv := New(cfg, nil)

	require.NotNil(t, srv)
	assert.NotNil(t, srv.App)
	assert.Equal(t, cfg, srv.cfg)
}

// TestMiddleware verifies request ids and caller identity reach handlers.
func TestMiddleware(t *testing.T) {
	srv := New(&config.AppConfig{ServiceName: "test"}, nil)
	srv.App.Get("/whoami", func(c *fiber.Ctx) error {
		id, _ := identity.FromCtx(c)
		return c.JSON(fiber.Map{"user": id.UserID, "admin": id.IsAdmin()})
	})

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set(identity.HeaderUserID, "admin-1")
	req.Header.Set(identity.HeaderUserRole, "admin")

	resp, err := srv.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RayIDHeader))
}

func TestHealth(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		srv := New(&config.AppConfig{ServiceName: "test"}, func(context.Context) error { return nil })

		resp, err := srv.App.Test(httptest.NewRequest("GET", "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Store down", func(t *testing.T) {
		srv := New(&config.AppConfig{ServiceName: "test"}, func(context.Context) error { return errors.New("redis ping failed") })

		resp, err := srv.App.Test(httptest.NewRequest("GET", "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

// TestServer_Run_Error verifies that Run returns an error when binding fails (e.g., privileged port).
func TestServer_Run_Error(t *testing.T) {
	// Privileged port 1 should fail
	cfg := &config.AppConfig{
		ServerPort: 1,
	}
	logger.Init("development", "error")

	srv := New(cfg, nil)

	errCh := make(chan error)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(1 * time.Second):
		srv.Shutdown(context.Background())
		t.Log("Server unexpectedly started or timed out on Error test")
	}
}
