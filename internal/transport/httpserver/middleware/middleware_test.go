package middleware

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"content-query-service/internal/transport/httpserver/dto"
)

func TestRecover_ReturnsErrorBody(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(Recover(zap.New(core)))
	app.Get("/panic", func(_ *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/panic", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, dto.CodeInternal, body.Code)

	entries := logs.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}

func TestLogger_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	app := fiber.New()
	app.Use(Logger(zap.New(core)))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/denied", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusForbidden) })

	_, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ok", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/denied", nil))
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("request completed").Len())
	assert.Equal(t, 1, logs.FilterMessage("request error").Len())
}

func TestHealthCheck_NilCheckNotReady(t *testing.T) {
	app := fiber.New()
	app.Use(NewHealthCheck(nil))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/readyz", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/livez", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHealthCheck_AllChecksRun(t *testing.T) {
	calls := 0
	check := func(context.Context) error {
		calls++
		return nil
	}

	app := fiber.New()
	app.Use(NewHealthCheck(check, check))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/readyz", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, calls)
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	app := fiber.New()
	app.Use(CORS("https://a.example"))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://b.example")

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}
