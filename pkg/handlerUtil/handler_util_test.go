package handlerUtil

import (
	"CrackDetection/internal/api/detection"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func serve(t *testing.T, err error) (int, ErrorResponse) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := New(logger)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return h.Handle(c, "req-1", err, c.Path(), "test")
	})

	resp, testErr := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, testErr)
	defer resp.Body.Close()

	var body ErrorResponse
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&body))

	return resp.StatusCode, body
}

func TestHandle_MapsDomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "decode", err: fmt.Errorf("%w: no video stream found", detection.ErrDecodeFailed), status: fiber.StatusUnprocessableEntity, code: "DECODE_FAILED"},
		{name: "detection", err: fmt.Errorf("%w: frame 3: connection reset", detection.ErrDetectionFailed), status: fiber.StatusBadGateway, code: "DETECTION_FAILED"},
		{name: "timeout", err: fmt.Errorf("%w: context deadline exceeded", detection.ErrProcessingTimeout), status: fiber.StatusRequestTimeout, code: "PROCESSING_TIMEOUT"},
		{name: "too large", err: detection.ErrVideoTooLarge, status: fiber.StatusRequestEntityTooLarge},
		{name: "missing video", err: detection.ErrVideoRequired, status: fiber.StatusBadRequest},
		{name: "internal", err: detection.ErrInternalServerError, status: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serve(t, tt.err)

			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, "Processing failed: "+tt.err.Error(), body.Error)
		})
	}
}

func TestHandle_DetectionFailureCarriesTraceID(t *testing.T) {
	_, body := serve(t, fmt.Errorf("%w: boom", detection.ErrDetectionFailed))

	assert.Equal(t, "req-1", body.TraceID)
}

func TestHandle_UnknownErrorIsHidden(t *testing.T) {
	status, body := serve(t, errors.New("secret internals"))

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.NotContains(t, body.Error, "secret internals")
	assert.NotEmpty(t, body.TraceID)
}

func TestHandleFiberError(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := fiber.New(fiber.Config{ErrorHandler: New(logger).HandleFiberError})
	app.Get("/too-large", func(c *fiber.Ctx) error {
		return fiber.ErrRequestEntityTooLarge
	})
	app.Get("/broken", func(c *fiber.Ctx) error {
		return errors.New("secret internals")
	})

	decode := func(path string) (int, ErrorResponse) {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		var body ErrorResponse
		require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	status, body := decode("/too-large")
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, status)
	assert.Equal(t, "Processing failed: video file is too large", body.Error)

	status, body = decode("/broken")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.NotContains(t, body.Error, "secret internals")
	assert.NotEmpty(t, body.TraceID)

	status, body = decode("/missing")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Processing failed: Cannot GET /missing", body.Error)
}
