package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	relay "github.com/somnia-social/relay"
)

// RegisterEchoRoutes mounts the relay endpoints on an existing echo router,
// for applications that embed the relay in an echo service instead of
// running the standalone gin server. Behavior, status mapping, and relay
// outcome metrics match the gin handlers; HTTP request middleware stays
// with the embedding application.
func RegisterEchoRoutes(e *echo.Echo, relayer *relay.Relayer) {
	metrics := GetMetrics()

	e.POST("/relay-batch", func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   "failed to read request body: " + err.Error(),
			})
		}

		req, err := ValidateAndDecodeRelayBody(body)
		if err != nil {
			metrics.RelayErrorsTotal.WithLabelValues(relay.ErrCodeInvalidRequest).Inc()
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
		}

		response, rerr := relayer.Relay(c.Request().Context(), req)
		if rerr != nil {
			metrics.RelayErrorsTotal.WithLabelValues(rerr.Code).Inc()
			metrics.RelaySubmissionsTotal.WithLabelValues("failed").Inc()

			payload := map[string]interface{}{
				"success": false,
				"error":   rerr.Message,
				"code":    rerr.Code,
			}
			if rerr.Details != nil {
				payload["details"] = rerr.Details
			}
			if response != nil && response.TxHash != "" {
				payload["txHash"] = response.TxHash
			}
			return c.JSON(statusForCode(rerr.Code), payload)
		}

		metrics.RelaySubmissionsTotal.WithLabelValues("confirmed").Inc()
		metrics.RelayBatchSize.Observe(float64(len(req.Calls)))
		if gas, ok := gasUsedOf(response); ok {
			metrics.RelayGasUsed.Observe(gas)
		}

		return c.JSON(http.StatusOK, response)
	})

	e.GET("/relay-batch", func(c echo.Context) error {
		health, err := relayer.Health(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, health)
	})
}
