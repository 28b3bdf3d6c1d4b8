// Package http exposes the relay service over HTTP: a gin server for the
// relay-batch endpoint plus middleware for request IDs, structured logging,
// and Prometheus metrics.
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	relay "github.com/somnia-social/relay"
)

// Server hosts the relay endpoints.
type Server struct {
	relayer *relay.Relayer
	logger  *zap.Logger
	metrics *Metrics
	engine  *gin.Engine
	srv     *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger installs a structured logger.
func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewServer builds the gin router around relayer.
func NewServer(relayer *relay.Relayer, opts ...ServerOption) *Server {
	s := &Server{
		relayer: relayer,
		logger:  zap.NewNop(),
		metrics: GetMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestIDMiddleware())
	engine.Use(LoggerMiddleware(s.logger))
	engine.Use(MetricsMiddleware())

	engine.POST("/relay-batch", s.handleRelayBatch)
	engine.GET("/relay-batch", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine = engine
	return s
}

// Engine returns the underlying router, for tests and embedding.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
// Submissions already past validation keep running to completion; a batch
// must never be half-relayed because the process was asked to stop.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) handleRelayBatch(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "failed to read request body: " + err.Error(),
		})
		return
	}

	req, err := ValidateAndDecodeRelayBody(body)
	if err != nil {
		s.metrics.RelayErrorsTotal.WithLabelValues(relay.ErrCodeInvalidRequest).Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	response, rerr := s.relayer.Relay(c.Request.Context(), req)
	if rerr != nil {
		s.metrics.RelayErrorsTotal.WithLabelValues(rerr.Code).Inc()
		s.metrics.RelaySubmissionsTotal.WithLabelValues("failed").Inc()

		body := gin.H{
			"success": false,
			"error":   rerr.Message,
			"code":    rerr.Code,
		}
		if rerr.Details != nil {
			body["details"] = rerr.Details
		}
		// Post-submission failures still carry the transaction hash so the
		// client can track the pending or reverted transaction.
		if response != nil && response.TxHash != "" {
			body["txHash"] = response.TxHash
		}
		c.JSON(statusForCode(rerr.Code), body)
		return
	}

	s.metrics.RelaySubmissionsTotal.WithLabelValues("confirmed").Inc()
	s.metrics.RelayBatchSize.Observe(float64(len(req.Calls)))
	if gas, ok := gasUsedOf(response); ok {
		s.metrics.RelayGasUsed.Observe(gas)
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) handleHealth(c *gin.Context) {
	health, err := s.relayer.Health(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, health)
}

// statusForCode maps relay error codes onto HTTP statuses: client mistakes
// are 4xx, sponsor-side or chain-side conditions are 5xx.
func statusForCode(code string) int {
	switch code {
	case relay.ErrCodeMissingFields, relay.ErrCodeInvalidRequest,
		relay.ErrCodeDeadlineExpired, relay.ErrCodeBadSignature,
		relay.ErrCodeNonceMismatch, relay.ErrCodeEstimationFailed,
		relay.ErrCodeCallReverted:
		return http.StatusBadRequest
	case relay.ErrCodeTargetNotAllowed:
		return http.StatusForbidden
	case relay.ErrCodeSponsorMisconfigured, relay.ErrCodeSponsorUnauthorized,
		relay.ErrCodeInsufficientFunds:
		return http.StatusServiceUnavailable
	case relay.ErrCodeConfirmationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func gasUsedOf(response *relay.RelayResponse) (float64, bool) {
	if response == nil || response.GasUsed == "" {
		return 0, false
	}
	gas, err := strconv.ParseUint(response.GasUsed, 10, 64)
	if err != nil {
		return 0, false
	}
	return float64(gas), true
}
