package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	paylink "github.com/paylink-foundation/paylink/go"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-Id"

const requestIDKey = "requestID"

// ServerOptions configures a RelayServer
type ServerOptions struct {
	Captcha   CaptchaVerifier
	Logger    *zap.Logger
	Metrics   *Metrics
	Gatherer  prometheus.Gatherer
	RateLimit float64
	RateBurst int
}

// ServerOption is the type for RelayServer options.
type ServerOption func(*ServerOptions)

// WithCaptcha sets the CAPTCHA verifier. Without one every token is accepted.
func WithCaptcha(captcha CaptchaVerifier) ServerOption {
	return func(options *ServerOptions) {
		options.Captcha = captcha
	}
}

// WithServerLogger sets the logger
func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(options *ServerOptions) {
		options.Logger = logger
	}
}

// WithMetrics records request metrics and serves gatherer on /metrics.
func WithMetrics(metrics *Metrics, gatherer prometheus.Gatherer) ServerOption {
	return func(options *ServerOptions) {
		options.Metrics = metrics
		options.Gatherer = gatherer
	}
}

// WithRateLimit allows rps requests per second per client IP with the given burst.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(options *ServerOptions) {
		options.RateLimit = rps
		options.RateBurst = burst
	}
}

// RelayServer serves the relay endpoint.
type RelayServer struct {
	engine  *gin.Engine
	relayer IntentRelayer
	captcha CaptchaVerifier
	logger  *zap.Logger
	metrics *Metrics
	limiter *ipLimiter
}

// NewRelayServer builds the gin engine for relayer.
func NewRelayServer(relayer IntentRelayer, opts ...ServerOption) *RelayServer {
	options := &ServerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Captcha == nil {
		options.Captcha = NewPermissiveVerifier(options.Logger)
	}
	if options.Gatherer == nil {
		options.Gatherer = prometheus.DefaultGatherer
	}

	s := &RelayServer{
		engine:  gin.New(),
		relayer: relayer,
		captcha: options.Captcha,
		logger:  options.Logger,
		metrics: options.Metrics,
		limiter: newIPLimiter(options.RateLimit, options.RateBurst, 0),
	}

	s.engine.Use(gin.Recovery(), s.requestID(), s.observe())
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(options.Gatherer, promhttp.HandlerOpts{})))

	relayRoutes := s.engine.Group("/", s.rateLimit())
	relayRoutes.POST("/", s.handleRelay)
	relayRoutes.POST("/relay", s.handleRelay)
	return s
}

// Handler returns the server as an http.Handler
func (s *RelayServer) Handler() http.Handler {
	return s.engine
}

// Engine exposes the underlying gin engine for additional routes.
func (s *RelayServer) Engine() *gin.Engine {
	return s.engine
}

// ============================================================================
// Middleware
// ============================================================================

func (s *RelayServer) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *RelayServer) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(route, c.Writer.Status(), time.Since(start))
	}
}

func (s *RelayServer) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.allow(c.ClientIP(), time.Now()) {
			s.requestLogger(c).Warn("rate limit exceeded", zap.String("clientIP", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{
				Error:   ErrorRateLimited,
				Message: messageRateLimited,
			})
			return
		}
		c.Next()
	}
}

// ============================================================================
// Handlers
// ============================================================================

func (s *RelayServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *RelayServer) handleRelay(c *gin.Context) {
	logger := s.requestLogger(c)

	token := c.GetHeader(RecaptchaHeader)
	if token == "" {
		logger.Error("recaptcha token is missing")
		s.fail(c, http.StatusBadRequest, ErrorMissingRecaptchaToken, messageMissingRecaptchaToken)
		return
	}

	valid, err := s.captcha.Verify(c.Request.Context(), token, c.ClientIP())
	if err != nil {
		logger.Error("recaptcha verification failed", zap.Error(err))
		valid = false
	}
	if !valid {
		logger.Error("recaptcha token is invalid")
		s.fail(c, http.StatusBadRequest, ErrorInvalidRecaptchaToken, messageInvalidRecaptchaToken)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Error("request body exceeds limit", zap.Int64("limit", tooLarge.Limit))
			s.fail(c, http.StatusBadRequest, ErrorInvalidBody, messageBodyTooLarge)
			return
		}
		logger.Error("failed to read request body", zap.Error(err))
		s.fail(c, http.StatusBadRequest, ErrorInvalidBody, messageUnreadableBody)
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		logger.Error("request body is empty")
		s.fail(c, http.StatusBadRequest, ErrorInvalidBody, messageEmptyBody)
		return
	}

	var intent paylink.TransactionIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		logger.Error("request body is not valid JSON", zap.Error(err))
		s.fail(c, http.StatusBadRequest, ErrorInvalidBody, messageInvalidJSON)
		return
	}

	outcome, err := s.relayer.Relay(c.Request.Context(), intent)
	if err != nil {
		logger.Error("relay failed unexpectedly", zap.String("transactionType", intent.Type), zap.Error(err))
		s.fail(c, http.StatusInternalServerError, ErrorInternal, messageInternal)
		return
	}
	if !outcome.Succeeded {
		s.fail(c, http.StatusBadRequest, ErrorExecution, outcome.Message)
		return
	}

	c.JSON(http.StatusOK, Response{Status: true, Message: outcome.Message})
}

func (s *RelayServer) fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{Status: false, Error: code, Message: message})
}

func (s *RelayServer) requestLogger(c *gin.Context) *zap.Logger {
	return s.logger.With(zap.String("requestId", c.GetString(requestIDKey)))
}
