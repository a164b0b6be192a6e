package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/satriahrh/santoryu/internal/auth"
	"github.com/satriahrh/santoryu/internal/websocket"
)

// ServiceName is reported by the health check
const ServiceName = "santoryu"

// RouteConfig wires the optional parts of the HTTP surface
type RouteConfig struct {
	StaticDir string
	IndexFile string

	// Issuer gates /ws when set
	Issuer *auth.Issuer

	// Gatherer backs /metrics, nil uses the default registry
	Gatherer prometheus.Gatherer
}

// InitRoutes initializes all routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, config RouteConfig, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:      "ok",
			Service:     ServiceName,
			Connections: hub.ActiveClients(),
		})
	})

	gatherer := config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// WebSocket endpoint, token checked only when an issuer is configured
	e.GET("/ws", func(c echo.Context) error {
		if config.Issuer != nil {
			if ok, err := authorize(c, config.Issuer, logger); !ok {
				return err
			}
		}
		return websocket.HandleWebSocket(hub, c)
	})

	if config.IndexFile != "" {
		e.File("/", config.IndexFile)
	}
	if config.StaticDir != "" {
		e.Static("/static", config.StaticDir)
	}
}

// authorize reports whether the request carries a valid token. On false the
// 401 response has already been written.
func authorize(c echo.Context, issuer *auth.Issuer, logger *zap.Logger) (bool, error) {
	token, err := auth.TokenFromRequest(c.Request())
	if err != nil {
		logger.Warn("WebSocket connection rejected: missing token", zap.String("remoteAddr", c.RealIP()))
		return false, c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "Token is required in the token query parameter or Authorization header",
		})
	}

	claims, err := issuer.ValidateToken(token)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return false, c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired token",
		})
	}

	logger.Info("WebSocket connection authenticated", zap.String("clientID", claims.ClientID))
	return true, nil
}
