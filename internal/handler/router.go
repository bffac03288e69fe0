package handler

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"reader-go/internal/config"
	"reader-go/internal/controller"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRouter(readerController *controller.ReaderController, auth Authenticator, authCfg config.AuthConfig, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(CustomRecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(auth, authCfg.LoginURL, logger))
	v1.Use(CSRFMiddleware(OriginChecker(authCfg.AllowedOrigins), logger))
	{
		v1.POST("/sessions", readerController.CreateSession)
		v1.GET("/sessions/:id", readerController.GetSession)
		v1.DELETE("/sessions/:id", readerController.CloseSession)
		v1.GET("/sessions/:id/ws", readerController.StreamSession)
		v1.POST("/sessions/:id/select", readerController.Select)
		v1.POST("/sessions/:id/phrases/:phrase/activate", readerController.Activate)
		v1.DELETE("/sessions/:id/phrases/:phrase", readerController.DeletePhrase)
		v1.POST("/sessions/:id/phrases/:phrase/senses/pin", readerController.PinSense)
		v1.POST("/sessions/:id/phrases/:phrase/entries/expand", readerController.ExpandEntry)
	}

	return router
}

func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func CustomRecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// AuthMiddleware rejects unauthenticated requests. Browser page loads are
// redirected to loginURL; API clients get 401 with the login URL in the body.
func AuthMiddleware(auth Authenticator, loginURL string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil || auth.IsAuthenticated(c.Request) {
			c.Next()
			return
		}

		logger.Debug("Unauthenticated request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path))

		if c.Request.Method == http.MethodGet && wantsHTML(c.Request) {
			c.Redirect(http.StatusFound, loginURL)
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Authentication required",
			"login_url": loginURL,
		})
	}
}

// CSRFMiddleware guards state-changing requests against cross-site use of
// the session cookie: the Origin must pass allowOrigin and POST bodies must
// be JSON, which a cross-site form or no-cors fetch cannot send.
func CSRFMiddleware(allowOrigin func(*http.Request) bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if !allowOrigin(c.Request) {
			logger.Warn("Cross-origin request rejected",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("origin", c.Request.Header.Get("Origin")))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Origin not allowed",
			})
			return
		}
		if c.Request.Method == http.MethodPost && c.ContentType() != gin.MIMEJSON {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
				"error":   "Unsupported content type",
				"details": "expected " + gin.MIMEJSON,
			})
			return
		}
		c.Next()
	}
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
