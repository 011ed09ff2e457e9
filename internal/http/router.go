package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas.
// metricsHandler puede ser nil.
func NewRouter(
	logger *zap.Logger,
	accountH *AccountHandler,
	verifyH *VerificationHandler,
	healthH *HealthHandler,
	metricsHandler http.Handler,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	user := r.Group("/user")

	api := user.Group("", jsonContentTypeMiddleware())
	api.POST("/signup", accountH.SignUp)
	api.POST("/signin", accountH.SignIn)
	api.POST("/verify-otp", verifyH.VerifyOTP)
	api.POST("/resend-otp", verifyH.ResendOTP)
	api.POST("/resend-link", verifyH.ResendLink)

	user.GET("/verify/:userId/:uniqueString", verifyH.VerifyLink)
	user.GET("/verified", verifyH.Verified)

	if healthH != nil {
		r.GET("/healthz", healthH.Healthz)
	}
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
