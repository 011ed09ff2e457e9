package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"account-svc/internal/service"
)

// Estados del contrato JSON. Todas las respuestas van con HTTP 200.
const (
	StatusSuccess  = "SUCCESS"
	StatusFailed   = "FAILED"
	StatusPending  = "PENDING"
	StatusVerified = "VERIFIED"
)

const msgInvalidRequest = "invalid request"

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status, message string, data any) {
	c.JSON(http.StatusOK, apiResponse{Status: status, Message: message, Data: data})
}

// respondError traduce err a FAILED. Los fallos de dependencias se registran
// completos y al cliente solo le llega la etapa.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error, data any) {
	if errors.Is(err, service.ErrDependency) {
		logger.Error(op+" failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
	} else {
		logger.Debug(op+" rejected", zap.String("reason", err.Error()))
	}
	respond(c, StatusFailed, service.PublicMessage(err), data)
}

func respondInvalidRequest(c *gin.Context, logger *zap.Logger, op string, err error) {
	logger.Warn("invalid "+op+" request", zap.Error(err))
	respond(c, StatusFailed, msgInvalidRequest, nil)
}
