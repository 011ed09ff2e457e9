package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"account-svc/internal/service"
)

// AccountHandler atiende registro e inicio de sesion.
type AccountHandler struct {
	logger   *zap.Logger
	accounts *service.AccountService
}

func NewAccountHandler(logger *zap.Logger, accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{logger: logger, accounts: accounts}
}

// SignUp maneja POST /user/signup.
func (h *AccountHandler) SignUp(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		DateOfBirth string `json:"dateOfBirth"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, h.logger, "signup", err)
		return
	}

	account, err := h.accounts.SignUp(c.Request.Context(), service.SignUpInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		// La cuenta puede existir aunque la emision haya fallado.
		var data any
		if account.ID != "" {
			data = account
		}
		respondError(c, h.logger, "signup", err, data)
		return
	}

	respond(c, StatusSuccess, "signup successful", account)
}

// SignIn maneja POST /user/signin.
func (h *AccountHandler) SignIn(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, h.logger, "signin", err)
		return
	}

	account, err := h.accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "signin", err, nil)
		return
	}

	respond(c, StatusSuccess, "signin successful", account)
}
