package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"account-svc/internal/domain"
	"account-svc/internal/service"
)

//go:embed static/verified.html
var staticFS embed.FS

var verifiedPage = template.Must(template.ParseFS(staticFS, "static/verified.html"))

const verifiedPath = "/user/verified"

// VerificationHandler atiende OTP, reenvios y enlaces de verificacion.
type VerificationHandler struct {
	logger        *zap.Logger
	verifications *service.VerificationService
}

func NewVerificationHandler(logger *zap.Logger, verifications *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{logger: logger, verifications: verifications}
}

// VerifyOTP maneja POST /user/verify-otp.
func (h *VerificationHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
		OTP    string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, h.logger, "verify otp", err)
		return
	}

	if err := h.verifications.VerifyOTP(c.Request.Context(), req.UserID, req.OTP); err != nil {
		respondError(c, h.logger, "verify otp", err, nil)
		return
	}

	respond(c, StatusVerified, "user email verified successfully", nil)
}

// ResendOTP maneja POST /user/resend-otp.
func (h *VerificationHandler) ResendOTP(c *gin.Context) {
	h.resend(c, domain.VerificationOTP)
}

// ResendLink maneja POST /user/resend-link.
func (h *VerificationHandler) ResendLink(c *gin.Context) {
	h.resend(c, domain.VerificationLink)
}

func (h *VerificationHandler) resend(c *gin.Context, kind domain.VerificationKind) {
	op := "resend " + string(kind)
	var req struct {
		UserID string `json:"userId"`
		Email  string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, h.logger, op, err)
		return
	}

	v, err := h.verifications.Resend(c.Request.Context(), kind, req.UserID, req.Email)
	if err != nil {
		respondError(c, h.logger, op, err, nil)
		return
	}

	respond(c, StatusPending, "verification "+string(kind)+" email sent", gin.H{
		"userId":    v.UserID,
		"email":     req.Email,
		"expiresAt": v.ExpiresAt,
	})
}

// VerifyLink maneja GET /user/verify/:userId/:uniqueString y redirige a la
// pagina de confirmacion con el resultado.
func (h *VerificationHandler) VerifyLink(c *gin.Context) {
	err := h.verifications.VerifyLink(c.Request.Context(), c.Param("userId"), c.Param("uniqueString"))
	if err != nil {
		if service.Outcome(err) == "dependency" {
			h.logger.Error("verify link failed", zap.Error(err))
		}
		q := url.Values{}
		q.Set("error", "true")
		q.Set("message", service.PublicMessage(err))
		c.Redirect(http.StatusFound, verifiedPath+"?"+q.Encode())
		return
	}
	c.Redirect(http.StatusFound, verifiedPath)
}

// Verified maneja GET /user/verified.
func (h *VerificationHandler) Verified(c *gin.Context) {
	data := struct {
		Failed  bool
		Message string
	}{
		Failed:  c.Query("error") == "true",
		Message: c.Query("message"),
	}

	var buf bytes.Buffer
	if err := verifiedPage.Execute(&buf, data); err != nil {
		h.logger.Error("render verified page failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "could not render page")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
