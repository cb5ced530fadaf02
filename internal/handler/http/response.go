package http

import "github.com/gin-gonic/gin"

// User-facing denial messages are generic and identical across causes so the
// response body never narrows down what went wrong.
const (
	msgLoginFailed = "erreur de connexion"
	msgUnavailable = "service temporairement indisponible"
)

type loginRequest struct {
	Username     string `json:"username" binding:"required"`
	Password     string `json:"password" binding:"required"`
	TOTPCode     string `json:"totp_code"`
	CaptchaToken string `json:"captcha_token"`
}

type totpCodeRequest struct {
	TOTPCode string `json:"totp_code" binding:"required"`
}

func errorBody(message string) gin.H {
	return gin.H{"success": false, "error": message}
}
