package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-account-service/internal/application"
	"github.com/oksasatya/user-account-service/pkg/helpers"
	"github.com/oksasatya/user-account-service/pkg/response"
	"github.com/oksasatya/user-account-service/pkg/validation"
)

type AuthHandler struct {
	Auth    *application.Authenticate
	JWT     *helpers.JWTManager
	Cookies *helpers.CookieManager
	Logger  *logrus.Logger
}

func NewAuthHandler(auth *application.Authenticate, jwt *helpers.JWTManager, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Auth: auth, JWT: jwt, Cookies: helpers.NewCookie(cookieDomain, cookieSecure), Logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,account_email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login. The token is returned in the body and as a cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	rec, err := h.Auth.Execute(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	token, exp, err := h.JWT.GenerateAccessToken(rec.ID.String())
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Error("sign access token")
		}
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	h.Cookies.SetAccess(c, token, exp)
	response.Success(c, http.StatusOK, gin.H{
		"access_token": token,
		"user":         toUserResponse(rec),
	}, "login successful", gin.H{"access_expires_at": exp})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}
