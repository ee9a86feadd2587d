package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/user-account-service/internal/interface/http"
	"github.com/oksasatya/user-account-service/internal/interface/middleware"
	"github.com/oksasatya/user-account-service/pkg/helpers"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
	Limiter *middleware.Limiter
	Limit   middleware.Limit
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager, rl *middleware.Limiter, limit middleware.Limit) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt, Limiter: rl, Limit: limit}
}

// Register wires
// Public: POST /auth/login (rate limited per IP)
// Protected: POST /auth/logout
func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/login", m.Limiter.Handler(m.Limit, middleware.KeyByIPAndPath(), nil), m.Handler.Login)

	auth := rg.Group("/")
	auth.Use(middleware.JWTAuth(m.JWT))
	{
		auth.POST("/auth/logout", m.Handler.Logout)
	}
}
