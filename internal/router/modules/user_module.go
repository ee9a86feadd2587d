package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/user-account-service/internal/interface/http"
	"github.com/oksasatya/user-account-service/internal/interface/middleware"
	"github.com/oksasatya/user-account-service/pkg/helpers"
)

// UserModule wires the user account routes under the given RouterGroup (usually /api)
// Public: POST /users
// Protected: GET /users/:id, PATCH /users/:id
type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
	Limiter *middleware.Limiter
	Limit   middleware.Limit
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager, rl *middleware.Limiter, limit middleware.Limit) *UserModule {
	return &UserModule{Handler: h, JWT: jwt, Limiter: rl, Limit: limit}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rg.POST("/users", m.Limiter.Handler(m.Limit, middleware.KeyByIPAndPath(), nil), m.Handler.CreateUser)

	auth := rg.Group("/")
	auth.Use(middleware.JWTAuth(m.JWT))
	// admins edit in bursts, so protected routes get a larger per-user budget
	auth.Use(m.Limiter.Handler(m.Limit.Scale(10), middleware.KeyByUserID(), nil))
	{
		auth.GET("/users/:id", m.Handler.GetUser)
		auth.PATCH("/users/:id", m.Handler.ChangeUser)
	}
}
