package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/user-account-service/internal/interface/middleware"
)

type DebugModule struct {
	Limiter *middleware.Limiter
}

func NewDebugModule(rl *middleware.Limiter) *DebugModule { return &DebugModule{Limiter: rl} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// internal callers are not limited
	rl := m.Limiter.Handler(middleware.Limit{Requests: 120, Window: time.Minute}, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
