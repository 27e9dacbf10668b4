package router

import (
	"peersync/internal/middleware"

	"github.com/gin-gonic/gin"
)

// InitPeerRouter 节点协议挂在根路径而不是 /api/v1，对端客户端按 /sync/... 寻址
func InitPeerRouter(
	deps RouterDeps,
	r *gin.Engine,
) {
	// 注册握手不要求已有凭据，对端首次联络时还没有仓库行
	r.POST("/sync/register", deps.PeerHandler.RegisterPeer)

	authed := r.Group("/sync").Use(middleware.PeerAuth(deps.PeerService, deps.Logger))
	{
		authed.GET("/:resource", deps.PeerHandler.Export)
		authed.PUT("/:resource", deps.PeerHandler.Apply)
	}
}
