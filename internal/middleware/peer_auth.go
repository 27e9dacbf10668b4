package middleware

import (
	"net/http"

	v1 "peersync/api/v1"
	"peersync/internal/service"
	"peersync/pkg/log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const PeerRepositoryKey = "peerRepository"

// PeerAuth 对端同步接口的 Basic 认证：凭据必须匹配某个已登记仓库
func PeerAuth(peerService service.PeerService, logger *log.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		username, password, ok := ctx.Request.BasicAuth()
		if !ok {
			ctx.Header("WWW-Authenticate", `Basic realm="sync"`)
			v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized, nil)
			ctx.Abort()
			return
		}

		repo, err := peerService.Authenticate(ctx, username, password)
		if err != nil {
			logger.WithContext(ctx).Error("peer authentication error", zap.Error(err))
			v1.HandleError(ctx, http.StatusInternalServerError, v1.ErrInternalServerError, nil)
			ctx.Abort()
			return
		}
		if repo == nil {
			logger.WithContext(ctx).Warn("peer authentication failed", zap.String("username", username))
			v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized, nil)
			ctx.Abort()
			return
		}

		ctx.Set(PeerRepositoryKey, repo)
		ctx.Next()
	}
}
