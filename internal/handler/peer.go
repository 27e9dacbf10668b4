package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	v1 "peersync/api/v1"
	"peersync/internal/middleware"
	"peersync/internal/model"
	"peersync/internal/service"
	"peersync/pkg/document"
	"peersync/pkg/peer"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PeerHandler 节点间同步协议面。与管理接口不同，这里直接返回交换文档
// 而不是 v1 应答信封，错误体只带 message 字段
type PeerHandler struct {
	*Handler
	peerService service.PeerService
}

func NewPeerHandler(handler *Handler, peerService service.PeerService) *PeerHandler {
	return &PeerHandler{
		Handler:     handler,
		peerService: peerService,
	}
}

func peerError(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"message": message})
}

func peerRepository(ctx *gin.Context) *model.SyncRepository {
	v, exists := ctx.Get(middleware.PeerRepositoryKey)
	if !exists {
		return nil
	}
	return v.(*model.SyncRepository)
}

// Export godoc
// @Summary 对端拉取资源记录
// @Schemes
// @Description 返回 since 之后修改过的记录（含墓碑）的交换文档
// @Tags 节点协议
// @Produce json
// @Security BasicAuth
// @Param resource path string true "resource name"
// @Param since query string false "RFC3339 watermark"
// @Router /sync/{resource} [get]
func (h *PeerHandler) Export(ctx *gin.Context) {
	repo := peerRepository(ctx)
	if repo == nil {
		peerError(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var since *time.Time
	if raw := ctx.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			peerError(ctx, http.StatusBadRequest, "invalid since parameter")
			return
		}
		since = &parsed
	}

	doc, err := h.peerService.Export(ctx, repo, ctx.Param("resource"), since)
	if err != nil {
		var unknown *document.UnknownResourceError
		if errors.As(err, &unknown) {
			peerError(ctx, http.StatusNotFound, unknown.Error())
			return
		}
		h.logger.WithContext(ctx).Error("peerService.Export error", zap.Error(err))
		peerError(ctx, http.StatusInternalServerError, "export failed")
		return
	}
	ctx.JSON(http.StatusOK, doc)
}

// Apply godoc
// @Summary 对端推送资源记录
// @Schemes
// @Description 按本节点策略应用推送文档，返回逐记录处理结果
// @Tags 节点协议
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param resource path string true "resource name"
// @Router /sync/{resource} [put]
func (h *PeerHandler) Apply(ctx *gin.Context) {
	repo := peerRepository(ctx)
	if repo == nil {
		peerError(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		peerError(ctx, http.StatusBadRequest, "unreadable body")
		return
	}
	doc, err := document.Decode(body)
	if err != nil {
		peerError(ctx, http.StatusBadRequest, err.Error())
		return
	}
	if doc.Resource != ctx.Param("resource") {
		peerError(ctx, http.StatusBadRequest, "document resource does not match endpoint")
		return
	}

	outcome, err := h.peerService.Apply(ctx, repo, doc)
	if err != nil {
		switch {
		case err == v1.ErrPushNotAccepted:
			peerError(ctx, http.StatusForbidden, "push not accepted")
		default:
			var unknown *document.UnknownResourceError
			if errors.As(err, &unknown) {
				peerError(ctx, http.StatusNotFound, unknown.Error())
				return
			}
			h.logger.WithContext(ctx).Error("peerService.Apply error", zap.Error(err))
			peerError(ctx, http.StatusInternalServerError, "apply failed")
		}
		return
	}
	ctx.JSON(http.StatusOK, outcome)
}

// RegisterPeer godoc
// @Summary 对端注册握手
// @Schemes
// @Description 交换节点身份；按 UUID 建立或更新仓库行
// @Tags 节点协议
// @Accept json
// @Produce json
// @Router /sync/register [post]
func (h *PeerHandler) RegisterPeer(ctx *gin.Context) {
	var identity peer.Identity
	if err := ctx.ShouldBindJSON(&identity); err != nil {
		peerError(ctx, http.StatusBadRequest, "invalid identity")
		return
	}
	if identity.Uuid == "" {
		peerError(ctx, http.StatusBadRequest, "identity uuid is required")
		return
	}

	local, err := h.peerService.RegisterPeer(ctx, identity)
	if err != nil {
		h.logger.WithContext(ctx).Error("peerService.RegisterPeer error", zap.Error(err))
		peerError(ctx, http.StatusInternalServerError, "registration failed")
		return
	}
	ctx.JSON(http.StatusOK, local)
}
