package handler

import (
	"net/http"
	"strconv"
	"time"

	v1 "peersync/api/v1"
	"peersync/internal/repository"
	"peersync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var logStreamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type SyncRunHandler struct {
	*Handler
	synchronizer service.Synchronizer
	logRepo      repository.SyncLogRepository
}

func NewSyncRunHandler(
	handler *Handler,
	synchronizer service.Synchronizer,
	logRepo repository.SyncLogRepository,
) *SyncRunHandler {
	return &SyncRunHandler{
		Handler:      handler,
		synchronizer: synchronizer,
		logRepo:      logRepo,
	}
}

// RunNow godoc
// @Summary 立即运行一次同步
// @Schemes
// @Description 异步触发；若已有运行在进行，本次请求排队并返回 2006
// @Tags 同步运行
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body v1.RunNowRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/sync/run [post]
func (h *SyncRunHandler) RunNow(ctx *gin.Context) {
	req := new(v1.RunNowRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	err := h.synchronizer.RunNow(ctx, req.RepositoryId, GetUserIdFromCtx(ctx))
	if err != nil {
		status := http.StatusInternalServerError
		switch err {
		case v1.ErrRepositoryNotFound:
			status = http.StatusNotFound
		case v1.ErrSyncAlreadyRunning:
			status = http.StatusConflict
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}

// Status godoc
// @Summary 当前同步状态
// @Schemes
// @Tags 同步运行
// @Produce json
// @Security Bearer
// @Success 200 {object} v1.SyncStatusResponse
// @Router /api/v1/sync/status [get]
func (h *SyncRunHandler) Status(ctx *gin.Context) {
	status, err := h.synchronizer.Status(ctx)
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, v1.ErrInternalServerError, nil)
		return
	}
	data := v1.SyncStatusData{}
	if status != nil {
		data.Running = status.Running == 1
		data.Manual = status.Manual == 1
		data.RunningRepoId = status.RunningRepoId
		data.ManualRepoId = status.ManualRepoId
		data.Timestmp = status.Timestmp
	}
	v1.HandleSuccess(ctx, data)
}

// StreamLogs godoc
// @Summary 同步日志实时流
// @Schemes
// @Description WebSocket 端点，从 after_id 起持续推送新日志行
// @Tags 同步运行
// @Security Bearer
// @Param after_id query int false "start after log id"
// @Router /api/v1/sync/logs/stream [get]
func (h *SyncRunHandler) StreamLogs(ctx *gin.Context) {
	afterID, _ := strconv.ParseInt(ctx.Query("after_id"), 10, 64)

	conn, err := logStreamUpgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.logger.WithContext(ctx).Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	// 客户端关闭连接时 ReadMessage 返回错误，结束推送
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			entries, err := h.logRepo.ListAfter(ctx, afterID, 200)
			if err != nil {
				h.logger.WithContext(ctx).Error("log stream query failed", zap.Error(err))
				return
			}
			for _, entry := range entries {
				if err := conn.WriteJSON(entry); err != nil {
					return
				}
				afterID = entry.Id
			}
		}
	}
}
