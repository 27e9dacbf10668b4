package handler

import (
	"net/http"
	"strconv"

	v1 "peersync/api/v1"
	"peersync/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SyncAdminHandler struct {
	*Handler
	adminService service.SyncAdminService
}

func NewSyncAdminHandler(handler *Handler, adminService service.SyncAdminService) *SyncAdminHandler {
	return &SyncAdminHandler{
		Handler:      handler,
		adminService: adminService,
	}
}

// ListLogs godoc
// @Summary 同步日志查询
// @Schemes
// @Tags 同步运维
// @Produce json
// @Security Bearer
// @Param page query int false "page"
// @Param page_size query int false "page size"
// @Param repository_id query int false "filter by repository"
// @Param resource_name query string false "filter by resource"
// @Param result query string false "filter by result"
// @Success 200 {object} v1.ListLogResponse
// @Router /api/v1/sync/logs [get]
func (h *SyncAdminHandler) ListLogs(ctx *gin.Context) {
	req := new(v1.ListLogRequest)
	if err := ctx.ShouldBindQuery(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	data, err := h.adminService.ListLogs(ctx, req)
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, data)
}

// ListConflicts godoc
// @Summary 未决冲突列表
// @Schemes
// @Tags 同步运维
// @Produce json
// @Security Bearer
// @Param page query int false "page"
// @Param page_size query int false "page size"
// @Param repository_id query int false "filter by repository"
// @Success 200 {object} v1.ListConflictResponse
// @Router /api/v1/sync/conflicts [get]
func (h *SyncAdminHandler) ListConflicts(ctx *gin.Context) {
	req := new(v1.ListConflictRequest)
	if err := ctx.ShouldBindQuery(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	data, err := h.adminService.ListConflicts(ctx, req)
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, data)
}

// ResolveConflict godoc
// @Summary 裁决冲突
// @Schemes
// @Description accept-remote 采纳远端版本；keep-local 保留本地版本
// @Tags 同步运维
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "conflict id"
// @Param request body v1.ResolveConflictRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/sync/conflicts/{id} [post]
func (h *SyncAdminHandler) ResolveConflict(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	req := new(v1.ResolveConflictRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	if err := h.adminService.ResolveConflict(ctx, id, req.Resolution); err != nil {
		h.logger.WithContext(ctx).Error("adminService.ResolveConflict error", zap.Error(err))
		status := http.StatusInternalServerError
		if err == v1.ErrConflictNotFound {
			status = http.StatusNotFound
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}

// CreateJob godoc
// @Summary 创建定时同步作业
// @Schemes
// @Tags 同步运维
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body v1.CreateJobRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/sync/jobs [post]
func (h *SyncAdminHandler) CreateJob(ctx *gin.Context) {
	req := new(v1.CreateJobRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	item, err := h.adminService.CreateJob(ctx, GetUserIdFromCtx(ctx), req)
	if err != nil {
		status := http.StatusInternalServerError
		switch err {
		case v1.ErrRepositoryNotFound:
			status = http.StatusNotFound
		case v1.ErrInvalidCronSpec:
			status = http.StatusBadRequest
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, item)
}

// DeleteJob godoc
// @Summary 删除定时作业
// @Schemes
// @Tags 同步运维
// @Produce json
// @Security Bearer
// @Param id path int true "job id"
// @Success 200 {object} v1.Response
// @Router /api/v1/sync/jobs/{id} [delete]
func (h *SyncAdminHandler) DeleteJob(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	if err := h.adminService.DeleteJob(ctx, id); err != nil {
		status := http.StatusInternalServerError
		if err == v1.ErrJobNotFound {
			status = http.StatusNotFound
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}

// SetJobEnabled godoc
// @Summary 启用/停用定时作业
// @Schemes
// @Tags 同步运维
// @Produce json
// @Security Bearer
// @Param id path int true "job id"
// @Param enabled query bool true "enabled"
// @Success 200 {object} v1.Response
// @Router /api/v1/sync/jobs/{id}/enabled [put]
func (h *SyncAdminHandler) SetJobEnabled(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	enabled, err := strconv.ParseBool(ctx.Query("enabled"))
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	if err := h.adminService.SetJobEnabled(ctx, id, enabled); err != nil {
		status := http.StatusInternalServerError
		if err == v1.ErrJobNotFound {
			status = http.StatusNotFound
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}

// ResetJob godoc
// @Summary 重置定时作业的错误状态
// @Schemes
// @Tags 同步运维
// @Produce json
// @Security Bearer
// @Param id path int true "job id"
// @Success 200 {object} v1.Response
// @Router /api/v1/sync/jobs/{id}/reset [post]
func (h *SyncAdminHandler) ResetJob(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	if err := h.adminService.ResetJob(ctx, id); err != nil {
		status := http.StatusInternalServerError
		if err == v1.ErrJobNotFound {
			status = http.StatusNotFound
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}

// ListJobs godoc
// @Summary 仓库的定时作业列表
// @Schemes
// @Tags 同步运维
// @Produce json
// @Security Bearer
// @Param repository_id query int true "repository id"
// @Success 200 {object} v1.ListJobResponse
// @Router /api/v1/sync/jobs [get]
func (h *SyncAdminHandler) ListJobs(ctx *gin.Context) {
	repositoryID, err := strconv.ParseInt(ctx.Query("repository_id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	data, err := h.adminService.ListJobs(ctx, repositoryID)
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, data)
}

// GetConfig godoc
// @Summary 本节点同步配置
// @Schemes
// @Tags 同步运维
// @Produce json
// @Security Bearer
// @Success 200 {object} v1.SyncConfigResponse
// @Router /api/v1/sync/config [get]
func (h *SyncAdminHandler) GetConfig(ctx *gin.Context) {
	data, err := h.adminService.GetConfig(ctx)
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, data)
}

// UpdateConfig godoc
// @Summary 更新本节点同步配置
// @Schemes
// @Tags 同步运维
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body v1.UpdateSyncConfigRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/sync/config [put]
func (h *SyncAdminHandler) UpdateConfig(ctx *gin.Context) {
	req := new(v1.UpdateSyncConfigRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	if err := h.adminService.UpdateConfig(ctx, req); err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}
