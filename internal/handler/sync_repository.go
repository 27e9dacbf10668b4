package handler

import (
	"net/http"
	"strconv"

	v1 "peersync/api/v1"
	"peersync/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SyncRepositoryHandler struct {
	*Handler
	repositoryService service.SyncRepositoryService
	taskService       service.SyncTaskService
}

func NewSyncRepositoryHandler(
	handler *Handler,
	repositoryService service.SyncRepositoryService,
	taskService service.SyncTaskService,
) *SyncRepositoryHandler {
	return &SyncRepositoryHandler{
		Handler:           handler,
		repositoryService: repositoryService,
		taskService:       taskService,
	}
}

// CreateRepository godoc
// @Summary 登记远端仓库
// @Schemes
// @Description 创建后会尽力与对端完成双向注册，注册失败不阻断创建
// @Tags 同步仓库
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body v1.CreateRepositoryRequest true "params"
// @Success 200 {object} v1.GetRepositoryResponse
// @Router /api/v1/sync/repositories [post]
func (h *SyncRepositoryHandler) CreateRepository(ctx *gin.Context) {
	req := new(v1.CreateRepositoryRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	item, err := h.repositoryService.CreateRepository(ctx, GetUserIdFromCtx(ctx), req)
	if err != nil {
		h.logger.WithContext(ctx).Error("repositoryService.CreateRepository error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, item)
}

// UpdateRepository godoc
// @Summary 更新仓库配置
// @Schemes
// @Tags 同步仓库
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "repository id"
// @Param request body v1.UpdateRepositoryRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/sync/repositories/{id} [put]
func (h *SyncRepositoryHandler) UpdateRepository(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	req := new(v1.UpdateRepositoryRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	if err := h.repositoryService.UpdateRepository(ctx, id, GetUserIdFromCtx(ctx), req); err != nil {
		status := http.StatusInternalServerError
		if err == v1.ErrRepositoryNotFound {
			status = http.StatusNotFound
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}

// DeleteRepository godoc
// @Summary 删除仓库
// @Schemes
// @Description 级联删除其任务、作业、冲突与日志
// @Tags 同步仓库
// @Produce json
// @Security Bearer
// @Param id path int true "repository id"
// @Success 200 {object} v1.Response
// @Router /api/v1/sync/repositories/{id} [delete]
func (h *SyncRepositoryHandler) DeleteRepository(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	if err := h.repositoryService.DeleteRepository(ctx, id); err != nil {
		status := http.StatusInternalServerError
		if err == v1.ErrRepositoryNotFound {
			status = http.StatusNotFound
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}

// GetRepository godoc
// @Summary 查询单个仓库
// @Schemes
// @Tags 同步仓库
// @Produce json
// @Security Bearer
// @Param id path int true "repository id"
// @Success 200 {object} v1.GetRepositoryResponse
// @Router /api/v1/sync/repositories/{id} [get]
func (h *SyncRepositoryHandler) GetRepository(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	item, err := h.repositoryService.GetRepository(ctx, id)
	if err != nil {
		status := http.StatusInternalServerError
		if err == v1.ErrRepositoryNotFound {
			status = http.StatusNotFound
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, item)
}

// ListRepositories godoc
// @Summary 仓库列表
// @Schemes
// @Tags 同步仓库
// @Produce json
// @Security Bearer
// @Param page query int false "page"
// @Param page_size query int false "page size"
// @Success 200 {object} v1.ListRepositoryResponse
// @Router /api/v1/sync/repositories [get]
func (h *SyncRepositoryHandler) ListRepositories(ctx *gin.Context) {
	req := new(v1.ListRepositoryRequest)
	if err := ctx.ShouldBindQuery(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	data, err := h.repositoryService.ListRepositories(ctx, req)
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, data)
}

// Register godoc
// @Summary 重试对端注册
// @Schemes
// @Tags 同步仓库
// @Produce json
// @Security Bearer
// @Param id path int true "repository id"
// @Success 200 {object} v1.Response
// @Router /api/v1/sync/repositories/{id}/register [post]
func (h *SyncRepositoryHandler) Register(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	if err := h.repositoryService.Register(ctx, id); err != nil {
		h.logger.WithContext(ctx).Error("repositoryService.Register error", zap.Error(err))
		status := http.StatusInternalServerError
		if err == v1.ErrRepositoryNotFound {
			status = http.StatusNotFound
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}

// CreateTask godoc
// @Summary 为仓库创建资源同步任务
// @Schemes
// @Description 同一仓库同一资源最多一条任务
// @Tags 同步任务
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "repository id"
// @Param request body v1.CreateTaskRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/sync/repositories/{id}/tasks [post]
func (h *SyncRepositoryHandler) CreateTask(ctx *gin.Context) {
	repositoryID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	req := new(v1.CreateTaskRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	item, err := h.taskService.CreateTask(ctx, repositoryID, GetUserIdFromCtx(ctx), req)
	if err != nil {
		status := http.StatusInternalServerError
		switch err {
		case v1.ErrRepositoryNotFound:
			status = http.StatusNotFound
		case v1.ErrUnknownResource, v1.ErrTaskAlreadyExists:
			status = http.StatusBadRequest
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, item)
}

// UpdateTask godoc
// @Summary 更新同步任务
// @Schemes
// @Tags 同步任务
// @Accept json
// @Produce json
// @Security Bearer
// @Param taskId path int true "task id"
// @Param request body v1.UpdateTaskRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/sync/tasks/{taskId} [put]
func (h *SyncRepositoryHandler) UpdateTask(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("taskId"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	req := new(v1.UpdateTaskRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	if err := h.taskService.UpdateTask(ctx, id, GetUserIdFromCtx(ctx), req); err != nil {
		status := http.StatusInternalServerError
		if err == v1.ErrTaskNotFound {
			status = http.StatusNotFound
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}

// DeleteTask godoc
// @Summary 删除同步任务
// @Schemes
// @Tags 同步任务
// @Produce json
// @Security Bearer
// @Param taskId path int true "task id"
// @Success 200 {object} v1.Response
// @Router /api/v1/sync/tasks/{taskId} [delete]
func (h *SyncRepositoryHandler) DeleteTask(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("taskId"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	if err := h.taskService.DeleteTask(ctx, id); err != nil {
		status := http.StatusInternalServerError
		if err == v1.ErrTaskNotFound {
			status = http.StatusNotFound
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}

// ListTasks godoc
// @Summary 仓库的任务列表
// @Schemes
// @Tags 同步任务
// @Produce json
// @Security Bearer
// @Param id path int true "repository id"
// @Success 200 {object} v1.ListTaskResponse
// @Router /api/v1/sync/repositories/{id}/tasks [get]
func (h *SyncRepositoryHandler) ListTasks(ctx *gin.Context) {
	repositoryID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}
	data, err := h.taskService.ListTasks(ctx, repositoryID)
	if err != nil {
		status := http.StatusInternalServerError
		if err == v1.ErrRepositoryNotFound {
			status = http.StatusNotFound
		}
		v1.HandleError(ctx, status, err, nil)
		return
	}
	v1.HandleSuccess(ctx, data)
}
