package router

import (
	"peersync/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitSyncRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	strictAuthRouter := r.Group("/sync").Use(middleware.StrictAuth(deps.JWT, deps.Logger))
	{
		strictAuthRouter.POST("/repositories", deps.SyncRepositoryHandler.CreateRepository)
		strictAuthRouter.GET("/repositories", deps.SyncRepositoryHandler.ListRepositories)
		strictAuthRouter.GET("/repositories/:id", deps.SyncRepositoryHandler.GetRepository)
		strictAuthRouter.PUT("/repositories/:id", deps.SyncRepositoryHandler.UpdateRepository)
		strictAuthRouter.DELETE("/repositories/:id", deps.SyncRepositoryHandler.DeleteRepository)
		strictAuthRouter.POST("/repositories/:id/register", deps.SyncRepositoryHandler.Register)

		strictAuthRouter.POST("/repositories/:id/tasks", deps.SyncRepositoryHandler.CreateTask)
		strictAuthRouter.GET("/repositories/:id/tasks", deps.SyncRepositoryHandler.ListTasks)
		strictAuthRouter.PUT("/tasks/:taskId", deps.SyncRepositoryHandler.UpdateTask)
		strictAuthRouter.DELETE("/tasks/:taskId", deps.SyncRepositoryHandler.DeleteTask)

		strictAuthRouter.POST("/run", deps.SyncRunHandler.RunNow)
		strictAuthRouter.GET("/status", deps.SyncRunHandler.Status)
		strictAuthRouter.GET("/logs/stream", deps.SyncRunHandler.StreamLogs)

		strictAuthRouter.GET("/logs", deps.SyncAdminHandler.ListLogs)
		strictAuthRouter.GET("/conflicts", deps.SyncAdminHandler.ListConflicts)
		strictAuthRouter.POST("/conflicts/:id", deps.SyncAdminHandler.ResolveConflict)
		strictAuthRouter.POST("/jobs", deps.SyncAdminHandler.CreateJob)
		strictAuthRouter.GET("/jobs", deps.SyncAdminHandler.ListJobs)
		strictAuthRouter.DELETE("/jobs/:id", deps.SyncAdminHandler.DeleteJob)
		strictAuthRouter.PUT("/jobs/:id/enabled", deps.SyncAdminHandler.SetJobEnabled)
		strictAuthRouter.POST("/jobs/:id/reset", deps.SyncAdminHandler.ResetJob)
		strictAuthRouter.GET("/config", deps.SyncAdminHandler.GetConfig)
		strictAuthRouter.PUT("/config", deps.SyncAdminHandler.UpdateConfig)
	}
}
