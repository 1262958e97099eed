package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/vidstream/upload-service/http/controller"
	middlewares "github.com/vidstream/upload-service/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}

	r.Use(middles.CORSMiddleware)

	apiRoutes := r.Group("/api/v1/uploads")
	{
		apiRoutes.Use(middles.AuthMiddleware)

		apiRoutes.POST("/", ctrl.InitUpload)
		apiRoutes.GET("/", ctrl.ListUploads)

		apiRoutes.POST("/:id/chunks", ctrl.UploadChunk)
		apiRoutes.POST("/:id/chunks/:index/retry", ctrl.RetryChunk)
		apiRoutes.POST("/:id/complete", ctrl.CompleteUpload)
		apiRoutes.GET("/:id/status", ctrl.GetUploadStatus)
		apiRoutes.GET("/:id/resume", ctrl.ResumeUpload)
		apiRoutes.DELETE("/:id", ctrl.AbortUpload)
	}

	return r
}
