package controller

import (
	"github.com/vidstream/upload-service/config"
	"github.com/vidstream/upload-service/infra"
	"github.com/vidstream/upload-service/repository"
	"github.com/vidstream/upload-service/service"
)

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository
	Uploads    *service.UploadService
}

func NewController(config *config.Config, infra *infra.Infra, repo *repository.Repository) *Controller {
	if repo == nil {
		panic("Failed to initialize Repository")
	}

	uploads := service.NewUploadService(
		service.PolicyFromConfig(config.EnvConfig),
		repo.SessionRepo,
		repo.ChunkRepo,
		infra.Minio,
		repo.ObjectRepo,
		infra.Produce.UploadService,
		infra.Logger,
	)

	return &Controller{
		Config:     config,
		Infra:      infra,
		Repository: repo,
		Uploads:    uploads,
	}
}
