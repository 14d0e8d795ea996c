package routes

import (
	"kovan/internal/handlers"
	"kovan/internal/utils/logger"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/labstack/echo/v4"
)

func SetupUploadRoutes(api *echo.Group) {
	log := logger.New("upload_routes")

	uploadHandler := handlers.NewUploadHandler(
		types.ObjectCannedACLAuthenticatedRead,
	)

	fileGroup := api.Group("/files")

	fileGroup.POST("/upload", uploadHandler.UploadFile)
	fileGroup.POST("/import", uploadHandler.ImportFromURL)

	log.Success("Upload routes initialized successfully")
}
