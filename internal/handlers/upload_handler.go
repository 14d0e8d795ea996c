package handlers

import (
	"io"
	"net/http"
	"strings"

	"kovan/internal/db"
	"kovan/internal/models"
	"kovan/internal/utils"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"kovan/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

type UploadHandler struct {
	log        *logger.Logger
	acl        types.ObjectCannedACL
	downloader *utils.StorageHandler
}

func NewUploadHandler(acl types.ObjectCannedACL) *UploadHandler {
	if acl == "" {
		acl = types.ObjectCannedACLPublicRead
	}
	return &UploadHandler{
		log:        logger.New("upload_handler"),
		acl:        acl,
		downloader: utils.NewStorageHandler(),
	}
}

// UploadFile stores a message attachment. An optional messageId form value
// links the file to the message it belongs to.
func (h *UploadHandler) UploadFile(c echo.Context) error {
	contentType := c.Request().Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Content-Type must be multipart/form-data",
		})
	}

	storage := GetStorageHandler()
	if storage == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Storage handler not configured",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.log.Error("Failed to get file from request", err)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "No file provided",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to open file",
		})
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to read file",
		})
	}

	url, err := storage.UploadFile(c.Request().Context(), content, file.Filename, h.acl, file.Header.Get("Content-Type"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to upload file",
		})
	}

	h.log.Success("File uploaded successfully: %s", url)

	fileModel := &models.File{
		UserID: c.Get("userID").(string),
		Path:   url[strings.LastIndex(url, "/")+1:],
		Name:   file.Filename,
		Size:   file.Size,
		Type:   file.Header.Get("Content-Type"),
	}

	if messageID := c.FormValue("messageId"); messageID != "" {
		var message models.Message
		if err := db.GetDB().Where("id = ? AND is_deleted = ?", messageID, false).First(&message).Error; err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": "Message not found",
			})
		}
		fileModel.MessageID = &message.ID
	}

	if err := db.GetDB().Create(fileModel).Error; err != nil {
		h.log.Error("Failed to insert file into database", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to insert file into database",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "File uploaded successfully",
		"file":    fileModel.ID,
	})
}

// ImportFromURL fetches a remote file and stores it as an attachment.
func (h *UploadHandler) ImportFromURL(c echo.Context) error {
	var req struct {
		URL  string `json:"url" validate:"required,url"`
		Name string `json:"name" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	storage := GetStorageHandler()
	if storage == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Storage handler not configured",
		})
	}

	content, err := h.downloader.DownloadFile(req.URL)
	if err != nil {
		h.log.Error("Failed to download file", err)
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "Failed to download file",
		})
	}

	contentType := http.DetectContentType(content)
	url, err := storage.UploadFile(c.Request().Context(), content, req.Name, h.acl, contentType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to upload file",
		})
	}

	fileModel := &models.File{
		UserID: c.Get("userID").(string),
		Path:   url[strings.LastIndex(url, "/")+1:],
		Name:   req.Name,
		Size:   int64(len(content)),
		Type:   contentType,
	}
	if err := db.GetDB().Create(fileModel).Error; err != nil {
		h.log.Error("Failed to insert file into database", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to insert file into database",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "File imported successfully",
		"file":    fileModel.ID,
	})
}
