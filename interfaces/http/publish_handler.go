package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BLKOUTUK/comms-blkout-sub001/domain/dto"
	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/clients/social"
	"github.com/BLKOUTUK/comms-blkout-sub001/usecase"
)

type IPublishHandler interface {
	Publish(ctx *gin.Context)
	Statuses(ctx *gin.Context)
	ValidateMedia(ctx *gin.Context)
	Records(ctx *gin.Context)
}

type publishHandler struct {
	publishUsecase usecase.IPublishUsecase
}

func NewPublishHandler(publishUsecase usecase.IPublishUsecase) IPublishHandler {
	return &publishHandler{publishUsecase: publishUsecase}
}

// Publish fans one payload out to the requested platforms and returns one
// result per platform, success or not, with HTTP 200.
func (h *publishHandler) Publish(c *gin.Context) {
	var req dto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	userID := c.GetString("user_id")
	opts := social.PublishOptions{
		Caption:     req.Caption,
		Hashtags:    req.Hashtags,
		AspectRatio: req.AspectRatio,
	}
	results, err := h.publishUsecase.Publish(c.Request.Context(), userID, req.Platforms, req.MediaURL, req.MediaType, opts)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: results})
}

// Statuses reports every registered platform's connection health.
func (h *publishHandler) Statuses(c *gin.Context) {
	statuses := h.publishUsecase.Statuses(c.Request.Context())
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: statuses})
}

// ValidateMedia dry-runs a platform's media rules without publishing.
func (h *publishHandler) ValidateMedia(c *gin.Context) {
	var req dto.ValidateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	validation, err := h.publishUsecase.ValidateMedia(req.Platform, req.MediaType, req.AspectRatio, req.FileSizeBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: validation})
}

// Records lists recent publish attempts, newest first.
func (h *publishHandler) Records(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := h.publishUsecase.RecentRecords(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: records})
}
