package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"listing_studio_v1/internal/editor"
	"listing_studio_v1/internal/model"
	"listing_studio_v1/internal/service"
)

func success(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"code":    0,
		"message": message,
		"data":    data,
	})
}

func fail(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{
		"code":    status,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	fail(c, http.StatusBadRequest, "参数错误: "+err.Error(), nil)
}

// handleError 领域错误映射为 HTTP 状态码
func handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	var blocked *editor.StepBlockedError
	if errors.As(err, &blocked) {
		fail(c, http.StatusUnprocessableEntity, err.Error(), gin.H{
			"step":   blocked.Step.String(),
			"issues": blocked.Issues,
		})
		return
	}
	var rejected *service.PublishRejectedError
	if errors.As(err, &rejected) {
		fail(c, http.StatusUnprocessableEntity, err.Error(), gin.H{
			"issues": rejected.Issues,
			"remote": rejected.Remote,
		})
		return
	}
	var limit *model.FieldLimitError
	if errors.As(err, &limit) {
		fail(c, http.StatusUnprocessableEntity, err.Error(), gin.H{
			"field": limit.Field,
			"limit": limit.Limit,
		})
		return
	}

	fail(c, statusOf(err), err.Error(), nil)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrDraftNotFound),
		errors.Is(err, model.ErrPackageNotFound),
		errors.Is(err, editor.ErrMediaNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrSessionClosed),
		errors.Is(err, service.ErrNotAtReview),
		errors.Is(err, service.ErrDraftConflict),
		errors.Is(err, editor.ErrStepLocked),
		errors.Is(err, editor.ErrLastStep),
		errors.Is(err, model.ErrDuplicatePackage):
		return http.StatusConflict

	case errors.Is(err, model.ErrPackageLimit),
		errors.Is(err, model.ErrFeatureLimit),
		errors.Is(err, editor.ErrMediaLimit),
		errors.Is(err, service.ErrNothingToSave):
		return http.StatusUnprocessableEntity

	case errors.Is(err, editor.ErrUnknownStep),
		errors.Is(err, service.ErrPublishAtRequired),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrMediaKind):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrPublishFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
