package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"listing_studio_v1/internal/middleware"
	"listing_studio_v1/internal/service"
)

// ==================== 控制器 ====================

// DraftController 草稿控制器
type DraftController struct {
	draftService   *service.DraftService
	publishService *service.PublishService
}

func NewDraftController(draftService *service.DraftService, publishService *service.PublishService) *DraftController {
	return &DraftController{draftService: draftService, publishService: publishService}
}

// ==================== API 方法 ====================

// ListDrafts 草稿列表
// @Summary 当前卖家的草稿，按更新时间倒序
// @Tags Draft
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.DraftSummaryVO
// @Router /api/v1/drafts [get]
func (ctrl *DraftController) ListDrafts(c *gin.Context) {
	list, err := ctrl.draftService.ListDrafts(c.Request.Context(), middleware.GetOwnerID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusOK, "success", list)
}

// GetDraft 草稿详情
// @Summary 获取草稿详情
// @Tags Draft
// @Security BearerAuth
// @Param draft_id path string true "草稿ID"
// @Success 200 {object} dto.DraftDetailVO
// @Router /api/v1/drafts/{draft_id} [get]
func (ctrl *DraftController) GetDraft(c *gin.Context) {
	detail, err := ctrl.draftService.GetDraftDetail(c.Request.Context(), middleware.GetOwnerID(c), c.Param("draft_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusOK, "success", detail)
}

// DeleteDraft 删除草稿
// @Summary 删除草稿
// @Tags Draft
// @Security BearerAuth
// @Param draft_id path string true "草稿ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/drafts/{draft_id} [delete]
func (ctrl *DraftController) DeleteDraft(c *gin.Context) {
	if err := ctrl.draftService.DeleteDraft(c.Request.Context(), middleware.GetOwnerID(c), c.Param("draft_id")); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "删除成功",
	})
}

// ListPublications 发布记录
// @Summary 当前卖家的发布记录
// @Tags Draft
// @Security BearerAuth
// @Param limit query int false "条数" default(20)
// @Success 200 {array} dto.PublicationVO
// @Router /api/v1/publications [get]
func (ctrl *DraftController) ListPublications(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		fail(c, http.StatusBadRequest, "无效的 limit", nil)
		return
	}

	records, err := ctrl.publishService.ListPublications(c.Request.Context(), middleware.GetOwnerID(c), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusOK, "success", records)
}
