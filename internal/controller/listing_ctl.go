package controller

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"listing_studio_v1/internal/api/dto"
	"listing_studio_v1/internal/editor"
	"listing_studio_v1/internal/middleware"
	"listing_studio_v1/internal/model"
	"listing_studio_v1/internal/service"
)

// maxFilesPerUpload 单次上传的文件数
const maxFilesPerUpload = 10

// ==================== 控制器 ====================

// ListingController 商品编辑会话控制器
type ListingController struct {
	sessions *service.SessionService
}

func NewListingController(sessions *service.SessionService) *ListingController {
	return &ListingController{sessions: sessions}
}

// ==================== 会话 ====================

// OpenSession 打开编辑会话
// @Summary 打开编辑会话，带 draft_id 时从草稿恢复
// @Tags Listing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenSessionRequest false "恢复的草稿"
// @Success 201 {object} dto.SessionView
// @Router /api/v1/sessions [post]
func (ctrl *ListingController) OpenSession(c *gin.Context) {
	var req dto.OpenSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	ownerID := middleware.GetOwnerID(c)
	ctx := c.Request.Context()

	var (
		view *dto.SessionView
		err  error
	)
	if req.DraftID != "" {
		view, err = ctrl.sessions.Restore(ctx, ownerID, req.DraftID)
	} else {
		view, err = ctrl.sessions.Open(ctx, ownerID)
	}
	if err != nil {
		handleError(c, err)
		return
	}

	success(c, http.StatusCreated, "success", view)
}

// GetSession 会话视图
// @Summary 获取会话当前状态
// @Tags Listing
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Success 200 {object} dto.SessionView
// @Router /api/v1/sessions/{session_id} [get]
func (ctrl *ListingController) GetSession(c *gin.Context) {
	view, err := ctrl.sessions.View(middleware.GetOwnerID(c), c.Param("session_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusOK, "success", view)
}

// CloseSession 关闭会话
// @Summary 关闭会话，停止自动保存
// @Tags Listing
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/sessions/{session_id} [delete]
func (ctrl *ListingController) CloseSession(c *gin.Context) {
	if err := ctrl.sessions.Close(middleware.GetOwnerID(c), c.Param("session_id")); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "会话已关闭",
	})
}

// ==================== 表单 ====================

// PatchListing 局部更新表单
// @Summary 更新表单字段，未提供的字段保持不变
// @Tags Listing
// @Accept json
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Param body body dto.PatchListingRequest true "更新内容"
// @Success 200 {object} dto.SessionView
// @Router /api/v1/sessions/{session_id}/listing [patch]
func (ctrl *ListingController) PatchListing(c *gin.Context) {
	var req dto.PatchListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctrl.dispatch(c, editor.PatchAction{Patch: req.ToPatch()})
}

// PackageTemplates 套餐模板
// @Summary 默认的 Basic / Standard / Premium 套餐
// @Tags Listing
// @Success 200 {array} dto.PackageTemplateVO
// @Router /api/v1/package-templates [get]
func (ctrl *ListingController) PackageTemplates(c *gin.Context) {
	templates := model.DefaultPackageTemplates()
	result := make([]dto.PackageTemplateVO, len(templates))
	for i, p := range templates {
		result[i] = dto.PackageTemplateVO{Key: templateKey(p.Name), Package: p}
	}
	success(c, http.StatusOK, "success", result)
}

// AddPackage 新增套餐
// @Summary 新增套餐，最多 3 个
// @Tags Listing
// @Accept json
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Param body body dto.AddPackageRequest true "套餐"
// @Success 201 {object} dto.SessionView
// @Router /api/v1/sessions/{session_id}/packages [post]
func (ctrl *ListingController) AddPackage(c *gin.Context) {
	var req dto.AddPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := ctrl.sessions.Dispatch(middleware.GetOwnerID(c), c.Param("session_id"),
		editor.AddPackageAction{Template: req.ToPackage()})
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusCreated, "success", view)
}

// UpdatePackage 更新套餐
// @Summary 更新套餐字段
// @Tags Listing
// @Accept json
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Param package_id path string true "套餐ID"
// @Param body body dto.UpdatePackageRequest true "更新内容"
// @Success 200 {object} dto.SessionView
// @Router /api/v1/sessions/{session_id}/packages/{package_id} [patch]
func (ctrl *ListingController) UpdatePackage(c *gin.Context) {
	var req dto.UpdatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctrl.dispatch(c, editor.UpdatePackageAction{ID: c.Param("package_id"), Patch: req.ToPatch()})
}

// RemovePackage 删除套餐
// @Summary 删除套餐
// @Tags Listing
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Param package_id path string true "套餐ID"
// @Success 200 {object} dto.SessionView
// @Router /api/v1/sessions/{session_id}/packages/{package_id} [delete]
func (ctrl *ListingController) RemovePackage(c *gin.Context) {
	ctrl.dispatch(c, editor.RemovePackageAction{ID: c.Param("package_id")})
}

// ==================== 步骤 ====================

// NextStep 前进一步，当前步骤有错误时返回 422
// @Summary 前进到下一步
// @Tags Listing
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Success 200 {object} dto.SessionView
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/sessions/{session_id}/steps/next [post]
func (ctrl *ListingController) NextStep(c *gin.Context) {
	ctrl.dispatch(c, editor.NextStepAction{})
}

// GoToStep 回到已到达的步骤
// @Summary 跳转到已到达的步骤
// @Tags Listing
// @Accept json
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Param body body dto.GoToStepRequest true "目标步骤"
// @Success 200 {object} dto.SessionView
// @Router /api/v1/sessions/{session_id}/steps/goto [post]
func (ctrl *ListingController) GoToStep(c *gin.Context) {
	var req dto.GoToStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	step, ok := editor.ParseStep(req.Step)
	if !ok {
		handleError(c, fmt.Errorf("%w: %s", editor.ErrUnknownStep, req.Step))
		return
	}
	ctrl.dispatch(c, editor.GoToStepAction{Step: step})
}

// ==================== 校验 / SEO / 预览 ====================

// Validation 当前表单的校验结果和步骤状态
// @Summary 校验结果
// @Tags Listing
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/sessions/{session_id}/validation [get]
func (ctrl *ListingController) Validation(c *gin.Context) {
	view, err := ctrl.sessions.View(middleware.GetOwnerID(c), c.Param("session_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusOK, "success", gin.H{
		"validation": view.Validation,
		"steps":      view.Steps,
		"progress":   view.Progress,
	})
}

// SEO SEO 分析
// @Summary SEO 评分与建议
// @Tags Listing
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Success 200 {object} seo.Analysis
// @Router /api/v1/sessions/{session_id}/seo [get]
func (ctrl *ListingController) SEO(c *gin.Context) {
	analysis, err := ctrl.sessions.SEO(middleware.GetOwnerID(c), c.Param("session_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusOK, "success", analysis)
}

// Review 发布前检查
// @Summary 发布前的完整检查
// @Tags Listing
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Success 200 {object} dto.ReviewView
// @Router /api/v1/sessions/{session_id}/review [get]
func (ctrl *ListingController) Review(c *gin.Context) {
	review, err := ctrl.sessions.Review(middleware.GetOwnerID(c), c.Param("session_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusOK, "success", review)
}

// ==================== 保存 / 发布 ====================

// Save 手动保存
// @Summary 立即保存草稿
// @Tags Listing
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Success 200 {object} dto.SaveResult
// @Router /api/v1/sessions/{session_id}/save [post]
func (ctrl *ListingController) Save(c *gin.Context) {
	result, err := ctrl.sessions.Save(c.Request.Context(), middleware.GetOwnerID(c), c.Param("session_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusOK, "保存成功", result)
}

// Publish 发布商品
// @Summary 发布到 Catalog，active 状态要求没有校验错误
// @Tags Listing
// @Accept json
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Param body body dto.PublishRequest true "发布参数"
// @Success 201 {object} dto.PublishResponse
// @Failure 422 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/v1/sessions/{session_id}/publish [post]
func (ctrl *ListingController) Publish(c *gin.Context) {
	var req dto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	opts := service.PublishOptions{
		Status:             model.ListingStatus(req.Status),
		PublishImmediately: req.Immediate(),
		PublishAt:          req.PublishAt,
	}
	resp, err := ctrl.sessions.Publish(c.Request.Context(), middleware.GetOwnerID(c), c.Param("session_id"), opts)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusCreated, "发布成功", resp)
}

// ==================== 媒体 ====================

// UploadMedia 上传媒体
// @Summary 批量上传图片/视频/文档，单个文件失败不影响其它文件
// @Tags Listing
// @Accept multipart/form-data
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Param kind path string true "image / video / document"
// @Param files formData file true "文件，可多个"
// @Success 200 {object} dto.MediaUploadResponse
// @Router /api/v1/sessions/{session_id}/media/{kind} [post]
func (ctrl *ListingController) UploadMedia(c *gin.Context) {
	kind := model.MediaKind(c.Param("kind"))
	if !kind.Valid() {
		handleError(c, fmt.Errorf("%w: %s", service.ErrMediaKind, kind))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		fail(c, http.StatusBadRequest, "请上传文件", nil)
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		fail(c, http.StatusBadRequest, "请上传文件", nil)
		return
	}
	if len(headers) > maxFilesPerUpload {
		fail(c, http.StatusBadRequest, fmt.Sprintf("单次最多上传 %d 个文件", maxFilesPerUpload), nil)
		return
	}

	files := make([]service.MediaFile, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			fail(c, http.StatusBadRequest, "读取文件失败: "+h.Filename, nil)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			fail(c, http.StatusBadRequest, "读取文件失败: "+h.Filename, nil)
			return
		}
		files = append(files, service.MediaFile{Filename: h.Filename, Data: data})
	}

	resp, err := ctrl.sessions.UploadMedia(c.Request.Context(), middleware.GetOwnerID(c), c.Param("session_id"), kind, files)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusOK, "success", resp)
}

// DetachMedia 移除媒体
// @Summary 移除媒体并删除文件
// @Tags Listing
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Param kind path string true "image / video / document"
// @Param media_id path string true "媒体ID（存储 key，可含 /）"
// @Success 200 {object} dto.SessionView
// @Router /api/v1/sessions/{session_id}/media/{kind}/{media_id} [delete]
func (ctrl *ListingController) DetachMedia(c *gin.Context) {
	mediaID := strings.TrimPrefix(c.Param("media_id"), "/")
	view, err := ctrl.sessions.DetachMedia(c.Request.Context(), middleware.GetOwnerID(c),
		c.Param("session_id"), model.MediaKind(c.Param("kind")), mediaID)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusOK, "success", view)
}

// ==================== 辅助函数 ====================

func (ctrl *ListingController) dispatch(c *gin.Context, action editor.Action) {
	view, err := ctrl.sessions.Dispatch(middleware.GetOwnerID(c), c.Param("session_id"), action)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusOK, "success", view)
}

func templateKey(name string) string {
	return strings.ToLower(name)
}
