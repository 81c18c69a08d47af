package router

import (
	"github.com/gin-gonic/gin"

	"listing_studio_v1/internal/controller"
	"listing_studio_v1/internal/middleware"
)

// Controllers 路由依赖
type Controllers struct {
	Listing *controller.ListingController
	Draft   *controller.DraftController
	Health  *controller.HealthController
}

// Options 路由选项
type Options struct {
	UploadsRoot string // 本地存储目录，非空时挂载 /uploads 静态路由
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctl Controllers, opts Options) {
	r.GET("/health", ctl.Health.Health)

	if opts.UploadsRoot != "" {
		r.Static("/uploads", opts.UploadsRoot)
	}

	api := r.Group("/api/v1", middleware.JWTAuth())
	{
		api.GET("/package-templates", ctl.Listing.PackageTemplates)

		// sessions 编辑会话
		sessions := api.Group("/sessions")
		{
			sessions.POST("", ctl.Listing.OpenSession)
			sessions.GET("/:session_id", ctl.Listing.GetSession)
			sessions.DELETE("/:session_id", ctl.Listing.CloseSession)

			sessions.PATCH("/:session_id/listing", ctl.Listing.PatchListing)

			sessions.POST("/:session_id/packages", ctl.Listing.AddPackage)
			sessions.PATCH("/:session_id/packages/:package_id", ctl.Listing.UpdatePackage)
			sessions.DELETE("/:session_id/packages/:package_id", ctl.Listing.RemovePackage)

			sessions.POST("/:session_id/steps/next", ctl.Listing.NextStep)
			sessions.POST("/:session_id/steps/goto", ctl.Listing.GoToStep)

			sessions.GET("/:session_id/validation", ctl.Listing.Validation)
			sessions.GET("/:session_id/seo", ctl.Listing.SEO)
			sessions.GET("/:session_id/review", ctl.Listing.Review)

			sessions.POST("/:session_id/save",
				middleware.ActionRateLimit(middleware.ActionSave, 0),
				ctl.Listing.Save,
			)
			sessions.POST("/:session_id/publish",
				middleware.ActionRateLimit(middleware.ActionPublish, 0),
				ctl.Listing.Publish,
			)

			sessions.POST("/:session_id/media/:kind",
				middleware.ActionRateLimit(middleware.ActionUpload, 0),
				ctl.Listing.UploadMedia,
			)
			// media_id 是存储 key，包含 /
			sessions.DELETE("/:session_id/media/:kind/*media_id", ctl.Listing.DetachMedia)
		}

		// drafts 草稿
		drafts := api.Group("/drafts")
		{
			drafts.GET("", ctl.Draft.ListDrafts)
			drafts.GET("/:draft_id", ctl.Draft.GetDraft)
			drafts.DELETE("/:draft_id", ctl.Draft.DeleteDraft)
		}

		api.GET("/publications", ctl.Draft.ListPublications)
	}
}
