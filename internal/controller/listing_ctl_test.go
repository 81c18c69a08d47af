package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"listing_studio_v1/internal/api/dto"
	"listing_studio_v1/internal/editor"
	"listing_studio_v1/internal/middleware"
	"listing_studio_v1/internal/model"
	"listing_studio_v1/internal/repository"
	"listing_studio_v1/internal/service"
	"listing_studio_v1/pkg/catalog"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := dto.RegisterValidators(); err != nil {
		panic(err)
	}
}

// ==================== 测试替身 ====================

type noopScheduler struct{}

func (noopScheduler) Schedule(key string, job func(ctx context.Context)) (func(), error) {
	return func() {}, nil
}

type fakeCatalog struct {
	err error
}

func (f *fakeCatalog) PublishListing(ctx context.Context, payload *catalog.ListingPayload) (*catalog.PublishResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &catalog.PublishResponse{ListingID: "lst_42", Status: payload.Status}, nil
}

type memoryStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memoryStorage) Upload(ctx context.Context, data []byte, key string, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = data
	return "https://cdn.test/" + key, nil
}

func (m *memoryStorage) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, strings.TrimPrefix(url, "https://cdn.test/"))
	return nil
}

// ==================== 测试环境 ====================

type testServer struct {
	router   *gin.Engine
	catalog  *fakeCatalog
	storage  *memoryStorage
	drafts   *service.DraftService
	sessions *service.SessionService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.ListingDraft{}, &model.PublicationRecord{}))

	log := zap.NewNop()
	ts := &testServer{
		catalog: &fakeCatalog{},
		storage: &memoryStorage{files: make(map[string][]byte)},
	}
	ts.drafts = service.NewDraftService(repository.NewListingDraftRepository(db), service.DefaultRetentionPolicy(), log)
	publisher := service.NewPublishService(ts.catalog, repository.NewPublicationRepository(db), log)
	media := service.NewMediaService(ts.storage, 2, log)
	ts.sessions = service.NewSessionService(ts.drafts, publisher, media, noopScheduler{}, time.Hour, log)

	listing := NewListingController(ts.sessions)
	draft := NewDraftController(ts.drafts, publisher)
	health := NewHealthController(sqlDB, ts.sessions)

	r := gin.New()
	r.GET("/health", health.Health)
	// 测试中以 X-Owner 头代替 JWT
	api := r.Group("/api/v1", func(c *gin.Context) {
		c.Set(middleware.ContextKeyOwnerID, c.GetHeader("X-Owner"))
	})
	api.GET("/package-templates", listing.PackageTemplates)
	api.POST("/sessions", listing.OpenSession)
	api.GET("/sessions/:session_id", listing.GetSession)
	api.DELETE("/sessions/:session_id", listing.CloseSession)
	api.PATCH("/sessions/:session_id/listing", listing.PatchListing)
	api.POST("/sessions/:session_id/packages", listing.AddPackage)
	api.PATCH("/sessions/:session_id/packages/:package_id", listing.UpdatePackage)
	api.DELETE("/sessions/:session_id/packages/:package_id", listing.RemovePackage)
	api.POST("/sessions/:session_id/steps/next", listing.NextStep)
	api.POST("/sessions/:session_id/steps/goto", listing.GoToStep)
	api.GET("/sessions/:session_id/validation", listing.Validation)
	api.GET("/sessions/:session_id/seo", listing.SEO)
	api.GET("/sessions/:session_id/review", listing.Review)
	api.POST("/sessions/:session_id/save", listing.Save)
	api.POST("/sessions/:session_id/publish", listing.Publish)
	api.POST("/sessions/:session_id/media/:kind", listing.UploadMedia)
	api.DELETE("/sessions/:session_id/media/:kind/*media_id", listing.DetachMedia)
	api.GET("/drafts", draft.ListDrafts)
	api.GET("/drafts/:draft_id", draft.GetDraft)
	api.DELETE("/drafts/:draft_id", draft.DeleteDraft)
	api.GET("/publications", draft.ListPublications)

	ts.router = r
	return ts
}

// ==================== 请求构造辅助 ====================

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (ts *testServer) do(t *testing.T, method, path, owner string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &reqBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Owner", owner)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v), string(env.Data))
	return v
}

func (ts *testServer) open(t *testing.T, owner string) dto.SessionView {
	t.Helper()
	w, env := ts.do(t, http.MethodPost, "/api/v1/sessions", owner, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.SessionView](t, env)
}

func sessionPath(sid string, parts ...string) string {
	return "/api/v1/sessions/" + sid + strings.Join(parts, "")
}

func basicInfoBody() map[string]interface{} {
	return map[string]interface{}{
		"title":          "Professional logo design",
		"category_id":    "design",
		"subcategory_id": "logo",
		"description":    "<p>" + strings.Repeat("Clean modern logos for your brand. ", 4) + "</p>",
		"tags":           []string{"logo", "Logo", " branding "},
	}
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

// ==================== 测试用例 ====================

func TestListingController_OpenAndPatch(t *testing.T) {
	ts := newTestServer(t)
	view := ts.open(t, "seller-1")
	assert.Equal(t, "basic_info", view.CurrentStep)

	w, env := ts.do(t, http.MethodPatch, sessionPath(view.SessionID, "/listing"), "seller-1", basicInfoBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	patched := decode[dto.SessionView](t, env)
	assert.Equal(t, []string{"logo", "branding"}, patched.Data.Tags)
	assert.Equal(t, int64(1), patched.Version)
	assert.True(t, patched.Save.Dirty)

	w, _ = ts.do(t, http.MethodGet, sessionPath(view.SessionID), "seller-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "other owners cannot see the session")
}

func TestListingController_PatchValidation(t *testing.T) {
	ts := newTestServer(t)
	view := ts.open(t, "seller-1")

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"标题过长", map[string]interface{}{"title": strings.Repeat("x", 81)}},
		{"描述纯文本过长", map[string]interface{}{"description": "<b>" + strings.Repeat("y", 2001) + "</b>"}},
		{"标签过多", map[string]interface{}{"tags": strings.Split("a,b,c,d,e,f,g,h,i,j,k", ",")}},
		{"状态非法", map[string]interface{}{"status": "archived"}},
		{"修改次数越界", map[string]interface{}{"revision_count": 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := ts.do(t, http.MethodPatch, sessionPath(view.SessionID, "/listing"), "seller-1", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	// 带标记的长描述，纯文本未超限
	markup := map[string]interface{}{"description": strings.Repeat("<p><b>z</b></p>", 300)}
	w, _ := ts.do(t, http.MethodPatch, sessionPath(view.SessionID, "/listing"), "seller-1", markup)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestListingController_Packages(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open(t, "seller-1").SessionID

	w, env := ts.do(t, http.MethodGet, "/api/v1/package-templates", "seller-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	templates := decode[[]dto.PackageTemplateVO](t, env)
	require.Len(t, templates, 3)
	assert.Equal(t, "basic", templates[0].Key)

	for _, tmpl := range []string{"basic", "standard", "premium"} {
		w, _ = ts.do(t, http.MethodPost, sessionPath(sid, "/packages"), "seller-1", map[string]interface{}{"template": tmpl})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w, env = ts.do(t, http.MethodPost, sessionPath(sid, "/packages"), "seller-1", map[string]interface{}{"name": "Fourth"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, model.ErrPackageLimit.Error(), env.Message)

	_, env = ts.do(t, http.MethodGet, sessionPath(sid), "seller-1", nil)
	view := decode[dto.SessionView](t, env)
	require.Len(t, view.Data.Packages, 3)
	first := view.Data.Packages[0].ID

	w, env = ts.do(t, http.MethodPatch, sessionPath(sid, "/packages/", first), "seller-1",
		map[string]interface{}{"price": 30, "is_popular": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = decode[dto.SessionView](t, env)
	assert.Equal(t, 30.0, view.Data.Packages[0].Price)
	assert.True(t, view.Data.Packages[0].IsPopular)
	assert.False(t, view.Data.Packages[1].IsPopular, "only one popular package")

	w, _ = ts.do(t, http.MethodDelete, sessionPath(sid, "/packages/", first), "seller-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = ts.do(t, http.MethodDelete, sessionPath(sid, "/packages/", first), "seller-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListingController_Steps(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open(t, "seller-1").SessionID

	w, env := ts.do(t, http.MethodPost, sessionPath(sid, "/steps/next"), "seller-1", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	blocked := decode[struct {
		Step   string `json:"step"`
		Issues []struct {
			Field string `json:"field"`
		} `json:"issues"`
	}](t, env)
	assert.Equal(t, "basic_info", blocked.Step)
	assert.NotEmpty(t, blocked.Issues)

	ts.do(t, http.MethodPatch, sessionPath(sid, "/listing"), "seller-1", basicInfoBody())
	w, env = ts.do(t, http.MethodPost, sessionPath(sid, "/steps/next"), "seller-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "pricing", decode[dto.SessionView](t, env).CurrentStep)

	w, _ = ts.do(t, http.MethodPost, sessionPath(sid, "/steps/goto"), "seller-1", map[string]string{"step": "seo"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w, _ = ts.do(t, http.MethodPost, sessionPath(sid, "/steps/goto"), "seller-1", map[string]string{"step": "checkout"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, env = ts.do(t, http.MethodPost, sessionPath(sid, "/steps/goto"), "seller-1", map[string]string{"step": "basic_info"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "basic_info", decode[dto.SessionView](t, env).CurrentStep)

	w, env = ts.do(t, http.MethodGet, sessionPath(sid, "/validation"), "seller-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"steps"`)
}

func TestListingController_FullFlowAndPublish(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open(t, "seller-1").SessionID

	ts.do(t, http.MethodPatch, sessionPath(sid, "/listing"), "seller-1", basicInfoBody())
	ts.do(t, http.MethodPost, sessionPath(sid, "/packages"), "seller-1", map[string]interface{}{"template": "standard"})
	ts.do(t, http.MethodPatch, sessionPath(sid, "/listing"), "seller-1", map[string]interface{}{
		"requirements":    []string{"Brand name", "Color preferences"},
		"seo_title":       "Professional logo design for startups",
		"seo_description": "Custom logo design with unlimited concepts and fast delivery for your brand.",
		"keywords":        []string{"logo", "brand"},
	})

	// 未到 Review 不能发布
	w, _ := ts.do(t, http.MethodPost, sessionPath(sid, "/publish"), "seller-1", map[string]string{"status": "active"})
	assert.Equal(t, http.StatusConflict, w.Code)

	for i := 0; i < 5; i++ {
		w, _ = ts.do(t, http.MethodPost, sessionPath(sid, "/steps/next"), "seller-1", nil)
		require.Equal(t, http.StatusOK, w.Code, "step %d: %s", i, w.Body.String())
	}
	w, _ = ts.do(t, http.MethodPost, sessionPath(sid, "/steps/next"), "seller-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "already at the last step")

	w, env := ts.do(t, http.MethodGet, sessionPath(sid, "/review"), "seller-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	review := decode[dto.ReviewView](t, env)
	assert.True(t, review.CanPublish)
	assert.Contains(t, review.Missing, "images")

	w, env = ts.do(t, http.MethodGet, sessionPath(sid, "/seo"), "seller-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"score"`)

	w, _ = ts.do(t, http.MethodPost, sessionPath(sid, "/publish"), "seller-1", map[string]interface{}{
		"status": "active", "publish_immediately": false,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "scheduled publish needs publish_at")

	w, env = ts.do(t, http.MethodPost, sessionPath(sid, "/publish"), "seller-1", map[string]string{"status": "active"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "lst_42", decode[dto.PublishResponse](t, env).ListingID)

	ts.catalog.err = fmt.Errorf("%w: timeout", catalog.ErrUnavailable)
	w, _ = ts.do(t, http.MethodPost, sessionPath(sid, "/publish"), "seller-1", map[string]string{"status": "active"})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w, env = ts.do(t, http.MethodGet, "/api/v1/publications", "seller-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.PublicationVO](t, env), 1)
}

func TestListingController_PublishRemoteRejection(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open(t, "seller-1").SessionID
	ts.catalog.err = &catalog.ValidationError{
		StatusCode: 400,
		Message:    "bad listing",
		Errors:     []catalog.FieldError{{Field: "title", Message: "contains banned word", Severity: "error"}},
	}

	ts.do(t, http.MethodPatch, sessionPath(sid, "/listing"), "seller-1", map[string]string{"title": "Draft only"})
	_, err := ts.sessions.Dispatch("seller-1", sid, editor.LoadAction{
		Data:    ts.mustView(t, "seller-1", sid).Data,
		Step:    editor.StepReview,
		Version: 1,
	})
	require.NoError(t, err)

	w, env := ts.do(t, http.MethodPost, sessionPath(sid, "/publish"), "seller-1", map[string]string{"status": "draft"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, string(env.Data), "contains banned word")
	assert.Contains(t, string(env.Data), `"remote":true`)
}

func (ts *testServer) mustView(t *testing.T, owner, sid string) *dto.SessionView {
	t.Helper()
	view, err := ts.sessions.View(owner, sid)
	require.NoError(t, err)
	return view
}

func TestListingController_SaveAndDrafts(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open(t, "seller-1").SessionID

	w, _ := ts.do(t, http.MethodPost, sessionPath(sid, "/save"), "seller-1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "nothing to save")

	ts.do(t, http.MethodPatch, sessionPath(sid, "/listing"), "seller-1", basicInfoBody())
	w, env := ts.do(t, http.MethodPost, sessionPath(sid, "/save"), "seller-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decode[dto.SaveResult](t, env)
	assert.True(t, saved.Created)

	w, env = ts.do(t, http.MethodGet, "/api/v1/drafts", "seller-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]dto.DraftSummaryVO](t, env)
	require.Len(t, list, 1)
	assert.Equal(t, "Professional logo design", list[0].Preview)
	assert.Equal(t, "basic_info", list[0].Step)

	w, env = ts.do(t, http.MethodGet, "/api/v1/drafts/"+saved.DraftID, "seller-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, saved.Revision, decode[dto.DraftDetailVO](t, env).Revision)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/drafts/"+saved.DraftID, "seller-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 关闭后从草稿恢复
	w, _ = ts.do(t, http.MethodDelete, sessionPath(sid), "seller-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, env = ts.do(t, http.MethodPost, "/api/v1/sessions", "seller-1", map[string]string{"draft_id": saved.DraftID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	restored := decode[dto.SessionView](t, env)
	assert.Equal(t, saved.DraftID, restored.Save.DraftID)
	assert.Equal(t, "Professional logo design", restored.Data.Title)

	w, _ = ts.do(t, http.MethodDelete, "/api/v1/drafts/"+saved.DraftID, "seller-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = ts.do(t, http.MethodDelete, "/api/v1/drafts/"+saved.DraftID, "seller-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/publications?limit=abc", "seller-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (ts *testServer) upload(t *testing.T, owner, sid, kind string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest(http.MethodPost, sessionPath(sid, "/media/", kind), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Owner", owner)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func TestListingController_Media(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open(t, "seller-1").SessionID

	w := ts.upload(t, "seller-1", sid, "image", map[string][]byte{
		"logo.png":  pngBytes,
		"notes.png": []byte("not an image at all"),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	resp := decode[dto.MediaUploadResponse](t, env)
	assert.Equal(t, 1, resp.Uploaded)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Session.Data.Media.Images, 1)
	mediaID := resp.Session.Data.Media.Images[0].ID
	assert.True(t, strings.HasPrefix(mediaID, "image/"))

	w = ts.upload(t, "seller-1", sid, "audio", map[string][]byte{"a.mp3": []byte("x")})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = ts.do(t, http.MethodDelete, sessionPath(sid, "/media/image/", mediaID), "seller-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decode[dto.SessionView](t, env).Data.Media.Images)
	assert.Empty(t, ts.storage.files)

	w, _ = ts.do(t, http.MethodDelete, sessionPath(sid, "/media/image/", mediaID), "seller-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthController(t *testing.T) {
	ts := newTestServer(t)
	ts.open(t, "seller-1")

	w, env := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `"up"`, string(decode[map[string]json.RawMessage](t, env)["database"]))
	assert.JSONEq(t, `1`, string(decode[map[string]json.RawMessage](t, env)["sessions"]))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", service.ErrDraftNotFound), http.StatusNotFound},
		{service.ErrNotAtReview, http.StatusConflict},
		{editor.ErrStepLocked, http.StatusConflict},
		{model.ErrDuplicatePackage, http.StatusConflict},
		{fmt.Errorf("%w: stale", service.ErrDraftConflict), http.StatusConflict},
		{editor.ErrMediaLimit, http.StatusUnprocessableEntity},
		{service.ErrPublishAtRequired, http.StatusBadRequest},
		{fmt.Errorf("%w: x", service.ErrPublishFailed), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}
