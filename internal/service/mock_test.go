package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"listing_studio_v1/internal/model"
	"listing_studio_v1/internal/repository"
	"listing_studio_v1/pkg/catalog"
)

// ==================== Mock 实现 ====================

// mockScheduler 手动触发的自动保存调度器
type mockScheduler struct {
	mu        sync.Mutex
	jobs      map[string]func(ctx context.Context)
	cancelled map[string]bool
	err       error
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{
		jobs:      make(map[string]func(ctx context.Context)),
		cancelled: make(map[string]bool),
	}
}

func (m *mockScheduler) Schedule(key string, job func(ctx context.Context)) (func(), error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	m.jobs[key] = job
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.cancelled[key] = true
		delete(m.jobs, key)
		m.mu.Unlock()
	}, nil
}

// tick 触发一次自动保存，已取消时返回 false
func (m *mockScheduler) tick(key string) bool {
	m.mu.Lock()
	job, ok := m.jobs[key]
	m.mu.Unlock()
	if !ok {
		return false
	}
	job(context.Background())
	return true
}

func (m *mockScheduler) isCancelled(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelled[key]
}

// mockDraftRepo 包装真实仓储，可注入故障
type mockDraftRepo struct {
	repository.ListingDraftRepository
	createOrUpdateFn func(ctx context.Context, w *repository.DraftWrite) (*model.ListingDraft, bool, error)

	mu     sync.Mutex
	writes []repository.DraftWrite
}

func (m *mockDraftRepo) CreateOrUpdate(ctx context.Context, w *repository.DraftWrite) (*model.ListingDraft, bool, error) {
	m.mu.Lock()
	m.writes = append(m.writes, *w)
	m.mu.Unlock()
	if m.createOrUpdateFn != nil {
		return m.createOrUpdateFn(ctx, w)
	}
	return m.ListingDraftRepository.CreateOrUpdate(ctx, w)
}

func (m *mockDraftRepo) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

type mockCatalog struct {
	publishFn func(ctx context.Context, payload *catalog.ListingPayload) (*catalog.PublishResponse, error)

	mu       sync.Mutex
	payloads []*catalog.ListingPayload
}

func (m *mockCatalog) PublishListing(ctx context.Context, payload *catalog.ListingPayload) (*catalog.PublishResponse, error) {
	m.mu.Lock()
	m.payloads = append(m.payloads, payload)
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx, payload)
	}
	return &catalog.PublishResponse{ListingID: "lst_1", Status: payload.Status}, nil
}

func (m *mockCatalog) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

type mockStorage struct {
	mu       sync.Mutex
	uploaded map[string][]byte
	deleted  []string
	uploadFn func(key string, data []byte) error
}

func newMockStorage() *mockStorage {
	return &mockStorage{uploaded: make(map[string][]byte)}
}

func (m *mockStorage) Upload(ctx context.Context, data []byte, key string, contentType string) (string, error) {
	if m.uploadFn != nil {
		if err := m.uploadFn(key, data); err != nil {
			return "", err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploaded[key] = data
	return "https://cdn.test/" + key, nil
}

func (m *mockStorage) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return nil
}

// ==================== 辅助函数 ====================

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.ListingDraft{}, &model.PublicationRecord{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

// testClock 可手动推进的时钟
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testEnv 完整的服务组合
type testEnv struct {
	db        *gorm.DB
	repo      *mockDraftRepo
	scheduler *mockScheduler
	catalog   *mockCatalog
	storage   *mockStorage
	clock     *testClock
	drafts    *DraftService
	publisher *PublishService
	media     *MediaService
	sessions  *SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupServiceTestDB(t)
	log := zap.NewNop()
	clock := newTestClock()

	env := &testEnv{
		db:        db,
		repo:      &mockDraftRepo{ListingDraftRepository: repository.NewListingDraftRepository(db)},
		scheduler: newMockScheduler(),
		catalog:   &mockCatalog{},
		storage:   newMockStorage(),
		clock:     clock,
	}

	env.drafts = NewDraftService(env.repo, DefaultRetentionPolicy(), log)
	env.drafts.now = clock.Now
	env.publisher = NewPublishService(env.catalog, repository.NewPublicationRepository(db), log)
	env.publisher.now = clock.Now
	env.media = NewMediaService(env.storage, 2, log)
	env.media.now = clock.Now
	env.sessions = NewSessionService(env.drafts, env.publisher, env.media, env.scheduler, 2*time.Hour, log)
	env.sessions.now = clock.Now
	return env
}

// seedDrafts 直接写入 n 条草稿，第 i 条的更新时间为 start + i 分钟
func (e *testEnv) seedDrafts(t *testing.T, owner string, n int, start time.Time) {
	t.Helper()
	base := repository.NewListingDraftRepository(e.db)
	for i := 0; i < n; i++ {
		data := model.NewListingDraftData()
		data.Title = fmt.Sprintf("seeded %d", i)
		_, _, err := base.CreateOrUpdate(context.Background(), &repository.DraftWrite{
			OwnerID: owner, Data: data, Revision: 1, At: start.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed error = %v", err)
		}
	}
}

func strPtr(s string) *string { return &s }
