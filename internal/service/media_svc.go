package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"listing_studio_v1/internal/model"
)

var (
	ErrMediaTooLarge   = errors.New("文件超出大小限制")
	ErrMediaType       = errors.New("文件类型不允许")
	ErrMediaEmpty      = errors.New("文件为空")
	ErrMediaKind       = errors.New("未知媒体类型")
	ErrMediaCapReached = errors.New("媒体数量已达上限")
)

// MediaRule 每类媒体的上传限制
type MediaRule struct {
	MaxBytes int64
	Allowed  []string // MIME 类型，支持 image/* 形式的通配
}

// DefaultMediaRules 默认上传限制
var DefaultMediaRules = map[model.MediaKind]MediaRule{
	model.MediaKindImage: {
		MaxBytes: 10 << 20,
		Allowed:  []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
	},
	model.MediaKindVideo: {
		MaxBytes: 200 << 20,
		Allowed:  []string{"video/*"},
	},
	model.MediaKindDocument: {
		MaxBytes: 20 << 20,
		Allowed: []string{
			"application/pdf",
			"text/plain",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/zip",
		},
	},
}

// MediaFile 待上传文件
type MediaFile struct {
	Filename string
	Data     []byte
}

// MediaUploadResult 单个文件的上传结果，Err 与 Media 二选一
type MediaUploadResult struct {
	Filename string
	Media    *model.MediaRef
	Err      error
}

// MediaService 媒体上传服务
type MediaService struct {
	storage     StorageProvider
	rules       map[model.MediaKind]MediaRule
	maxParallel int
	logger      *zap.Logger
	now         func() time.Time
}

// NewMediaService 创建媒体服务
func NewMediaService(storage StorageProvider, maxParallel int, logger *zap.Logger) *MediaService {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &MediaService{
		storage:     storage,
		rules:       DefaultMediaRules,
		maxParallel: maxParallel,
		logger:      logger.Named("media"),
		now:         time.Now,
	}
}

// Upload 校验并上传单个文件
func (s *MediaService) Upload(ctx context.Context, file MediaFile, kind model.MediaKind) (*model.MediaRef, error) {
	rule, ok := s.rules[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMediaKind, kind)
	}
	size := int64(len(file.Data))
	if size == 0 {
		return nil, ErrMediaEmpty
	}
	if size > rule.MaxBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrMediaTooLarge, size, rule.MaxBytes)
	}

	mtype := mimetype.Detect(file.Data)
	if !allowedMIME(mtype, rule.Allowed) {
		return nil, fmt.Errorf("%w: %s", ErrMediaType, mtype.String())
	}

	key := MediaKey(string(kind), file.Filename, file.Data, s.now())
	url, err := s.storage.Upload(ctx, file.Data, key, mtype.String())
	if err != nil {
		return nil, err
	}

	return &model.MediaRef{
		ID:  key,
		URL: url,
		Metadata: map[string]string{
			"filename":     file.Filename,
			"content_type": mtype.String(),
			"size":         strconv.FormatInt(size, 10),
		},
	}, nil
}

// UploadBatch 并发上传，单个失败不影响其它文件，结果顺序与输入一致
func (s *MediaService) UploadBatch(ctx context.Context, files []MediaFile, kind model.MediaKind) []MediaUploadResult {
	results := make([]MediaUploadResult, len(files))
	p := pool.New().WithMaxGoroutines(s.maxParallel)

	for i, file := range files {
		i, file := i, file
		p.Go(func() {
			ref, err := s.Upload(ctx, file, kind)
			results[i] = MediaUploadResult{Filename: file.Filename, Media: ref, Err: err}
			if err != nil {
				s.logger.Warn("[MediaService] 上传失败",
					zap.String("filename", file.Filename),
					zap.String("kind", string(kind)),
					zap.Error(err))
			}
		})
	}
	p.Wait()
	return results
}

// Remove 删除存储中的文件，失败只记录日志
func (s *MediaService) Remove(ctx context.Context, ref model.MediaRef) {
	if ref.URL == "" {
		return
	}
	if err := s.storage.Delete(ctx, ref.URL); err != nil {
		s.logger.Warn("[MediaService] 删除文件失败", zap.String("url", ref.URL), zap.Error(err))
	}
}

func allowedMIME(m *mimetype.MIME, allowed []string) bool {
	for _, a := range allowed {
		if strings.HasSuffix(a, "/*") {
			prefix := strings.TrimSuffix(a, "*")
			for cur := m; cur != nil; cur = cur.Parent() {
				if strings.HasPrefix(cur.String(), prefix) {
					return true
				}
			}
			continue
		}
		if m.Is(a) {
			return true
		}
	}
	return false
}
