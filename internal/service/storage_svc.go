package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ==================== 接口定义 ====================

// StorageProvider 媒体存储接口
type StorageProvider interface {
	// Upload 上传文件，返回公开访问URL
	Upload(ctx context.Context, data []byte, key string, contentType string) (url string, err error)

	// Delete 删除文件
	Delete(ctx context.Context, url string) error
}

// ==================== 配置 ====================

type StorageConfig struct {
	Provider  string // "s3" | "local"
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // S3 兼容服务端点（MinIO、COS 等）；local 模式为访问前缀
	CDNDomain string
	BasePath  string
}

// ==================== 工厂方法 ====================

func NewStorageProvider(cfg StorageConfig) (StorageProvider, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3Storage(cfg)
	case "local", "":
		return NewLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("不支持的存储提供者: %s", cfg.Provider)
	}
}

// MediaKey 生成对象路径：{kind}/{yyyy/mm/dd}/{uuid}{ext}
func MediaKey(kind, filename string, data []byte, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = mimetype.Detect(data).Extension()
	}
	return fmt.Sprintf("%s/%s/%s%s", kind, now.Format("2006/01/02"), uuid.NewString(), ext)
}

// ==================== S3 实现 ====================

type S3Storage struct {
	client    *s3.Client
	bucket    string
	region    string
	endpoint  string
	cdnDomain string
	basePath  string
}

func NewS3Storage(cfg StorageConfig) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %v", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		cdnDomain: cfg.CDNDomain,
		basePath:  strings.Trim(cfg.BasePath, "/"),
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, data []byte, key string, contentType string) (string, error) {
	if s.basePath != "" && s.basePath != "." {
		key = s.basePath + "/" + key
	}
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传S3失败: %v", err)
	}

	return s.publicURL(key), nil
}

func (s *S3Storage) Delete(ctx context.Context, url string) error {
	key := s.extractKey(url)
	if key == "" {
		return fmt.Errorf("无法解析文件路径")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3Storage) urlPrefix() string {
	switch {
	case s.cdnDomain != "":
		return fmt.Sprintf("https://%s/", s.cdnDomain)
	case s.endpoint != "":
		return fmt.Sprintf("%s/%s/", s.endpoint, s.bucket)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region)
	}
}

func (s *S3Storage) publicURL(key string) string {
	return s.urlPrefix() + key
}

func (s *S3Storage) extractKey(url string) string {
	prefix := s.urlPrefix()
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}

// ==================== 本地存储 (开发测试用) ====================

type LocalStorage struct {
	basePath string
	baseURL  string
}

func NewLocalStorage(cfg StorageConfig) (*LocalStorage, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "./uploads"
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "http://localhost:8080/uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录失败: %v", err)
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStorage) Upload(ctx context.Context, data []byte, key string, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("创建目录失败: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写入文件失败: %v", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalStorage) Delete(ctx context.Context, url string) error {
	key := strings.TrimPrefix(url, s.baseURL+"/")
	if key == url || key == "" {
		return fmt.Errorf("无法解析文件路径")
	}
	err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Root 本地存储根目录，供静态文件路由使用
func (s *LocalStorage) Root() string {
	return s.basePath
}
