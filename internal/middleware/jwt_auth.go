package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ==================== JWT 配置 ====================

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey      string        // 签名密钥
	AccessTokenTTL time.Duration // Access Token 有效期
	Issuer         string        // 签发者
}

// DefaultJWTConfig 默认配置
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		SecretKey:      "listing-studio-secret-key-change-in-production",
		AccessTokenTTL: 12 * time.Hour,
		Issuer:         "listing-studio",
	}
}

// 全局配置
var jwtConfig = DefaultJWTConfig()

// SetJWTConfig 设置 JWT 配置
func SetJWTConfig(cfg *JWTConfig) {
	jwtConfig = cfg
}

// GetJWTConfig 获取 JWT 配置
func GetJWTConfig() *JWTConfig {
	return jwtConfig
}

// ==================== Claims 定义 ====================

// SellerClaims 卖家声明，Subject 即卖家 ID
type SellerClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAccessToken 生成 Access Token
func GenerateAccessToken(ownerID, name string) (string, error) {
	if ownerID == "" {
		return "", errors.New("卖家 ID 不能为空")
	}
	now := time.Now()
	claims := &SellerClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtConfig.Issuer,
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtConfig.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.SecretKey))
}

// ParseToken 解析 Token
func ParseToken(tokenString string) (*SellerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SellerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(jwtConfig.SecretKey), nil
	}, jwt.WithIssuer(jwtConfig.Issuer))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SellerClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// ==================== Gin 中间件 ====================

// Context Keys
const (
	ContextKeyOwnerID = "owner_id"
	ContextKeyClaims  = "claims"
)

// JWTAuth JWT 认证中间件，卖家 ID 取自 Subject
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "未提供认证信息",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "认证格式错误，应为 Bearer {token}",
			})
			return
		}

		claims, err := ParseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Token 无效或已过期",
			})
			return
		}

		if claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Token 缺少卖家信息",
			})
			return
		}

		c.Set(ContextKeyOwnerID, claims.Subject)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// ==================== 辅助函数 ====================

// GetOwnerID 从 Context 获取卖家 ID
func GetOwnerID(c *gin.Context) string {
	if id, exists := c.Get(ContextKeyOwnerID); exists {
		return id.(string)
	}
	return ""
}

// GetSellerClaims 从 Context 获取完整 Claims
func GetSellerClaims(c *gin.Context) *SellerClaims {
	if claims, exists := c.Get(ContextKeyClaims); exists {
		return claims.(*SellerClaims)
	}
	return nil
}
