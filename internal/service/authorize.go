package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/chargegate/internal/config"
	"github.com/langchou/chargegate/internal/ocpp"
)

// AuthService idTag 授权策略
// 默认策略：白名单内的标签检查有效期，名单外的标签按 acceptAll 开关放行或拒绝
type AuthService struct {
	logger    *zap.Logger
	acceptAll bool
	expiry    time.Duration

	mu   sync.RWMutex
	tags map[string]time.Time // idTag -> 过期时间
}

// NewAuthService 创建授权服务，白名单从配置读入
func NewAuthService(cfg *config.Config, logger *zap.Logger) *AuthService {
	s := &AuthService{
		logger:    logger,
		acceptAll: cfg.AcceptAllTags,
		expiry:    cfg.TagExpiry,
		tags:      make(map[string]time.Time),
	}
	for _, tag := range cfg.AuthorizedTags {
		s.tags[tag] = time.Now().Add(cfg.TagExpiry)
	}
	return s
}

// Authorize 校验 idTag
func (s *AuthService) Authorize(idTag string) ocpp.IdTagInfo {
	if idTag == "" {
		return ocpp.IdTagInfo{Status: ocpp.AuthInvalid}
	}

	s.mu.RLock()
	expiresAt, known := s.tags[idTag]
	s.mu.RUnlock()

	if known {
		if time.Now().After(expiresAt) {
			s.logger.Warn("Tag expired", zap.String("id_tag", idTag))
			return ocpp.IdTagInfo{Status: ocpp.AuthExpired}
		}
		return ocpp.IdTagInfo{
			Status:     ocpp.AuthAccepted,
			ExpiryDate: expiresAt.UTC().Format(time.RFC3339),
		}
	}

	if !s.acceptAll {
		s.logger.Warn("Unknown tag rejected", zap.String("id_tag", idTag))
		return ocpp.IdTagInfo{Status: ocpp.AuthInvalid}
	}

	// 放行未知标签，给滚动有效期
	return ocpp.IdTagInfo{
		Status:     ocpp.AuthAccepted,
		ExpiryDate: time.Now().Add(s.expiry).UTC().Format(time.RFC3339),
	}
}

// AddTag 加入白名单
func (s *AuthService) AddTag(idTag string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[idTag] = expiresAt
	s.logger.Info("Tag authorized", zap.String("id_tag", idTag))
}

// RemoveTag 移出白名单
func (s *AuthService) RemoveTag(idTag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tags, idTag)
	s.logger.Info("Tag removed", zap.String("id_tag", idTag))
}
