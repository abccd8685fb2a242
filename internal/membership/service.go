// Package membership looks up member records, which decide how a member
// registration is billed.
package membership

import (
	"context"
	"fmt"

	"ms-membership/internal/apperr"
	"ms-membership/internal/logger"
	"ms-membership/internal/models"
)

type DBLayer interface {
	GetMember(ctx context.Context, memberID string) (*models.Member, error)
	GetMemberByPhone(ctx context.Context, phone string) (*models.Member, error)
}

type MemberCache interface {
	Get(ctx context.Context, memberID string) (*models.Member, error)
	Set(ctx context.Context, m *models.Member) error
	Invalidate(ctx context.Context, memberID string) error
}

type Service struct {
	DB     DBLayer
	Cache  MemberCache // optional
	Logger *logger.Logger
}

func NewService(db DBLayer, cache MemberCache, log *logger.Logger) *Service {
	return &Service{DB: db, Cache: cache, Logger: log}
}

// GetMember reads through the cache. Cache errors are logged and the
// database answers instead.
func (s *Service) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	if memberID == "" {
		return nil, apperr.Validation("member id is required")
	}
	if s.Cache != nil {
		m, err := s.Cache.Get(ctx, memberID)
		if err != nil {
			s.Logger.Warn("MEMBERSHIP", fmt.Sprintf("Member cache read failed for %s: %v", memberID, err))
		} else if m != nil {
			return m, nil
		}
	}

	m, err := s.DB.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, m); err != nil {
			s.Logger.Warn("MEMBERSHIP", fmt.Sprintf("Member cache write failed for %s: %v", memberID, err))
		}
	}
	return m, nil
}

// ResolveMember finds the member by id, or by phone when no id was given.
// When both are given and the cached record disagrees on the phone, the
// cached copy is dropped and the database answers.
func (s *Service) ResolveMember(ctx context.Context, memberID, phone string) (*models.Member, error) {
	if memberID == "" {
		if phone == "" {
			return nil, apperr.Validation("member id or phone is required")
		}
		return s.DB.GetMemberByPhone(ctx, phone)
	}

	m, err := s.GetMember(ctx, memberID)
	if err != nil || phone == "" || m.Phone == phone || s.Cache == nil {
		return m, err
	}
	if err := s.Cache.Invalidate(ctx, memberID); err != nil {
		s.Logger.Warn("MEMBERSHIP", fmt.Sprintf("Member cache invalidate failed for %s: %v", memberID, err))
	}
	return s.GetMember(ctx, memberID)
}
