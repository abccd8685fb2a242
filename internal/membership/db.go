package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-membership/internal/apperr"
	"ms-membership/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	var m models.Member
	err := d.Bun.NewSelect().
		Model(&m).
		Where("member_id = ?", memberID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", memberID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (d *DB) GetMemberByPhone(ctx context.Context, phone string) (*models.Member, error) {
	var m models.Member
	err := d.Bun.NewSelect().
		Model(&m).
		Where("phone = ?", phone).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member with phone %s: %w", phone, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get member by phone: %w", err)
	}
	return &m, nil
}
