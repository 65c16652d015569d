package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/infrastructure/db/models"
)

type ActivationTokenRepository struct {
	db *gorm.DB
}

func NewActivationTokenRepository(db *gorm.DB) *ActivationTokenRepository {
	return &ActivationTokenRepository{db: db}
}

// Replace supersedes the member's pending token, if any, and stores token
// in the same transaction. The partial unique index on pending tokens
// rejects a concurrent replace instead of leaving two live tokens.
func (r *ActivationTokenRepository) Replace(ctx context.Context, token domain.ActivationToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ActivationToken{}).
			Where("member_id = ? AND status = ?", token.MemberID, string(domain.TokenPending)).
			Updates(map[string]any{
				"status":        string(domain.TokenSuperseded),
				"superseded_at": token.IssuedAt,
				"superseded_by": token.ID,
			}).Error; err != nil {
			return fmt.Errorf("supersede activation tokens: %w", err)
		}

		row := toTokenModel(token)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert activation token: %w", err)
		}
		return nil
	})
}

func (r *ActivationTokenRepository) FindByHash(ctx context.Context, hash string) (domain.ActivationToken, error) {
	var row models.ActivationToken
	if err := r.db.WithContext(ctx).First(&row, "token_hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ActivationToken{}, domain.ErrTokenNotFound
		}
		return domain.ActivationToken{}, fmt.Errorf("find activation token: %w", err)
	}
	return toTokenDomain(row), nil
}

// MarkActivated flips a pending token to activated and activates its member
// and user account. It returns ErrTokenNotPending when the token was
// redeemed or superseded in the meantime.
func (r *ActivationTokenRepository) MarkActivated(ctx context.Context, token domain.ActivationToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ActivationToken{}).
			Where("id = ? AND status = ?", token.ID, string(domain.TokenPending)).
			Updates(map[string]any{
				"status":       string(domain.TokenActivated),
				"activated_at": token.ActivatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("activate token: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrTokenNotPending
		}

		activation := map[string]any{
			"status":       string(domain.MemberActive),
			"activated_at": token.ActivatedAt,
			"updated_at":   token.ActivatedAt,
		}
		if err := tx.Model(&models.Member{}).Where("id = ?", token.MemberID).Updates(activation).Error; err != nil {
			return fmt.Errorf("activate member: %w", err)
		}
		if err := tx.Model(&models.User{}).
			Where("id = (?)", tx.Model(&models.Member{}).Select("user_id").Where("id = ?", token.MemberID)).
			Updates(activation).Error; err != nil {
			return fmt.Errorf("activate user: %w", err)
		}
		return nil
	})
}

// CurrentForBatch returns the live or final token of every member the batch
// created. Superseded tokens are left out.
func (r *ActivationTokenRepository) CurrentForBatch(ctx context.Context, batchID string) ([]domain.ActivationToken, error) {
	var rows []models.ActivationToken
	err := r.db.WithContext(ctx).
		Model(&models.ActivationToken{}).
		Joins("JOIN members ON members.id = activation_tokens.member_id").
		Where("members.import_batch_id = ? AND activation_tokens.status <> ?", batchID, string(domain.TokenSuperseded)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list batch activation tokens: %w", err)
	}

	out := make([]domain.ActivationToken, 0, len(rows))
	for _, row := range rows {
		out = append(out, toTokenDomain(row))
	}
	return out, nil
}

func toTokenModel(t domain.ActivationToken) models.ActivationToken {
	return models.ActivationToken{
		ID:           t.ID,
		MemberID:     t.MemberID,
		TokenHash:    t.TokenHash,
		Status:       string(t.Status),
		SupersededBy: nullableText(t.SupersededBy),
		IssuedAt:     t.IssuedAt,
		ExpiresAt:    t.ExpiresAt,
		ActivatedAt:  t.ActivatedAt,
		SupersededAt: t.SupersededAt,
	}
}

func toTokenDomain(row models.ActivationToken) domain.ActivationToken {
	t := domain.ActivationToken{
		ID:           row.ID,
		MemberID:     row.MemberID,
		TokenHash:    row.TokenHash,
		Status:       domain.TokenStatus(row.Status),
		IssuedAt:     row.IssuedAt,
		ExpiresAt:    row.ExpiresAt,
		ActivatedAt:  row.ActivatedAt,
		SupersededAt: row.SupersededAt,
	}
	if row.SupersededBy != nil {
		t.SupersededBy = *row.SupersededBy
	}
	return t
}
