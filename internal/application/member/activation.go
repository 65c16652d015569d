package member

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/metrics"
)

const (
	DefaultTokenTTL = 72 * time.Hour
	tokenBytes      = 32
)

type ActivationConfig struct {
	TokenTTL time.Duration
}

// ActivationManager issues, resends and redeems activation tokens. Email
// requests are fire-and-forget: a mailer failure is logged and counted but
// never undoes the token.
type ActivationManager struct {
	tokens  domain.ActivationTokenRepository
	members domain.MemberQueryRepository
	mailer  domain.ActivationMailer
	ttl     time.Duration
	logger  logrus.FieldLogger

	now   func() time.Time
	newID func() string
}

func NewActivationManager(
	tokens domain.ActivationTokenRepository,
	members domain.MemberQueryRepository,
	mailer domain.ActivationMailer,
	cfg ActivationConfig,
	logger logrus.FieldLogger,
) *ActivationManager {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	return &ActivationManager{
		tokens:  tokens,
		members: members,
		mailer:  mailer,
		ttl:     cfg.TokenTTL,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// WithClock replaces the time source.
func (m *ActivationManager) WithClock(now func() time.Time) *ActivationManager {
	m.now = now
	return m
}

func (m *ActivationManager) Issue(ctx context.Context, memberID string) (domain.ActivationToken, error) {
	member, err := m.loadMember(ctx, memberID)
	if err != nil {
		return domain.ActivationToken{}, err
	}
	return m.IssueFor(ctx, member)
}

// IssueFor issues a token for a member the caller already holds, such as
// one just written by a commit.
func (m *ActivationManager) IssueFor(ctx context.Context, member domain.Member) (domain.ActivationToken, error) {
	token, err := m.issue(ctx, member)
	if err != nil {
		return domain.ActivationToken{}, err
	}
	metrics.ObserveActivation("issued")
	return token, nil
}

// Resend supersedes the member's current token with a fresh one.
func (m *ActivationManager) Resend(ctx context.Context, memberID string) (domain.ActivationToken, error) {
	member, err := m.loadMember(ctx, memberID)
	if err != nil {
		return domain.ActivationToken{}, err
	}
	token, err := m.issue(ctx, member)
	if err != nil {
		return domain.ActivationToken{}, err
	}
	metrics.ObserveActivation("resent")
	return token, nil
}

func (m *ActivationManager) loadMember(ctx context.Context, memberID string) (domain.Member, error) {
	if !uuidPattern.MatchString(memberID) {
		return domain.Member{}, ErrInvalidMemberID
	}
	member, err := m.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return domain.Member{}, ErrMemberNotFound
		}
		return domain.Member{}, errors.Wrap(err, "load member")
	}
	return member, nil
}

func (m *ActivationManager) issue(ctx context.Context, member domain.Member) (domain.ActivationToken, error) {
	if member.Status == domain.MemberActive {
		return domain.ActivationToken{}, domain.ErrAlreadyActivated
	}

	plain, err := newTokenValue()
	if err != nil {
		return domain.ActivationToken{}, errors.Wrap(err, "generate activation token")
	}

	now := m.now()
	token := domain.ActivationToken{
		ID:        m.newID(),
		MemberID:  member.ID,
		TokenHash: HashToken(plain),
		Status:    domain.TokenPending,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.tokens.Replace(ctx, token); err != nil {
		return domain.ActivationToken{}, errors.Wrap(err, "store activation token")
	}

	m.requestEmail(ctx, member, plain, token.ExpiresAt)
	return token, nil
}

func (m *ActivationManager) requestEmail(ctx context.Context, member domain.Member, plain string, expiresAt time.Time) {
	err := m.mailer.RequestActivationEmail(ctx, domain.ActivationEmail{
		MemberID:  member.ID,
		Email:     member.Email,
		FullName:  member.FullName,
		Token:     plain,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		metrics.ObserveEmailRequest("failed")
		m.logger.WithError(err).WithField("member_id", member.ID).Warn("activation email request failed")
		return
	}
	metrics.ObserveEmailRequest("queued")
}

// Activate redeems a token. Redeeming an already activated token succeeds
// again without side effects.
func (m *ActivationManager) Activate(ctx context.Context, plain string) (domain.ActivationToken, error) {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return domain.ActivationToken{}, domain.ErrTokenNotFound
	}

	token, err := m.tokens.FindByHash(ctx, HashToken(plain))
	if err != nil {
		return domain.ActivationToken{}, err
	}

	now := m.now()
	if err := usable(token, now); err != nil || token.Status == domain.TokenActivated {
		return token, err
	}

	activated := token
	activated.Status = domain.TokenActivated
	activated.ActivatedAt = &now
	if err := m.tokens.MarkActivated(ctx, activated); err != nil {
		if !errors.Is(err, domain.ErrTokenNotPending) {
			return domain.ActivationToken{}, errors.Wrap(err, "activate token")
		}
		// Lost a race with another redemption or a resend.
		current, findErr := m.tokens.FindByHash(ctx, token.TokenHash)
		if findErr != nil {
			return domain.ActivationToken{}, findErr
		}
		return current, usable(current, now)
	}

	metrics.ObserveActivation("activated")
	m.logger.WithField("member_id", token.MemberID).Info("member activated")
	return activated, nil
}

func usable(token domain.ActivationToken, now time.Time) error {
	switch token.EffectiveStatus(now) {
	case domain.TokenExpired:
		return domain.ErrTokenExpired
	case domain.TokenSuperseded:
		return domain.ErrTokenSuperseded
	}
	return nil
}

// Stats counts the current token of every member imported by batchID,
// applying expiry at read time.
func (m *ActivationManager) Stats(ctx context.Context, batchID string) (domain.ActivationStats, error) {
	if !uuidPattern.MatchString(batchID) {
		return domain.ActivationStats{}, ErrInvalidImportID
	}
	tokens, err := m.tokens.CurrentForBatch(ctx, batchID)
	if err != nil {
		return domain.ActivationStats{}, errors.Wrap(err, "load batch tokens")
	}

	now := m.now()
	var stats domain.ActivationStats
	for _, token := range tokens {
		stats.Add(token.EffectiveStatus(now))
	}
	return stats, nil
}

func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func newTokenValue() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
