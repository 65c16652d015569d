package member_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	app "github.com/mohammadpnp/member-import/internal/application/member"
	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

const (
	memberID = "a3f91a91-7fdd-43bf-bfd2-00bc02f6c53e"
	batchID  = "0b7e4f5c-1f7a-4d2e-9c3b-5a6d7e8f9a0b"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type activationFixture struct {
	members *fakeMembers
	tokens  *fakeTokens
	mailer  *fakeMailer
	clock   *clock
	manager *app.ActivationManager
}

func newActivationFixture(t *testing.T) *activationFixture {
	t.Helper()

	f := &activationFixture{
		members: newFakeMembers(),
		mailer:  &fakeMailer{},
		clock:   &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.tokens = newFakeTokens(f.members)
	f.members.add(domain.Member{
		ID:            memberID,
		Email:         "siti@example.com",
		FullName:      "Siti",
		MemberNumber:  "M1",
		Status:        domain.MemberPendingActivation,
		ImportBatchID: batchID,
	})
	f.manager = app.NewActivationManager(f.tokens, f.members, f.mailer, app.ActivationConfig{TokenTTL: 72 * time.Hour}, quietLogger()).
		WithClock(f.clock.Now)
	return f
}

func (f *activationFixture) lastToken(t *testing.T) string {
	t.Helper()
	email, ok := f.mailer.lastFor(memberID)
	require.True(t, ok)
	return email.Token
}

func TestIssueStoresHashOnly(t *testing.T) {
	t.Parallel()

	f := newActivationFixture(t)
	token, err := f.manager.Issue(context.Background(), memberID)
	require.NoError(t, err)

	plain := f.lastToken(t)
	require.NotEmpty(t, plain)
	require.NotEqual(t, plain, token.TokenHash)
	require.Equal(t, app.HashToken(plain), token.TokenHash)
	require.Equal(t, domain.TokenPending, token.Status)
	require.Equal(t, f.clock.Now().Add(72*time.Hour), token.ExpiresAt)
}

func TestActivateIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newActivationFixture(t)
	_, err := f.manager.Issue(context.Background(), memberID)
	require.NoError(t, err)
	plain := f.lastToken(t)

	first, err := f.manager.Activate(context.Background(), plain)
	require.NoError(t, err)
	require.Equal(t, domain.TokenActivated, first.Status)

	f.clock.Advance(time.Minute)
	second, err := f.manager.Activate(context.Background(), plain)
	require.NoError(t, err)
	require.Equal(t, domain.TokenActivated, second.Status)
	require.Equal(t, *first.ActivatedAt, *second.ActivatedAt)

	member, err := f.members.GetByID(context.Background(), memberID)
	require.NoError(t, err)
	require.Equal(t, domain.MemberActive, member.Status)

	_, err = f.manager.Resend(context.Background(), memberID)
	require.ErrorIs(t, err, domain.ErrAlreadyActivated)
}

func TestExpiredTokenAndResend(t *testing.T) {
	t.Parallel()

	f := newActivationFixture(t)
	_, err := f.manager.Issue(context.Background(), memberID)
	require.NoError(t, err)
	oldPlain := f.lastToken(t)

	f.clock.Advance(73 * time.Hour)

	_, err = f.manager.Activate(context.Background(), oldPlain)
	require.ErrorIs(t, err, domain.ErrTokenExpired)

	stats, err := f.manager.Stats(context.Background(), batchID)
	require.NoError(t, err)
	require.Equal(t, domain.ActivationStats{Expired: 1}, stats)

	_, err = f.manager.Resend(context.Background(), memberID)
	require.NoError(t, err)
	newPlain := f.lastToken(t)
	require.NotEqual(t, oldPlain, newPlain)

	_, err = f.manager.Activate(context.Background(), oldPlain)
	require.ErrorIs(t, err, domain.ErrTokenSuperseded)

	activated, err := f.manager.Activate(context.Background(), newPlain)
	require.NoError(t, err)
	require.Equal(t, domain.TokenActivated, activated.Status)

	stats, err = f.manager.Stats(context.Background(), batchID)
	require.NoError(t, err)
	require.Equal(t, domain.ActivationStats{Activated: 1}, stats)
}

func TestResendSupersedesPendingToken(t *testing.T) {
	t.Parallel()

	f := newActivationFixture(t)
	_, err := f.manager.Issue(context.Background(), memberID)
	require.NoError(t, err)
	oldPlain := f.lastToken(t)

	_, err = f.manager.Resend(context.Background(), memberID)
	require.NoError(t, err)

	_, err = f.manager.Activate(context.Background(), oldPlain)
	require.ErrorIs(t, err, domain.ErrTokenSuperseded)

	stats, err := f.manager.Stats(context.Background(), batchID)
	require.NoError(t, err)
	require.Equal(t, domain.ActivationStats{Pending: 1}, stats)
}

func TestActivateUnknownToken(t *testing.T) {
	t.Parallel()

	f := newActivationFixture(t)
	_, err := f.manager.Activate(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrTokenNotFound)

	_, err = f.manager.Activate(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestResendInputErrors(t *testing.T) {
	t.Parallel()

	f := newActivationFixture(t)

	_, err := f.manager.Resend(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, app.ErrInvalidMemberID)

	_, err = f.manager.Resend(context.Background(), "f47ac10b-58cc-4372-a567-0e02b2c3d479")
	require.ErrorIs(t, err, app.ErrMemberNotFound)

	_, err = f.manager.Stats(context.Background(), "nope")
	require.ErrorIs(t, err, app.ErrInvalidImportID)
}
