package member_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

func TestActivationTokenEffectiveStatus(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	token := domain.ActivationToken{Status: domain.TokenPending, IssuedAt: issued, ExpiresAt: issued.Add(time.Hour)}

	require.Equal(t, domain.TokenPending, token.EffectiveStatus(issued.Add(59*time.Minute)))
	require.Equal(t, domain.TokenExpired, token.EffectiveStatus(issued.Add(time.Hour)))

	token.Status = domain.TokenActivated
	require.Equal(t, domain.TokenActivated, token.EffectiveStatus(issued.Add(48*time.Hour)))

	token.Status = domain.TokenSuperseded
	require.Equal(t, domain.TokenSuperseded, token.EffectiveStatus(issued))
}

func TestActivationStatsIgnoresSuperseded(t *testing.T) {
	t.Parallel()

	var stats domain.ActivationStats
	for _, s := range []domain.TokenStatus{domain.TokenActivated, domain.TokenPending, domain.TokenPending, domain.TokenExpired, domain.TokenSuperseded} {
		stats.Add(s)
	}
	require.Equal(t, domain.ActivationStats{Activated: 1, Pending: 2, Expired: 1}, stats)
}

func TestSalaryRangeContains(t *testing.T) {
	t.Parallel()

	bounded := domain.SalaryRange{Min: decimal.NewFromInt(1000), Max: decimal.NewNullDecimal(decimal.NewFromInt(2000))}
	require.True(t, bounded.Contains(decimal.NewFromInt(1000)))
	require.True(t, bounded.Contains(decimal.NewFromInt(2000)))
	require.False(t, bounded.Contains(decimal.NewFromInt(2001)))

	open := domain.SalaryRange{Min: decimal.NewFromInt(5000)}
	require.True(t, open.Contains(decimal.NewFromInt(1_000_000)))
	require.False(t, open.Contains(decimal.NewFromInt(4999)))
}

func TestResolutionFailureMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, `province "Jabar" was not found (did you mean "Jawa Barat"?)`,
		domain.ResolutionFailure{Field: domain.FieldProvince, Value: "Jabar", Suggestion: "Jawa Barat"}.Message())
	require.Equal(t, `study program "Law" matches more than one entry`,
		domain.ResolutionFailure{Field: domain.FieldStudyProgram, Value: "Law", Ambiguous: true}.Message())
}
