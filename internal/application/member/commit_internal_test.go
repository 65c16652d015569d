package member

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestTruncateReasonKeepsRuneBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		reason string
		want   int
	}{
		{name: "short", reason: "  email is required ", want: len("email is required")},
		{name: "ascii over limit", reason: strings.Repeat("x", maxReasonLength+10), want: maxReasonLength},
		{name: "two byte rune across limit", reason: strings.Repeat("x", maxReasonLength-1) + "é" + "tail", want: maxReasonLength - 1},
		{name: "four byte rune across limit", reason: strings.Repeat("x", maxReasonLength-2) + "😀" + "tail", want: maxReasonLength - 2},
		{name: "rune ends at limit", reason: strings.Repeat("x", maxReasonLength-2) + "é" + "tail", want: maxReasonLength},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := truncateReason(tc.reason)
			require.Len(t, got, tc.want)
			require.True(t, utf8.ValidString(got))
		})
	}
}
