package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	signed, err := tokens.Issue("u1", RoleSeller)
	require.NoError(t, err)

	p, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "u1", Role: RoleSeller}, p)
}

func TestVerifyExpiredToken(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	issued := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }
	signed, err := tokens.Issue("u1", RoleCustomer)
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyWrongSecret(t *testing.T) {
	signed, err := NewTokens("secret-a", time.Hour).Issue("u1", RoleCustomer)
	require.NoError(t, err)

	_, err = NewTokens("secret-b", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyGarbage(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		_, err := tokens.Verify(tok)
		assert.ErrorIs(t, err, ErrUnauthenticated, "token %q", tok)
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := WithPrincipal(t.Context(), Principal{UserID: "u1", Role: RoleCustomer})

	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", p.UserID)

	_, ok = PrincipalFrom(t.Context())
	assert.False(t, ok)
}
