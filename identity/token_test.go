package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/dharma-case-api/models"
)

var judge = models.CaseParticipant{ID: "judge-123", Name: "Judge User", Role: models.RoleJudge}

func TestIssueAndParse(t *testing.T) {
	i := NewIssuer("secret")

	token, err := i.Issue(judge)
	require.NoError(t, err)

	got, err := i.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, judge, got)
}

func TestParseRejectsOtherSecret(t *testing.T) {
	token, err := NewIssuer("secret").Issue(judge)
	require.NoError(t, err)

	_, err = NewIssuer("other").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	i := NewIssuer("secret")
	issued := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	i.now = func() time.Time { return issued }

	token, err := i.Issue(judge)
	require.NoError(t, err)

	i.now = func() time.Time { return issued.Add(TokenTTL + time.Minute) }
	_, err = i.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsUnknownRole(t *testing.T) {
	claims := Claims{
		Name: "Clerk",
		Role: "clerk",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "clerk-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewIssuer("secret").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := NewIssuer("secret").Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
