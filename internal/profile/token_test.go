package profile

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestNewTokens_ShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewTokens([]byte("short"), time.Hour)
	assert.Error(t, err)
}

func TestTokens_IssueAndVerify(t *testing.T) {
	t.Parallel()

	tokens, err := NewTokens(testSecret, time.Hour)
	require.NoError(t, err)

	p, err := tokens.Issue()
	require.NoError(t, err)
	_, err = uuid.Parse(p.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Token)
	_, err = time.Parse(time.RFC3339, p.ExpiresAt)
	assert.NoError(t, err)

	id, err := tokens.Verify(p.Token)
	require.NoError(t, err)
	assert.Equal(t, p.ID, id)
}

func TestTokens_IssueGivesDistinctProfiles(t *testing.T) {
	t.Parallel()

	tokens, err := NewTokens(testSecret, time.Hour)
	require.NoError(t, err)

	a, err := tokens.Issue()
	require.NoError(t, err)
	b, err := tokens.Issue()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestTokens_VerifyRejects(t *testing.T) {
	t.Parallel()

	tokens, err := NewTokens(testSecret, time.Hour)
	require.NoError(t, err)
	p, err := tokens.Issue()
	require.NoError(t, err)

	other, err := NewTokens([]byte(strings.Repeat("z", 32)), time.Hour)
	require.NoError(t, err)

	expired, err := NewTokens(testSecret, time.Hour)
	require.NoError(t, err)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue()
	require.NoError(t, err)

	tests := []struct {
		name   string
		tokens *Tokens
		token  string
	}{
		{"garbage", tokens, "not-a-token"},
		{"empty", tokens, ""},
		{"wrong secret", other, p.Token},
		{"expired", tokens, old.Token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.tokens.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
