package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takato23/lookescolar-sub001/internal/models"
	"github.com/takato23/lookescolar-sub001/internal/repository"
	"github.com/takato23/lookescolar-sub001/internal/testutils"
	"go.uber.org/zap"
)

func newTokenService(t *testing.T) (*TokenService, *repository.TokenRepository) {
	db := testutils.TestDB(t)
	repo := repository.NewTokenRepository(db, zap.NewNop())
	return NewTokenService(NewTokenCrypto(), repo, zap.NewNop()), repo
}

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func TestTokenIssueAndValidate(t *testing.T) {
	svc, repo := newTokenService(t)
	ctx := context.Background()

	resourceID := uuid.New()
	issued, err := svc.Issue(ctx, &models.IssueTokenRequest{
		Scope:       models.ScopeFamily,
		ResourceID:  resourceID,
		AccessLevel: models.AccessLevelFull,
		CanDownload: true,
	}, "tester")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, "f"+issued.Token[:8], issued.TokenPrefix)

	// The stored row carries only hash material
	stored, err := repo.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, issued.Token, stored.TokenHash)
	assert.NotContains(t, stored.TokenHash, issued.Token)

	result, err := svc.Validate(ctx, issued.Token)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, models.ScopeFamily, result.Scope)
	assert.Equal(t, resourceID, result.ResourceID)
	assert.Equal(t, models.AccessLevelFull, result.AccessLevel)
	assert.True(t, result.CanDownload)

	// Valid use increments the counter and stamps last_used_at
	stored, err = repo.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)
	assert.NotNil(t, stored.LastUsedAt)
}

func TestTokenValidateUnknown(t *testing.T) {
	svc, _ := newTokenService(t)
	ctx := context.Background()

	result, err := svc.Validate(ctx, "fAAAAAAAAnope-not-a-real-token")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, models.TokenStatusNotFound, result.Reason)

	result, err = svc.Validate(ctx, "")
	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestTokenValidateExpired(t *testing.T) {
	svc, repo := newTokenService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, &models.IssueTokenRequest{
		Scope:      models.ScopeEvent,
		ResourceID: uuid.New(),
		ExpiresAt:  timePtr(time.Now().Add(-time.Minute)),
	}, "tester")
	require.NoError(t, err)

	result, err := svc.Validate(ctx, issued.Token)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, models.TokenStatusExpired, result.Reason)

	// Expired never increments usage
	stored, err := repo.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UsedCount)
}

func TestTokenValidateExhausted(t *testing.T) {
	svc, _ := newTokenService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, &models.IssueTokenRequest{
		Scope:      models.ScopeCourse,
		ResourceID: uuid.New(),
		MaxUses:    intPtr(2),
	}, "tester")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, err := svc.Validate(ctx, issued.Token)
		require.NoError(t, err)
		assert.True(t, result.Valid, "use %d should be valid", i+1)
	}

	result, err := svc.Validate(ctx, issued.Token)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, models.TokenStatusExhausted, result.Reason)
}

func TestTokenExpiryBeatsUsage(t *testing.T) {
	svc, _ := newTokenService(t)
	ctx := context.Background()

	// Expired wins over remaining uses, regardless of used_count
	issued, err := svc.Issue(ctx, &models.IssueTokenRequest{
		Scope:      models.ScopeFamily,
		ResourceID: uuid.New(),
		MaxUses:    intPtr(100),
		ExpiresAt:  timePtr(time.Now().Add(-time.Hour)),
	}, "tester")
	require.NoError(t, err)

	result, err := svc.Validate(ctx, issued.Token)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, models.TokenStatusExpired, result.Reason)
}

func TestTokenRevoke(t *testing.T) {
	svc, repo := newTokenService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, &models.IssueTokenRequest{
		Scope:      models.ScopeFamily,
		ResourceID: uuid.New(),
	}, "tester")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, issued.ID))

	result, err := svc.Validate(ctx, issued.Token)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, models.TokenStatusRevoked, result.Reason)

	// Revoking again is a no-op, and revoked_at does not move
	stored, err := repo.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	firstRevokedAt := *stored.RevokedAt

	require.NoError(t, svc.Revoke(ctx, issued.ID))
	stored, err = repo.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, firstRevokedAt.Unix(), stored.RevokedAt.Unix())

	// Unknown id is reported
	assert.ErrorIs(t, svc.Revoke(ctx, uuid.New()), models.ErrTokenNotFound)
}

func TestTokenStatusEvaluation(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		token  models.AccessToken
		expect models.TokenStatus
	}{
		{"unbounded active", models.AccessToken{}, models.TokenStatusActive},
		{"revoked wins over expired", models.AccessToken{
			RevokedAt: timePtr(now.Add(-time.Hour)),
			ExpiresAt: timePtr(now.Add(-time.Hour)),
		}, models.TokenStatusRevoked},
		{"expired", models.AccessToken{
			ExpiresAt: timePtr(now.Add(-time.Second)),
		}, models.TokenStatusExpired},
		{"exhausted", models.AccessToken{
			MaxUses:   intPtr(5),
			UsedCount: 5,
		}, models.TokenStatusExhausted},
		{"under limit", models.AccessToken{
			MaxUses:   intPtr(5),
			UsedCount: 4,
		}, models.TokenStatusActive},
		{"future expiry", models.AccessToken{
			ExpiresAt: timePtr(now.Add(time.Hour)),
		}, models.TokenStatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.token.Status(now))
		})
	}
}
