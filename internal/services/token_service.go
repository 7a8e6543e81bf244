package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/takato23/lookescolar-sub001/internal/models"
	"github.com/takato23/lookescolar-sub001/internal/repository"
	"go.uber.org/zap"
)

// decoySalt and decoyHash are compared against when no candidate row
// matches, so a presented token with an unknown prefix costs the same hash
// work as one with a known prefix and a wrong secret.
const (
	decoySalt = "0123456789abcdef0123456789abcdef"
	decoyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// TokenService issues scoped access tokens and resolves presented plaintexts
// to a validity decision.
type TokenService struct {
	crypto *TokenCrypto
	tokens *repository.TokenRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewTokenService(crypto *TokenCrypto, tokens *repository.TokenRepository, logger *zap.Logger) *TokenService {
	return &TokenService{
		crypto: crypto,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// Issue creates a token for a scope and resource. The plaintext in the
// response is the only copy that will ever exist.
func (s *TokenService) Issue(ctx context.Context, req *models.IssueTokenRequest, createdBy string) (*models.IssueTokenResponse, error) {
	if !req.Scope.Valid() {
		return nil, models.ErrScopeMismatch
	}

	level := req.AccessLevel
	if level == "" {
		level = models.AccessLevelReadOnly
	}

	mat, err := s.crypto.Generate(req.Scope)
	if err != nil {
		return nil, err
	}

	token := &models.AccessToken{
		ID:          uuid.New(),
		Scope:       req.Scope,
		ResourceID:  req.ResourceID,
		AccessLevel: level,
		CanDownload: req.CanDownload,
		TokenPrefix: mat.Prefix,
		TokenHash:   mat.Hash,
		Salt:        mat.Salt,
		MaxUses:     req.MaxUses,
		ExpiresAt:   req.ExpiresAt,
		CreatedBy:   createdBy,
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, err
	}

	s.logger.Info("access token issued",
		zap.String("token_id", token.ID.String()),
		zap.String("scope", string(token.Scope)),
		zap.String("resource_id", token.ResourceID.String()),
		zap.String("prefix", token.TokenPrefix))

	return &models.IssueTokenResponse{
		ID:          token.ID,
		Token:       mat.Plaintext,
		TokenPrefix: mat.Prefix,
		Scope:       token.Scope,
		ResourceID:  token.ResourceID,
		AccessLevel: token.AccessLevel,
		CanDownload: token.CanDownload,
		ExpiresAt:   token.ExpiresAt,
	}, nil
}

// Validate resolves a presented plaintext token. Candidate rows are fetched
// by the non-secret prefix, then the salted hash is recomputed per candidate
// and compared in constant time. The reason field distinguishes outcomes for
// auditing; callers facing unauthenticated actors must collapse every
// invalid outcome into one response.
func (s *TokenService) Validate(ctx context.Context, plaintext string) (*models.ValidationResult, error) {
	invalid := &models.ValidationResult{Valid: false, Reason: models.TokenStatusNotFound}

	if plaintext == "" {
		VerifyToken(plaintext, decoySalt, decoyHash)
		return invalid, nil
	}

	candidates, err := s.tokens.FindCandidatesByPrefix(ctx, PrefixFromPlaintext(plaintext))
	if err != nil {
		return nil, err
	}

	var match *models.AccessToken
	for i := range candidates {
		if VerifyToken(plaintext, candidates[i].Salt, candidates[i].TokenHash) {
			match = &candidates[i]
		}
	}
	if match == nil {
		// Burn the same hash work as a real comparison.
		VerifyToken(plaintext, decoySalt, decoyHash)
		return invalid, nil
	}

	status := match.Status(s.now())
	if status != models.TokenStatusActive {
		return &models.ValidationResult{Valid: false, Reason: status}, nil
	}

	// Usage bookkeeping is best-effort; the validity decision above stands
	// even if the increment fails.
	if err := s.tokens.IncrementUsage(ctx, match.ID); err != nil {
		s.logger.Warn("failed to increment token usage",
			zap.String("token_id", match.ID.String()), zap.Error(err))
	}

	return &models.ValidationResult{
		Valid:       true,
		Scope:       match.Scope,
		ResourceID:  match.ResourceID,
		AccessLevel: match.AccessLevel,
		CanDownload: match.CanDownload,
		Reason:      models.TokenStatusActive,
	}, nil
}

// Revoke marks a token revoked. Already-revoked tokens revoke as a no-op.
func (s *TokenService) Revoke(ctx context.Context, id uuid.UUID) error {
	if err := s.tokens.Revoke(ctx, id); err != nil {
		return err
	}

	s.logger.Info("access token revoked", zap.String("token_id", id.String()))
	return nil
}

// ListByResource returns the stored (hashed) tokens for a resource.
func (s *TokenService) ListByResource(ctx context.Context, scope models.TokenScope, resourceID uuid.UUID) ([]models.AccessToken, error) {
	return s.tokens.ListByResource(ctx, scope, resourceID)
}
