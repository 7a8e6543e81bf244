package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/takato23/lookescolar-sub001/internal/middleware"
	"github.com/takato23/lookescolar-sub001/internal/repository"
	"github.com/takato23/lookescolar-sub001/internal/services"
	"github.com/takato23/lookescolar-sub001/internal/testutils"
	"go.uber.org/zap"
)

const (
	testJWTSecret   = "test-jwt-secret"
	testMasterToken = "master-test-token"
)

type testServer struct {
	router *gin.Engine
	db     *sqlx.DB
	tokens *repository.TokenRepository
	audit  *repository.AuditRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutils.TestDB(t)
	logger := zap.NewNop()

	tokenRepo := repository.NewTokenRepository(db, logger)
	subjectRepo := repository.NewSubjectRepository(db, logger)
	photoRepo := repository.NewPhotoRepository(db, logger)
	auditRepo := repository.NewAuditRepository(db, logger)

	auditSvc := services.NewAuditService(auditRepo, logger)
	qrSvc := services.NewQRService(subjectRepo, logger)
	tokenSvc := services.NewTokenService(services.NewTokenCrypto(), tokenRepo, logger)
	tagSvc := services.NewTaggingService(subjectRepo, photoRepo,
		services.BatchLimits{QR: 50, Admin: 100}, logger)
	signer := services.NewSignerService("test-signing-secret", 15*time.Minute)

	decodeHandler := NewDecodeHandler(qrSvc, auditSvc)
	taggingHandler := NewTaggingHandler(tagSvc, auditSvc)
	tokenHandler := NewTokenHandler(tokenSvc, auditSvc, signer, testJWTSecret, time.Hour)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestIDMiddleware(logger))

	router.POST("/qr/decode", decodeHandler.Decode)
	router.POST("/qr/tag", taggingHandler.TagQR)
	router.POST("/tokens/validate", tokenHandler.ValidateToken)

	admin := router.Group("/admin", middleware.StaffAuth(testJWTSecret, testMasterToken))
	admin.POST("/tag", taggingHandler.TagAdmin)
	admin.POST("/tokens", tokenHandler.IssueToken)
	admin.GET("/tokens", tokenHandler.ListTokens)
	admin.DELETE("/tokens/:id", tokenHandler.RevokeToken)

	sessions := router.Group("/admin/sessions", middleware.RequireMasterToken(testMasterToken))
	sessions.POST("", tokenHandler.CreateSession)

	return &testServer{router: router, db: db, tokens: tokenRepo, audit: auditRepo}
}

func (s *testServer) request(t *testing.T, method, path string, body interface{}, authToken string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response body %q: %v", w.Body.String(), err)
	}
	return body
}
