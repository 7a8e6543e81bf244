package testutils

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/takato23/lookescolar-sub001/internal/database"
	"github.com/takato23/lookescolar-sub001/internal/models"
)

var (
	testDB     *sqlx.DB
	dbInitOnce sync.Once
)

const truncateAll = "TRUNCATE TABLE audit_log, photo_subjects, access_tokens, photos, subjects, events CASCADE"

// TestDB returns a shared test database connection with the schema applied.
// Each test starts from empty tables and cleans up after itself.
func TestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	var initErr error
	dbInitOnce.Do(func() {
		cfg := database.Config{
			Host:     getEnv("TEST_DB_HOST", "localhost"),
			Port:     5433,
			User:     getEnv("TEST_DB_USER", "postgres"),
			Password: getEnv("TEST_DB_PASSWORD", "postgres"),
			DBName:   getEnv("TEST_DB_NAME", "lookescolar_test"),
			SSLMode:  getEnv("TEST_DB_SSL_MODE", "disable"),
		}

		testDB, initErr = database.Connect(cfg)
		if initErr != nil {
			return
		}

		// Apply the schema if this database has not seen it yet
		var count int
		initErr = testDB.GetContext(context.Background(), &count,
			"SELECT COUNT(*) FROM pg_tables WHERE tablename = 'access_tokens'")
		if initErr == nil && count == 0 {
			var migration []byte
			migration, initErr = os.ReadFile("../../migrations/001_initial_schema.up.sql")
			if initErr != nil {
				return
			}
			_, initErr = testDB.ExecContext(context.Background(), string(migration))
			if initErr != nil {
				return
			}
		}

		_, initErr = testDB.Exec(truncateAll)
	})

	if initErr != nil {
		t.Fatalf("Failed to initialize test database: %v", initErr)
	}

	t.Cleanup(func() {
		if _, err := testDB.Exec(truncateAll); err != nil {
			t.Errorf("Failed to clean up test data: %v", err)
		}
	})

	return testDB
}

// TestRedis returns a Redis client on the test database, flushed.
func TestRedis(t *testing.T) *redis.Client {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{
		Addr: getEnv("TEST_REDIS_ADDR", "localhost:6379"),
		DB:   1,
	})
	if err := rdb.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("Failed to flush test redis: %v", err)
	}

	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})

	return rdb
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// CreateTestEvent inserts an event fixture.
func CreateTestEvent(t *testing.T, db *sqlx.DB, active bool) *models.SchoolEvent {
	t.Helper()

	event := &models.SchoolEvent{
		ID:        uuid.New(),
		Name:      fmt.Sprintf("Sesión fotos %s", uuid.New().String()[:8]),
		School:    "Escuela 12",
		Active:    active,
		CreatedAt: time.Now(),
	}
	_, err := db.Exec(
		`INSERT INTO events (id, name, school, active, created_at) VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.Name, event.School, event.Active, event.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to create test event: %v", err)
	}
	return event
}

// CreateTestSubject inserts a subject fixture belonging to the event.
func CreateTestSubject(t *testing.T, db *sqlx.DB, eventID uuid.UUID, name string, tokenExpiresAt *time.Time) *models.Subject {
	t.Helper()

	subject := &models.Subject{
		ID:             uuid.New(),
		EventID:        eventID,
		Name:           name,
		Grade:          "5B",
		TokenExpiresAt: tokenExpiresAt,
		CreatedAt:      time.Now(),
	}
	_, err := db.Exec(
		`INSERT INTO subjects (id, event_id, name, grade, token_expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		subject.ID, subject.EventID, subject.Name, subject.Grade,
		subject.TokenExpiresAt, subject.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to create test subject: %v", err)
	}
	return subject
}

// CreateTestPhotos inserts n photo fixtures in the event.
func CreateTestPhotos(t *testing.T, db *sqlx.DB, eventID uuid.UUID, n int, approved bool) []uuid.UUID {
	t.Helper()

	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		id := uuid.New()
		_, err := db.Exec(
			`INSERT INTO photos (id, event_id, filename, approved, created_at) VALUES ($1, $2, $3, $4, $5)`,
			id, eventID, fmt.Sprintf("IMG_%04d.jpg", i), approved, time.Now())
		if err != nil {
			t.Fatalf("Failed to create test photo: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}
