package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/prudvi9160/smart-ai-content-creator/internal/domain"
)

func newIdemDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:idem_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if migrate {
		if err := db.AutoMigrate(&domain.Idempotency{}); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedIdem(t *testing.T, db *gorm.DB, scope, key, contentID string, expires time.Time) {
	t.Helper()
	rec := &domain.Idempotency{
		ID: uuid.NewString(), Scope: scope, Key: key, ContentID: contentID,
		Status: 201, CreatedAt: expires.Add(-time.Hour), ExpiresAt: expires,
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("seed %s/%s: %v", scope, key, err)
	}
}

func TestGetIdempotency(t *testing.T) {
	db := newIdemDB(t, true)
	now := time.Now().UTC()
	seedIdem(t, db, "ip:1.1.1.1", "live", "c-live", now.Add(time.Hour))
	seedIdem(t, db, "ip:1.1.1.1", "old", "c-old", now.Add(-time.Minute))

	cases := []struct {
		name, scope, key string
		wantContent      string
	}{
		{"valid", "ip:1.1.1.1", "live", "c-live"},
		{"blank key", "ip:1.1.1.1", "   ", ""},
		{"expired", "ip:1.1.1.1", "old", ""},
		{"missing", "ip:1.1.1.1", "nope", ""},
		{"other client", "ip:2.2.2.2", "live", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := GetIdempotency(context.Background(), db, tc.scope, tc.key, now)
			if tc.wantContent == "" {
				if rec != nil || !errors.Is(err, ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got (%+v, %v)", rec, err)
				}
				return
			}
			if err != nil || rec.ContentID != tc.wantContent {
				t.Fatalf("got (%+v, %v); want content %q", rec, err, tc.wantContent)
			}
		})
	}
}

func TestCreateIdempotency_SuccessAndDuplicate(t *testing.T) {
	db := newIdemDB(t, true)
	start := time.Now().UTC()

	rec, err := CreateIdempotency(context.Background(), db, "ip:9.9.9.9", "k9", "c9", 201, 90*time.Minute)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || rec.ContentID != "c9" || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.ExpiresAt.Before(start.Add(89*time.Minute)) || rec.ExpiresAt.After(start.Add(91*time.Minute)) {
		t.Fatalf("ExpiresAt %v not ~90m after %v", rec.ExpiresAt, start)
	}

	if _, err := CreateIdempotency(context.Background(), db, "ip:9.9.9.9", "k9", "cX", 201, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	// The same key is free for another client.
	if _, err := CreateIdempotency(context.Background(), db, "ip:8.8.8.8", "k9", "cY", 201, time.Hour); err != nil {
		t.Fatalf("other scope: %v", err)
	}
}

func TestCreateIdempotency_NoTable(t *testing.T) {
	db := newIdemDB(t, false)
	_, err := CreateIdempotency(context.Background(), db, "ip:x", "kX", "cX", 201, time.Minute)
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected a plain storage error, got %v", err)
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newIdemDB(t, true)
	now := time.Now().UTC()
	seedIdem(t, db, "ip:1", "a", "c1", now.Add(-time.Hour))
	seedIdem(t, db, "ip:1", "b", "c2", now)
	seedIdem(t, db, "ip:1", "c", "c3", now.Add(time.Hour))

	n, err := PurgeExpiredIdempotency(context.Background(), db, now)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Fatalf("purged %d; want 2", n)
	}
	var left int64
	db.Model(&domain.Idempotency{}).Count(&left)
	if left != 1 {
		t.Fatalf("remaining %d; want 1", left)
	}
}

func Test_isUniqueViolation(t *testing.T) {
	cases := map[error]bool{
		gorm.ErrDuplicatedKey:                                     true,
		fmt.Errorf("wrap: %w", gorm.ErrDuplicatedKey):             true,
		errors.New("UNIQUE constraint failed: idempotency.scope"): true,
		errors.New("constraint failed: UNIQUE constraint"):        true,
		errors.New("no such table: idempotency"):                  false,
	}
	for err, want := range cases {
		if got := isUniqueViolation(err); got != want {
			t.Fatalf("isUniqueViolation(%q) = %v; want %v", err, got, want)
		}
	}
}
