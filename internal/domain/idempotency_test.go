package domain

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openIdemDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestIdempotency_TableAndIndexes(t *testing.T) {
	db := openIdemDB(t)
	m := db.Migrator()

	if got := (Idempotency{}).TableName(); got != "idempotency" {
		t.Fatalf("TableName = %q", got)
	}
	if !m.HasTable("idempotency") {
		t.Fatal("idempotency table missing")
	}
	if !m.HasIndex(&Idempotency{}, "ux_scope_key") {
		t.Fatal("ux_scope_key index missing")
	}
	for _, col := range []string{"scope", "key", "content_id", "status", "expires_at"} {
		if !m.HasColumn(&Idempotency{}, col) {
			t.Errorf("column %q missing", col)
		}
	}
}

func TestIdempotency_ScopeKeyUnique(t *testing.T) {
	db := openIdemDB(t)
	exp := time.Now().UTC().Add(time.Hour)

	first := Idempotency{ID: "a", Scope: "ip:10.0.0.1", Key: "k1", ContentID: "c1", Status: 201, ExpiresAt: exp}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := Idempotency{ID: "b", Scope: "ip:10.0.0.1", Key: "k1", ContentID: "c2", Status: 201, ExpiresAt: exp}
	if err := db.Create(&dup).Error; err == nil {
		t.Fatal("duplicate (scope, key) accepted")
	}

	other := Idempotency{ID: "c", Scope: "ip:10.0.0.2", Key: "k1", ContentID: "c3", Status: 201, ExpiresAt: exp}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("same key in another scope rejected: %v", err)
	}

	var got Idempotency
	if err := db.Take(&got, "id = ?", "a").Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.ContentID != "c1" || got.Status != 201 || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestIdempotency_RejectsNullColumns(t *testing.T) {
	db := openIdemDB(t)
	err := db.Exec(`INSERT INTO idempotency (id, scope, "key", content_id, status, created_at, expires_at)
		VALUES ('x', NULL, 'k', 'c', 201, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`).Error
	if err == nil {
		t.Fatal("NULL scope accepted")
	}
}

func TestIdempotency_Expired(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := Idempotency{ExpiresAt: at}

	if rec.Expired(at.Add(-time.Second)) {
		t.Error("expired before deadline")
	}
	if !rec.Expired(at) {
		t.Error("not expired at deadline")
	}
	if !rec.Expired(at.Add(time.Minute)) {
		t.Error("not expired after deadline")
	}
}
