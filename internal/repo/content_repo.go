// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// GeneratedContent model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They hold
// no business logic: validation and upstream calls live in services.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prudvi9160/smart-ai-content-creator/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateContent inserts a new GeneratedContent row. The ID is a random UUID
// and CreatedAt is set to UTC now.
func CreateContent(ctx context.Context, db *gorm.DB, topic, typ, content string, imageURL *string) (*domain.GeneratedContent, error) {
	rec := &domain.GeneratedContent{
		ID:        uuid.NewString(),
		Topic:     topic,
		Type:      typ,
		Content:   content,
		ImageURL:  imageURL,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// ListContents returns every stored record, newest first. Rows sharing a
// timestamp are ordered by id so the listing is stable.
func ListContents(ctx context.Context, db *gorm.DB) ([]domain.GeneratedContent, error) {
	out := make([]domain.GeneratedContent, 0)
	err := db.WithContext(ctx).
		Order("created_at desc").
		Order("id desc").
		Find(&out).Error
	return out, err
}

// GetContent fetches a single record by id, or ErrNotFound.
func GetContent(ctx context.Context, db *gorm.DB, id string) (*domain.GeneratedContent, error) {
	var rec domain.GeneratedContent
	if err := db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}
