// Package domain defines the persistence models for generated content and the
// transient chat message shape returned by the assistant. GeneratedContent is
// mapped with GORM and forms the core data layer of the service.
package domain

import (
	"encoding/json"
	"time"
)

// Content types produced by the service itself. Callers may store any other
// free-form type (e.g. "blog post", "tweet").
const (
	ContentTypeImage = "image"
	ContentTypeFile  = "file"
)

// GeneratedContent is a persisted artifact of a generation request: text
// produced by the language model, a literal body supplied by the client, or
// an image description.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Topic / Type: required descriptors of the artifact.
//   - Content: the generated or supplied body.
//   - ImageURL: optional image reference (image data for described images).
//   - CreatedAt: set once on insert; indexed for newest-first listing.
type GeneratedContent struct {
	ID        string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	Topic     string    `json:"topic"              gorm:"type:varchar(512);not null"`
	Type      string    `json:"type"               gorm:"type:varchar(64);not null"`
	Content   string    `json:"content"            gorm:"type:text;not null"`
	ImageURL  *string   `json:"imageUrl,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"          gorm:"not null;index:idx_contents_created"`
}

// TableName returns the database table name for GeneratedContent.
func (GeneratedContent) TableName() string { return "contents" }

// MarshalJSON emits the record with an "_id" alias next to "id"; existing
// clients key lists by "_id".
func (g GeneratedContent) MarshalJSON() ([]byte, error) {
	type plain GeneratedContent
	return json.Marshal(struct {
		plain
		LegacyID string `json:"_id"`
	}{plain: plain(g), LegacyID: g.ID})
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single chat turn. Assistant replies are never persisted.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
