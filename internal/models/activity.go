package models

import (
	"time"

	"gorm.io/gorm"
)

type Event string

type ActivityMeta map[string]interface{}

const (
	ActivityAllocate   = Event("scratch:allocate")
	ActivityDestroy    = Event("scratch:destroy")
	ActivityDestroyAll = Event("scratch:destroy-all")
	ActivitySaveInputs = Event("scratch:save-inputs")
)

// Activity defines a journal entry for an operation performed against the
// temporary file tree. Entries exist purely for diagnostics: operators can
// reconcile what was allocated and destroyed by a pipeline after the fact.
type Activity struct {
	ID int `gorm:"primaryKey;not null" json:"-"`
	// Root is the tree root the operation was performed against.
	Root string `gorm:"index;not null" json:"root"`
	// Event is a string describing what occurred.
	Event Event `gorm:"index;not null" json:"event"`
	// Path is the entry the event acted on, empty for tree-wide events.
	Path string `gorm:"not null" json:"path"`
	// Metadata is either a null value or a JSON blob with additional event
	// specific metadata.
	Metadata  ActivityMeta `gorm:"serializer:json" json:"metadata"`
	Timestamp time.Time    `gorm:"not null" json:"timestamp"`
}

// BeforeCreate executes before any journal entry is written to ensure the
// timestamp is set and stored as UTC, and that the metadata is never null.
func (a *Activity) BeforeCreate(_ *gorm.DB) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	a.Timestamp = a.Timestamp.UTC()
	if a.Metadata == nil {
		a.Metadata = ActivityMeta{}
	}
	return nil
}
