// Package repository implements the document store behind profiles,
// templates, match records and inbox messages.
package repository

import (
	"context"
	"maps"
	"slices"
	"strings"
)

// Collection names.
const (
	CollectionProfiles  = "hackathon_profiles"
	CollectionTemplates = "hackathon_profile_predata"
	CollectionMatches   = "hackathon_matches"
)

// InboxCollection returns the message collection of one attendee.
func InboxCollection(uid string) string {
	return "ai_messages/" + uid + "/messages"
}

// PairID returns the order-independent id of a match between two attendees.
func PairID(a, b string) string {
	ids := []string{a, b}
	slices.Sort(ids)
	return strings.Join(ids, "_")
}

// Document is a schemaless record. Values are whatever the JSON decoder
// produces plus the concrete types written by this process.
type Document map[string]any

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	return maps.Clone(d)
}

// merge overlays fields onto base and returns the result.
func merge(base, fields Document) Document {
	out := base.Clone()
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Tx is the view of the store inside RunTransaction.
type Tx interface {
	Get(collection, id string) (Document, error)
	Set(collection, id string, doc Document, merge bool) error
}

// Store is a collection/id addressed document store.
type Store interface {
	// Get returns ErrNotFound for a missing document.
	Get(ctx context.Context, collection, id string) (Document, error)
	// ScanAll visits every committed document of a collection in no
	// particular order. A non-nil error from fn stops the scan and is returned.
	ScanAll(ctx context.Context, collection string, fn func(id string, doc Document) error) error
	// Set writes doc. With merge the fields are overlaid on the stored
	// document instead of replacing it.
	Set(ctx context.Context, collection, id string, doc Document, merge bool) error
	// RunTransaction applies every write of fn atomically, or none when fn fails.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// keySeparator joins collection and id in flat key spaces.
const keySeparator = '\x00'

func validKey(collection, id string) error {
	if collection == "" || id == "" || strings.ContainsRune(collection, keySeparator) || strings.ContainsRune(id, keySeparator) {
		return ErrInvalidKey
	}
	return nil
}
