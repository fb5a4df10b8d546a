package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jonathan/cv-builder/internal/document"
	"github.com/jonathan/cv-builder/internal/schemas"
	"github.com/jonathan/cv-builder/internal/types"
)

// DocumentKey is the key the whole CV document lives under
const DocumentKey = "portfolioData"

// DocumentRepository persists one CV document per session.
// It implements document.Store.
type DocumentRepository struct {
	store Store
}

var _ document.Store = (*DocumentRepository)(nil)

// NewDocumentRepository creates a repository over store
func NewDocumentRepository(store Store) *DocumentRepository {
	return &DocumentRepository{store: store}
}

// Load returns the stored document merged over the defaults. Missing or
// unreadable data yields the default document.
func (r *DocumentRepository) Load(ctx context.Context, sessionID string) (types.CVDocument, error) {
	data, err := Namespaced(r.store, sessionID).Get(ctx, DocumentKey)
	if errors.Is(err, ErrNotFound) {
		return document.Default(), nil
	}
	if err != nil {
		return types.CVDocument{}, err
	}

	if err := schemas.ValidateDocument(data); err != nil {
		log.Printf("[STORAGE] Stored document for %s failed validation, using defaults: %v", sessionID, err)
		return document.Default(), nil
	}

	doc, err := document.MergeOverDefaults(data)
	if err != nil {
		log.Printf("[STORAGE] Stored document for %s is unreadable, using defaults: %v", sessionID, err)
		return document.Default(), nil
	}
	return doc, nil
}

// Save overwrites the stored document
func (r *DocumentRepository) Save(ctx context.Context, sessionID string, doc types.CVDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	return Namespaced(r.store, sessionID).Set(ctx, DocumentKey, data)
}

// Reset removes the stored document
func (r *DocumentRepository) Reset(ctx context.Context, sessionID string) error {
	return Namespaced(r.store, sessionID).Delete(ctx, DocumentKey)
}
