package schemadocs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"extraction-backend/internal/schema"
	"extraction-backend/internal/shared/storage/object"
	"extraction-backend/internal/shared/telemetry"
)

// Service normalizes and stores extraction schemas. Registered schemas are
// persisted in canonical form, so every later run starts from the same
// document regardless of the shape the caller submitted.
type Service struct {
	Repo  Repo
	Store object.Store
}

// Put normalizes the raw schema and stores it under the given id,
// replacing any previous version.
func (s *Service) Put(ctx context.Context, id string, raw json.RawMessage) (Record, schema.Document, error) {
	if id == "" {
		return Record{}, schema.Document{}, fmt.Errorf("schema id is required")
	}

	doc, err := schema.NormalizeJSON(raw)
	if err != nil {
		return Record{}, schema.Document{}, err
	}
	if doc.Name == "" {
		doc.Name = id
	}

	key, err := object.SaveJSON(ctx, s.Store, "schemas", id+".json", doc)
	if err != nil {
		return Record{}, schema.Document{}, fmt.Errorf("store schema blob: %w", err)
	}

	now := time.Now().UTC()
	rec := Record{
		ID:          id,
		Name:        doc.Name,
		Description: doc.Description,
		Fingerprint: doc.Fingerprint(),
		BlobKey:     key,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Upsert(ctx, rec); err != nil {
		return Record{}, schema.Document{}, fmt.Errorf("store schema record: %w", err)
	}

	telemetry.Info("schema.stored", map[string]any{
		"schema_id":   id,
		"fingerprint": rec.Fingerprint,
		"fields":      len(doc.Fields),
	})
	return rec, doc, nil
}

// Get returns the record and its canonical document.
func (s *Service) Get(ctx context.Context, id string) (Record, schema.Document, error) {
	rec, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Record{}, schema.Document{}, err
	}
	var doc schema.Document
	if err := object.LoadJSON(ctx, s.Store, rec.BlobKey, &doc); err != nil {
		return Record{}, schema.Document{}, fmt.Errorf("load schema blob: %w", err)
	}
	return rec, doc, nil
}

// Document resolves a schema id to its canonical document. It satisfies the
// run service's schema source.
func (s *Service) Document(ctx context.Context, id string) (schema.Document, error) {
	_, doc, err := s.Get(ctx, id)
	return doc, err
}
