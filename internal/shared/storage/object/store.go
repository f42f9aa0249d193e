package object

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Store defines the contract for saving and retrieving binary blobs by key.
// The orchestration core keeps large canonical schemas and result payloads
// here, with only the key recorded alongside the owning record.
type Store interface {
	Save(ctx context.Context, scope, name string, r io.Reader) (key string, size int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// SaveJSON marshals v and stores it under the given scope and name.
func SaveJSON(ctx context.Context, store Store, scope, name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", name, err)
	}
	key, _, err := store.Save(ctx, scope, name, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return key, nil
}

// LoadJSON reads the blob at key and unmarshals it into v.
func LoadJSON(ctx context.Context, store Store, key string, v any) error {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
