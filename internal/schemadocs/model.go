// Package schemadocs stores user-registered extraction schemas. The record
// carries metadata only; the canonical document lives in the object store
// under BlobKey.
package schemadocs

import "time"

type Record struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	BlobKey     string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
