package workerproc

import (
	"errors"
	"testing"
)

func TestParseMessage(t *testing.T) {
	msg, meta, err := ParseMessage(`{"runId":"run-1","requestId":"req-1","version":1}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.RunID != "run-1" || msg.RequestID != "req-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if meta.BodyLen == 0 || meta.BodySHA == "" {
		t.Fatalf("meta not computed: %+v", meta)
	}
}

func TestParseMessageEmptyBody(t *testing.T) {
	_, _, err := ParseMessage("   ")
	var empty ErrEmptyBody
	if !errors.As(err, &empty) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}

func TestParseMessageDecodeFailure(t *testing.T) {
	_, meta, err := ParseMessage("{not json")
	var decode ErrDecode
	if !errors.As(err, &decode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if meta.BodySHA == "" {
		t.Fatalf("meta missing for diagnostics")
	}
}

func TestParseMessageMissingRunID(t *testing.T) {
	_, _, err := ParseMessage(`{"requestId":"req-1"}`)
	var missing ErrMissingRunID
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrMissingRunID, got %v", err)
	}
	if missing.RequestID != "req-1" {
		t.Fatalf("request id not carried: %+v", missing)
	}
}
