package adminapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteKindCarriesTaxonomyType(t *testing.T) {
	w := httptest.NewRecorder()
	WriteKind(w, KindFramingFailure, "short read from helper", "/api/v1/icmp/selftest")

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content-type = %q, want application/problem+json", ct)
	}

	var p problem
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Type != problemBase+string(KindFramingFailure) {
		t.Errorf("type = %q, want %q", p.Type, problemBase+string(KindFramingFailure))
	}
	if p.Title != "Helper Framing Failure" {
		t.Errorf("title = %q, want %q", p.Title, "Helper Framing Failure")
	}
	if p.Detail != "short read from helper" {
		t.Errorf("detail = %q", p.Detail)
	}
}

func TestWriteKindUnknownKindDegradesToInternal(t *testing.T) {
	w := httptest.NewRecorder()
	WriteKind(w, Kind("no-such-kind"), "x", "/y")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var p problem
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Type != problemBase+string(KindInternal) {
		t.Errorf("type = %q, want internal-error", p.Type)
	}
}
