package rekor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnchorSubmitsHashedRekord(t *testing.T) {
	const rootDigest = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

	var received hashedRekord
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/log/entries" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("decode submitted entry: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"24296fb24b8ad77a":{"logIndex":420,"integratedTime":1756100000}}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, nil, server.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ref, err := client.Anchor(context.Background(), rootDigest)
	if err != nil {
		t.Fatalf("Anchor: %v", err)
	}
	if ref != "rekor:24296fb24b8ad77a@420" {
		t.Fatalf("ref = %q", ref)
	}

	if received.Kind != "hashedrekord" {
		t.Fatalf("submitted kind = %q", received.Kind)
	}
	if received.Spec.Data.Hash.Value != rootDigest {
		t.Fatalf("submitted digest = %q", received.Spec.Data.Hash.Value)
	}
	if _, err := base64.StdEncoding.DecodeString(received.Spec.Signature.Content); err != nil {
		t.Fatalf("signature not base64: %v", err)
	}
	pubPEM, err := base64.StdEncoding.DecodeString(received.Spec.Signature.PublicKey.Content)
	if err != nil {
		t.Fatalf("public key not base64: %v", err)
	}
	if !strings.Contains(string(pubPEM), "BEGIN PUBLIC KEY") {
		t.Fatal("public key not PEM encoded")
	}
}

func TestAnchorProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, nil, server.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Anchor(context.Background(), "ab12"); err == nil {
		t.Fatal("no error from failing provider")
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("   ", nil, nil); err == nil {
		t.Fatal("blank base url accepted")
	}
}
