// Package rekor anchors evidence root digests in a public transparency
// log. The resulting entry reference goes into the evidence record; anyone
// can later fetch the entry and compare the logged digest.
package rekor

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxResponseBytes = 256 * 1024

// Client submits hashedrekord entries for evidence root digests.
type Client struct {
	baseURL string
	signer  ed25519.PrivateKey
	httpDo  func(*http.Request) (*http.Response, error)
}

// NewClient builds a client for the rekor instance at baseURL. A nil key
// generates an ephemeral one; receipts then prove log inclusion, not signer
// identity.
func NewClient(baseURL string, key ed25519.PrivateKey, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("rekor base url is required")
	}
	if key == nil {
		var err error
		if _, key, err = ed25519.GenerateKey(rand.Reader); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}
	doer := http.DefaultClient.Do
	if httpClient != nil {
		doer = httpClient.Do
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  key,
		httpDo:  doer,
	}, nil
}

// Anchor submits rootDigest and returns a reference of the form
// "rekor:<entry-uuid>@<log-index>".
func (c *Client) Anchor(ctx context.Context, rootDigest string) (string, error) {
	pubDER, err := x509.MarshalPKIXPublicKey(c.signer.Public())
	if err != nil {
		return "", fmt.Errorf("encode public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	signature := ed25519.Sign(c.signer, []byte(rootDigest))

	entry := hashedRekord{
		APIVersion: "0.0.1",
		Kind:       "hashedrekord",
	}
	entry.Spec.Data.Hash.Algorithm = "sha256"
	entry.Spec.Data.Hash.Value = rootDigest
	entry.Spec.Signature.Content = base64.StdEncoding.EncodeToString(signature)
	entry.Spec.Signature.PublicKey.Content = base64.StdEncoding.EncodeToString(pubPEM)

	body, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/log/entries", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpDo(req)
	if err != nil {
		return "", fmt.Errorf("submit anchor entry: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read anchor response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("anchor provider returned %d", resp.StatusCode)
	}

	uuid, logIndex, err := parseEntry(respBody)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rekor:%s@%d", uuid, logIndex), nil
}

// parseEntry decodes the single-key map rekor returns: entry uuid mapped to
// its metadata.
func parseEntry(payload []byte) (string, int64, error) {
	var raw map[string]struct {
		LogIndex int64 `json:"logIndex"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return "", 0, fmt.Errorf("decode anchor response: %w", err)
	}
	for uuid, meta := range raw {
		return uuid, meta.LogIndex, nil
	}
	return "", 0, errors.New("anchor response held no entry")
}

type hashedRekord struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
	Spec       struct {
		Data struct {
			Hash struct {
				Algorithm string `json:"algorithm"`
				Value     string `json:"value"`
			} `json:"hash"`
		} `json:"data"`
		Signature struct {
			Content   string `json:"content"`
			PublicKey struct {
				Content string `json:"content"`
			} `json:"publicKey"`
		} `json:"signature"`
	} `json:"spec"`
}
