package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/jsaudit"
)

// Compile-time interface verification.
var _ jsaudit.ModelClient = (*Client)(nil)

// Client wraps a ModelClient with file-based response caching.
// Responses are keyed by the namespace and the exact prompt text, so a
// changed template or model never reuses a stale answer.
type Client struct {
	inner     jsaudit.ModelClient
	cacheDir  string
	namespace string
	now       func() time.Time
}

// cacheEntry is the on-disk representation of one cached response.
type cacheEntry struct {
	Namespace string    `json:"namespace"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// NewClient creates a new caching client. namespace usually carries the
// provider and model name.
func NewClient(inner jsaudit.ModelClient, cacheDir, namespace string) *Client {
	return &Client{
		inner:     inner,
		cacheDir:  cacheDir,
		namespace: namespace,
		now:       time.Now,
	}
}

// Complete returns a cached response or delegates to the inner client.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	hash := c.hashPrompt(prompt)

	if cached, err := c.loadFromCache(hash); err == nil {
		return cached, nil
	}

	text, err := c.inner.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	// Best-effort.
	_ = c.saveToCache(hash, text)

	return text, nil
}

func (c *Client) hashPrompt(prompt string) string {
	h := sha256.New()
	h.Write([]byte(c.namespace))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Client) cachePath(hash string) string {
	return filepath.Join(c.cacheDir, "responses", hash+".json")
}

func (c *Client) loadFromCache(hash string) (string, error) {
	data, err := os.ReadFile(c.cachePath(hash))
	if err != nil {
		return "", err
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", err
	}
	if entry.Response == "" {
		return "", os.ErrNotExist
	}

	return entry.Response, nil
}

func (c *Client) saveToCache(hash, text string) error {
	if err := os.MkdirAll(filepath.Dir(c.cachePath(hash)), 0755); err != nil {
		return err
	}

	data, err := json.Marshal(cacheEntry{
		Namespace: c.namespace,
		Response:  text,
		CreatedAt: c.now().UTC(),
	})
	if err != nil {
		return err
	}

	return os.WriteFile(c.cachePath(hash), data, 0644)
}
