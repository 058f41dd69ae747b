// Package httpstorage synchronizes encrypted scenes and file attachments
// with a room storage service over HTTP.
//
// Scenes are saved with an optimistic fetch, reconcile, write sequence.
// The write is not conditional on the version observed by the fetch, so
// two clients saving the same room concurrently can lose one update; the
// next save of the losing client reconciles it back in.
package httpstorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"excalidraw-httpsync/core"
	"excalidraw-httpsync/elements"
	"excalidraw-httpsync/encryption"

	"golang.org/x/oauth2"
)

const defaultFileConcurrency = 8

type (
	Client struct {
		baseURL         string
		http            *http.Client
		token           string
		scene           core.SceneOps
		cipher          core.Cipher
		files           core.FileDecoder
		cache           *VersionCache
		fileConcurrency int
	}

	Option func(*Client)
)

// New returns a client for the storage service rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		http:            http.DefaultClient,
		scene:           elements.New(),
		cipher:          encryption.AESGCM{},
		files:           encryption.BlobCodec{},
		cache:           NewVersionCache(),
		fileConcurrency: defaultFileConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.http)
		c.http = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: c.token,
			TokenType:   "Bearer",
		}))
	}
	return c
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBearerToken authenticates every request with a static bearer token.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithSceneOps(ops core.SceneOps) Option {
	return func(c *Client) { c.scene = ops }
}

func WithCipher(cipher core.Cipher) Option {
	return func(c *Client) { c.cipher = cipher }
}

func WithFileDecoder(d core.FileDecoder) Option {
	return func(c *Client) { c.files = d }
}

// WithVersionCache shares a cache between clients.
func WithVersionCache(cache *VersionCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithFileConcurrency bounds the number of file requests in flight per batch.
func WithFileConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.fileConcurrency = n
		}
	}
}

// Cache exposes the client's version cache so connection owners can Forget
// closed sessions.
func (c *Client) Cache() *VersionCache {
	return c.cache
}

func (c *Client) roomURL(roomID string) string {
	return c.baseURL + "/rooms/" + url.PathEscape(roomID)
}

func (c *Client) roomKeyURL(roomID string) string {
	return c.roomURL(roomID) + "/key"
}

func (c *Client) fileURL(id core.FileID) string {
	return c.baseURL + "/files/" + url.PathEscape(string(id))
}

// response is a fully read HTTP response.
type response struct {
	status int
	body   []byte
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// do performs a single request and reads the whole body. Any failure to
// complete the exchange is reported as ErrTransport.
func (c *Client) do(ctx context.Context, method, target string, body []byte, contentType string) (response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return response{}, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, target, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("%w: read %s %s: %v", ErrTransport, method, target, err)
	}
	return response{status: resp.StatusCode, body: data}, nil
}
