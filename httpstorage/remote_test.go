package httpstorage

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"excalidraw-httpsync/core"
	"excalidraw-httpsync/encryption"
	"excalidraw-httpsync/wire"

	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://storage.test"

var errConnectionReset = errors.New("connection reset by peer")

// fakeRemote is an in-memory room service reached through http.Client's
// transport. It records every request and can inject failures per
// "METHOD /path".
type fakeRemote struct {
	mu       sync.Mutex
	rooms    map[string][]byte
	keys     map[string]string
	files    map[string][]byte
	requests []string
	headers  []http.Header
	fail     map[string]error
	status   map[string]int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		rooms:  make(map[string][]byte),
		keys:   make(map[string]string),
		files:  make(map[string][]byte),
		fail:   make(map[string]error),
		status: make(map[string]int),
	}
}

func (f *fakeRemote) client(opts ...Option) *Client {
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: f})}, opts...)
	return New(testBaseURL, opts...)
}

func (f *fakeRemote) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	route := req.Method + " " + req.URL.EscapedPath()
	f.requests = append(f.requests, route)
	f.headers = append(f.headers, req.Header.Clone())

	if err, ok := f.fail[route]; ok {
		return nil, err
	}
	if status, ok := f.status[route]; ok {
		return reply(req, status, nil), nil
	}

	switch {
	case strings.HasPrefix(req.URL.Path, "/rooms/") && strings.HasSuffix(req.URL.Path, "/key"):
		roomID := strings.TrimSuffix(strings.TrimPrefix(req.URL.Path, "/rooms/"), "/key")
		if req.Method == http.MethodPut {
			var in roomKeyBody
			if err := json.Unmarshal(body, &in); err != nil || in.Key == "" {
				return reply(req, http.StatusBadRequest, nil), nil
			}
			f.keys[roomID] = in.Key
			return reply(req, http.StatusOK, []byte(`{"id":"`+roomID+`"}`)), nil
		}
		key, ok := f.keys[roomID]
		if !ok {
			return reply(req, http.StatusNotFound, nil), nil
		}
		out, _ := json.Marshal(roomKeyBody{Key: key})
		return reply(req, http.StatusOK, out), nil

	case strings.HasPrefix(req.URL.Path, "/rooms/"):
		return f.serveBlob(req, f.rooms, strings.TrimPrefix(req.URL.Path, "/rooms/"), body), nil

	case strings.HasPrefix(req.URL.Path, "/files/"):
		return f.serveBlob(req, f.files, strings.TrimPrefix(req.URL.Path, "/files/"), body), nil
	}
	return reply(req, http.StatusNotFound, nil), nil
}

func (f *fakeRemote) serveBlob(req *http.Request, store map[string][]byte, id string, body []byte) *http.Response {
	if req.Method == http.MethodPut {
		store[id] = body
		return reply(req, http.StatusOK, []byte(`{"id":"`+id+`"}`))
	}
	data, ok := store[id]
	if !ok {
		return reply(req, http.StatusNotFound, nil)
	}
	return reply(req, http.StatusOK, data)
}

func (f *fakeRemote) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeRemote) count(route string) int {
	n := 0
	for _, r := range f.calls() {
		if r == route {
			n++
		}
	}
	return n
}

func reply(req *http.Request, status int, body []byte) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}
}

func rect(id string, version int) core.Element {
	return core.Element{ID: id, Type: "rectangle", Version: version, VersionNonce: 1, Width: 20, Height: 10}
}

func testKey(t *testing.T) string {
	t.Helper()
	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	return key
}

// seedScene stores elements in the fake room at an explicit wire version.
func seedScene(t *testing.T, f *fakeRemote, roomID, key string, version uint32, elements []core.Element) {
	t.Helper()
	plaintext, err := json.Marshal(elements)
	require.NoError(t, err)
	iv, ciphertext, err := encryption.AESGCM{}.Encrypt(key, plaintext)
	require.NoError(t, err)
	buf, err := wire.Encode(wire.Payload{Version: version, IV: iv, Ciphertext: ciphertext})
	require.NoError(t, err)

	f.mu.Lock()
	f.rooms[roomID] = buf
	f.mu.Unlock()
}

// storedScene decodes what the fake room currently holds.
func storedScene(t *testing.T, f *fakeRemote, roomID, key string) (uint32, []core.Element) {
	t.Helper()
	f.mu.Lock()
	buf, ok := f.rooms[roomID]
	f.mu.Unlock()
	require.True(t, ok, "room %s has no stored scene", roomID)

	p, err := wire.Decode(buf)
	require.NoError(t, err)
	plaintext, err := encryption.AESGCM{}.Decrypt(p.IV, p.Ciphertext, key)
	require.NoError(t, err)

	var elements []core.Element
	require.NoError(t, json.Unmarshal(plaintext, &elements))
	return p.Version, elements
}

func elementIDs(elements []core.Element) []string {
	out := make([]string, 0, len(elements))
	for _, e := range elements {
		out = append(out, e.ID)
	}
	return out
}
