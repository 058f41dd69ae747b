package httpstorage

import (
	"context"
	"net/http"
	"testing"

	"excalidraw-httpsync/core"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_NotReady(t *testing.T) {
	remote := newFakeRemote()
	c := remote.client()

	portals := []Portal{
		{RoomKey: "k", Connection: "c"},
		{RoomID: "r", Connection: "c"},
		{RoomID: "r", RoomKey: "k"},
	}
	for _, p := range portals {
		res, err := c.Save(context.Background(), p, []core.Element{rect("a", 1)}, core.AppState{})
		require.NoError(t, err)
		assert.Equal(t, NotReady, res.Outcome)
	}
	assert.Empty(t, remote.calls())
}

func TestSave_FastPathSkipsNetwork(t *testing.T) {
	remote := newFakeRemote()
	c := remote.client()
	portal := Portal{RoomID: "room", RoomKey: testKey(t), Connection: NewConnectionID()}
	elements := []core.Element{rect("a", 2), rect("b", 3)}

	c.Cache().Set(portal.Connection, 5)
	before := testutil.ToFloat64(SceneSaves.WithLabelValues("already_synced"))

	res, err := c.Save(context.Background(), portal, elements, core.AppState{})
	require.NoError(t, err)

	assert.Equal(t, AlreadySynced, res.Outcome)
	assert.Empty(t, remote.calls())
	assert.Equal(t, before+1, testutil.ToFloat64(SceneSaves.WithLabelValues("already_synced")))
}

func TestSave_NewRoom(t *testing.T) {
	remote := newFakeRemote()
	c := remote.client()
	key := testKey(t)
	portal := Portal{RoomID: "fresh", RoomKey: key, Connection: NewConnectionID()}
	elements := []core.Element{rect("a", 1), rect("b", 4)}

	res, err := c.Save(context.Background(), portal, elements, core.AppState{})
	require.NoError(t, err)

	assert.Equal(t, Saved, res.Outcome)
	assert.Equal(t, []string{"a", "b"}, elementIDs(res.Elements))
	assert.Equal(t, []string{"GET /rooms/fresh", "PUT /rooms/fresh"}, remote.calls())

	version, stored := storedScene(t, remote, "fresh", key)
	assert.Equal(t, uint32(5), version)
	assert.Equal(t, []string{"a", "b"}, elementIDs(stored))

	cached, ok := c.Cache().Get(portal.Connection)
	require.True(t, ok)
	assert.Equal(t, uint32(5), cached)
	assert.True(t, c.IsSaved(portal, elements))
}

func TestSave_EmptyRemoteSceneIsOverwritten(t *testing.T) {
	remote := newFakeRemote()
	remote.rooms["blank"] = []byte{}
	c := remote.client()
	key := testKey(t)
	portal := Portal{RoomID: "blank", RoomKey: key, Connection: NewConnectionID()}

	res, err := c.Save(context.Background(), portal, []core.Element{rect("a", 2)}, core.AppState{})
	require.NoError(t, err)
	assert.Equal(t, Saved, res.Outcome)

	version, stored := storedScene(t, remote, "blank", key)
	assert.Equal(t, uint32(2), version)
	assert.Equal(t, []string{"a"}, elementIDs(stored))
}

func TestSave_NoChangesSkipsWrite(t *testing.T) {
	remote := newFakeRemote()
	c := remote.client()
	key := testKey(t)
	portal := Portal{RoomID: "room", RoomKey: key, Connection: NewConnectionID()}

	// A long-deleted element is not syncable, so the wire version (7)
	// exceeds the version of the syncable subset (3).
	stale := rect("gone", 4)
	stale.IsDeleted = true
	seedScene(t, remote, "room", key, 7, []core.Element{rect("a", 1), rect("b", 2), stale})

	local := []core.Element{rect("a", 1), rect("b", 2)}
	res, err := c.Save(context.Background(), portal, local, core.AppState{})
	require.NoError(t, err)

	assert.Equal(t, Unchanged, res.Outcome)
	assert.Equal(t, []string{"GET /rooms/room"}, remote.calls())

	cached, ok := c.Cache().Get(portal.Connection)
	require.True(t, ok)
	assert.Equal(t, uint32(7), cached, "cache must hold the version observed on the wire")
}

func TestSave_DivergentScenesAreMerged(t *testing.T) {
	remote := newFakeRemote()
	c := remote.client()
	key := testKey(t)
	portal := Portal{RoomID: "room", RoomKey: key, Connection: NewConnectionID()}

	seedScene(t, remote, "room", key, 1, []core.Element{rect("b", 1)})

	res, err := c.Save(context.Background(), portal, []core.Element{rect("a", 1)}, core.AppState{})
	require.NoError(t, err)

	assert.Equal(t, Saved, res.Outcome)
	assert.Equal(t, []string{"a", "b"}, elementIDs(res.Elements))
	assert.Equal(t, 1, remote.count("PUT /rooms/room"))

	version, stored := storedScene(t, remote, "room", key)
	assert.Equal(t, uint32(2), version)
	assert.Equal(t, []string{"a", "b"}, elementIDs(stored))

	cached, _ := c.Cache().Get(portal.Connection)
	assert.Equal(t, uint32(2), cached)
}

func TestSave_FetchFailureLeavesCacheUntouched(t *testing.T) {
	remote := newFakeRemote()
	c := remote.client()
	portal := Portal{RoomID: "room", RoomKey: testKey(t), Connection: NewConnectionID()}

	remote.fail["GET /rooms/room"] = errConnectionReset
	_, err := c.Save(context.Background(), portal, []core.Element{rect("a", 1)}, core.AppState{})
	assert.ErrorIs(t, err, ErrTransport)

	delete(remote.fail, "GET /rooms/room")
	remote.status["GET /rooms/room"] = http.StatusInternalServerError
	_, err = c.Save(context.Background(), portal, []core.Element{rect("a", 1)}, core.AppState{})
	assert.ErrorIs(t, err, ErrTransport)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)

	_, ok := c.Cache().Get(portal.Connection)
	assert.False(t, ok)
	assert.Zero(t, remote.count("PUT /rooms/room"))
}

func TestSave_WriteFailureIsRetriedNextTime(t *testing.T) {
	remote := newFakeRemote()
	c := remote.client()
	portal := Portal{RoomID: "room", RoomKey: testKey(t), Connection: NewConnectionID()}
	elements := []core.Element{rect("a", 1)}

	remote.status["PUT /rooms/room"] = http.StatusServiceUnavailable
	_, err := c.Save(context.Background(), portal, elements, core.AppState{})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.False(t, c.IsSaved(portal, elements))

	delete(remote.status, "PUT /rooms/room")
	res, err := c.Save(context.Background(), portal, elements, core.AppState{})
	require.NoError(t, err)
	assert.Equal(t, Saved, res.Outcome)
	assert.Equal(t, 2, remote.count("PUT /rooms/room"))
}

func TestSave_PutTransportErrorIsWriteFailed(t *testing.T) {
	remote := newFakeRemote()
	c := remote.client()
	portal := Portal{RoomID: "room", RoomKey: testKey(t), Connection: NewConnectionID()}

	remote.fail["PUT /rooms/room"] = errConnectionReset
	_, err := c.Save(context.Background(), portal, []core.Element{rect("a", 1)}, core.AppState{})

	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestSave_MalformedRemotePayload(t *testing.T) {
	remote := newFakeRemote()
	c := remote.client()
	portal := Portal{RoomID: "room", RoomKey: testKey(t), Connection: NewConnectionID()}
	remote.rooms["room"] = []byte{0, 0, 1}

	_, err := c.Save(context.Background(), portal, []core.Element{rect("a", 1)}, core.AppState{})
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Zero(t, remote.count("PUT /rooms/room"))
}

func TestSave_WrongKeyIsDecryptError(t *testing.T) {
	remote := newFakeRemote()
	c := remote.client()
	seedScene(t, remote, "room", testKey(t), 1, []core.Element{rect("b", 1)})
	portal := Portal{RoomID: "room", RoomKey: testKey(t), Connection: NewConnectionID()}

	_, err := c.Save(context.Background(), portal, []core.Element{rect("a", 1)}, core.AppState{})
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestIsSaved(t *testing.T) {
	c := newFakeRemote().client()
	conn := NewConnectionID()
	elements := []core.Element{rect("a", 3)}

	assert.True(t, c.IsSaved(Portal{}, elements), "a portal that is not ready has nothing to save")

	portal := Portal{RoomID: "r", RoomKey: "k", Connection: conn}
	assert.False(t, c.IsSaved(portal, elements))

	c.Cache().Set(conn, 3)
	assert.True(t, c.IsSaved(portal, elements))
}

func TestSaveOutcomeString(t *testing.T) {
	assert.Equal(t, "saved", Saved.String())
	assert.Equal(t, "unchanged", Unchanged.String())
	assert.Equal(t, "unknown(42)", SaveOutcome(42).String())
}
