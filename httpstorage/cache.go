package httpstorage

import (
	"excalidraw-httpsync/core"

	"github.com/oklog/ulid/v2"
	"github.com/puzpuzpuz/xsync/v3"
)

// VersionCache remembers, per connection, the last scene version known to
// be in sync with the service. Entries live until the connection owner
// calls Forget. Writes for one connection must not overlap.
type VersionCache struct {
	versions *xsync.MapOf[core.ConnectionID, uint32]
}

func NewVersionCache() *VersionCache {
	return &VersionCache{versions: xsync.NewMapOf[core.ConnectionID, uint32]()}
}

func (c *VersionCache) Get(conn core.ConnectionID) (uint32, bool) {
	return c.versions.Load(conn)
}

func (c *VersionCache) Set(conn core.ConnectionID, version uint32) {
	c.versions.Store(conn, version)
}

// Forget drops the entry of a closed connection.
func (c *VersionCache) Forget(conn core.ConnectionID) {
	c.versions.Delete(conn)
}

func (c *VersionCache) Len() int {
	return c.versions.Size()
}

// NewConnectionID returns a fresh, sortable connection identifier.
func NewConnectionID() core.ConnectionID {
	return core.ConnectionID(ulid.Make().String())
}
