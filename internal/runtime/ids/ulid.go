// Package ids generates the ULIDs used as queue message UUIDs. ULIDs sort
// by creation time, so the order events entered the queue stays
// reconstructible from the ids alone, including across a requeue.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Monotonic entropy keeps ids strictly increasing within one process even
// when many events share a millisecond.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// CreateULID returns a time-sortable ULID encoded as a 26-character string.
func CreateULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
