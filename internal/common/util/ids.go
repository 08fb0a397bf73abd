package util

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid"
)

var (
	entropy     = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	entropyLock sync.Mutex
)

// NewULID returns a lower case ULID. Ids created by one process sort in creation order.
func NewULID() string {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Now(), entropy).String())
}

// NewRunId identifies one invocation of the batch.
func NewRunId() string {
	return uuid.NewString()
}
