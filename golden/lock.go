package golden

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/gofrs/flock"
	"golang.org/x/sync/semaphore"
)

// Lock serialises verification and regeneration of a golden tree: any number of
// verifiers share it, regeneration holds it exclusively. The in-process semaphore
// covers goroutines, the file lock covers other processes. Both honour ctx.
type Lock struct {
	root string
	path string
}

// maxHolders is the weight of the exclusive lock; each shared holder takes one.
const maxHolders = 1 << 20

var (
	semaphoresMu sync.Mutex
	semaphores   = map[string]*semaphore.Weighted{}
)

func semaphoreFor(path string) *semaphore.Weighted {
	semaphoresMu.Lock()
	defer semaphoresMu.Unlock()
	sem, ok := semaphores[path]
	if !ok {
		sem = semaphore.NewWeighted(maxHolders)
		semaphores[path] = sem
	}
	return sem
}

// NewLock returns the lock for a fixture root. The lock file lives in the temp
// directory so that verification never writes into the tree.
func NewLock(root string) *Lock {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	sum := sha256.Sum256([]byte(abs))
	return &Lock{
		root: abs,
		path: filepath.Join(os.TempDir(), "fixturegate-"+hex.EncodeToString(sum[:8])+".lock"),
	}
}

func (l *Lock) Path() string {
	return l.path
}

const retryDelay = 100 * time.Millisecond

// RLock takes the shared lock; the returned func releases it.
func (l *Lock) RLock(ctx context.Context) (func(), error) {
	return l.acquire(ctx, false)
}

// Lock takes the exclusive lock; the returned func releases it.
func (l *Lock) Lock(ctx context.Context) (func(), error) {
	return l.acquire(ctx, true)
}

func (l *Lock) acquire(ctx context.Context, exclusive bool) (func(), error) {
	sem := semaphoreFor(l.path)
	weight := int64(1)
	if exclusive {
		weight = maxHolders
	}
	if err := sem.Acquire(ctx, weight); err != nil {
		return nil, fmt.Errorf("failed to lock golden files under %s: %w", l.root, err)
	}
	release := func() { sem.Release(weight) }

	fl := flock.New(l.path)
	var ok bool
	var err error
	if exclusive {
		ok, err = fl.TryLockContext(ctx, retryDelay)
	} else {
		ok, err = fl.TryRLockContext(ctx, retryDelay)
	}
	if err != nil || !ok {
		release()
		if err == nil {
			err = fmt.Errorf("lock %s not acquired", l.path)
		}
		return nil, fmt.Errorf("failed to lock golden files under %s: %w", l.root, err)
	}
	logger.V(4).Infof("locked %s (exclusive=%v)", l.path, exclusive)

	return func() {
		_ = fl.Close()
		release()
	}, nil
}
