package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/plainsql/plainsql/internal/storage"
)

// Workspace materializes session databases from the object store into local
// scratch directories. Access to one object key is serialized.
type Workspace struct {
	Store   storage.ObjectStore
	WorkDir string

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is held by sending into slot. refs counts holders and waiters so the
// entry can be dropped once nobody uses the key.
type keyLock struct {
	slot chan struct{}
	refs int
}

// Checkout is a local copy of one session database. Release removes it.
type Checkout struct {
	ObjectKey string
	Path      string

	dir    string
	unlock func()
}

// Checkout locks objectKey and copies the object into a fresh temp dir as
// localName. Waiting for the lock stops when ctx is done. The caller must
// Release the checkout.
func (w *Workspace) Checkout(ctx context.Context, objectKey, localName string) (*Checkout, error) {
	if strings.TrimSpace(objectKey) == "" {
		return nil, fmt.Errorf("object key is required")
	}
	if w.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}

	unlock, err := w.lock(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("wait for session database %q: %w", objectKey, err)
	}
	dir, err := os.MkdirTemp(w.WorkDir, "plainsql-session-")
	if err != nil {
		unlock()
		return nil, fmt.Errorf("create session temp dir: %w", err)
	}
	checkout := &Checkout{ObjectKey: objectKey, Path: filepath.Join(dir, localName), dir: dir, unlock: unlock}

	reader, err := w.Store.Get(ctx, objectKey)
	if err != nil {
		checkout.Release()
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("session database %q: %w", objectKey, storage.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("get object %q: %w", objectKey, err)
	}
	defer func() { _ = reader.Close() }()

	if err := writeFile(checkout.Path, reader); err != nil {
		checkout.Release()
		return nil, fmt.Errorf("write local database file: %w", err)
	}
	return checkout, nil
}

// Commit uploads the local copy back under its object key.
func (w *Workspace) Commit(ctx context.Context, checkout *Checkout) error {
	file, err := os.Open(checkout.Path)
	if err != nil {
		return fmt.Errorf("open local database file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat local database file: %w", err)
	}
	if _, err := w.Store.Put(ctx, checkout.ObjectKey, file, info.Size(), storage.PutOptions{ContentType: storage.DatabaseContentType}); err != nil {
		return fmt.Errorf("upload database %q: %w", checkout.ObjectKey, err)
	}
	return nil
}

func (c *Checkout) Release() {
	if c == nil {
		return
	}
	_ = os.RemoveAll(c.dir)
	if c.unlock != nil {
		c.unlock()
		c.unlock = nil
	}
}

func (w *Workspace) lock(ctx context.Context, objectKey string) (func(), error) {
	w.mu.Lock()
	if w.locks == nil {
		w.locks = make(map[string]*keyLock)
	}
	l, ok := w.locks[objectKey]
	if !ok {
		l = &keyLock{slot: make(chan struct{}, 1)}
		w.locks[objectKey] = l
	}
	l.refs++
	w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		w.release(objectKey, l)
		return nil, err
	}
	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		w.release(objectKey, l)
		return nil, ctx.Err()
	}
	return func() {
		<-l.slot
		w.release(objectKey, l)
	}, nil
}

func (w *Workspace) release(objectKey string, l *keyLock) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(w.locks, objectKey)
	}
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(file, reader); err != nil {
		return err
	}
	return file.Sync()
}
