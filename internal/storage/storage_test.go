package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/davstore/davstore/internal/errors"
	"github.com/davstore/davstore/internal/hook"
	"github.com/davstore/davstore/internal/lock"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("hook tests use POSIX shell commands")
	}
}

// fakeProvider hands out handles backed by in-memory state so tests
// can observe acquisition and release ordering.
type fakeProvider struct {
	mu         sync.Mutex
	writeHeld  bool
	acquired   []lock.Mode
	released   int
	onRelease  func()
	acquireErr error
}

func (p *fakeProvider) Acquire(ctx context.Context, mode lock.Mode) (*lock.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	if p.writeHeld {
		return nil, fmt.Errorf("fake provider: write lock already held")
	}
	if mode == lock.ModeWrite {
		p.writeHeld = true
	}
	p.acquired = append(p.acquired, mode)
	return lock.NewHandle(mode, nil, func() error {
		p.mu.Lock()
		defer p.mu.Unlock()
		if mode == lock.ModeWrite {
			p.writeHeld = false
		}
		p.released++
		if p.onRelease != nil {
			p.onRelease()
		}
		return nil
	}), nil
}

func newTestStorage(t *testing.T, hookTemplate string) (*Storage, *fakeProvider) {
	t.Helper()
	provider := &fakeProvider{}
	s, err := NewWithProvider(Config{Root: t.TempDir(), Hook: hookTemplate}, provider, nil)
	require.NoError(t, err)
	return s, provider
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
	assert.True(t, dserrors.IsKind(err, dserrors.KindConfig))
}

func TestWithLockReleasesOnSuccess(t *testing.T) {
	s, provider := newTestStorage(t, "")

	ran := false
	err := s.WithLock(context.Background(), lock.ModeRead, "", func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, provider.released)
}

func TestWithLockReleasesOnBodyError(t *testing.T) {
	s, provider := newTestStorage(t, "")

	bodyErr := errors.New("body failed")
	err := s.WithLock(context.Background(), lock.ModeWrite, "", func() error {
		return bodyErr
	})
	require.ErrorIs(t, err, bodyErr)
	assert.Equal(t, 1, provider.released)
}

func TestWithLockReleasesOnPanic(t *testing.T) {
	s, provider := newTestStorage(t, "")

	require.Panics(t, func() {
		_ = s.WithLock(context.Background(), lock.ModeWrite, "", func() error {
			panic("boom")
		})
	})
	assert.Equal(t, 1, provider.released)
}

func TestWithLockPropagatesAcquireError(t *testing.T) {
	provider := &fakeProvider{acquireErr: errors.New("lock unavailable")}
	s, err := NewWithProvider(Config{Root: t.TempDir()}, provider, nil)
	require.NoError(t, err)

	called := false
	err = s.WithLock(context.Background(), lock.ModeRead, "", func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, provider.acquireErr)
	assert.False(t, called)
}

func TestBodyErrorSkipsHook(t *testing.T) {
	skipOnWindows(t)

	provider := &fakeProvider{}
	root := t.TempDir()
	s, err := NewWithProvider(Config{Root: root, Hook: "touch hookran"}, provider, nil)
	require.NoError(t, err)

	err = s.WithLock(context.Background(), lock.ModeWrite, "", func() error {
		return errors.New("body failed")
	})
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(root, "hookran"))
}

func TestReadModeNeverRunsHook(t *testing.T) {
	skipOnWindows(t)

	provider := &fakeProvider{}
	root := t.TempDir()
	s, err := NewWithProvider(Config{Root: root, Hook: "touch hookran"}, provider, nil)
	require.NoError(t, err)

	require.NoError(t, s.WithLock(context.Background(), lock.ModeRead, "", func() error {
		return nil
	}))
	assert.NoFileExists(t, filepath.Join(root, "hookran"))
}

func TestWriteModeRunsHookExactlyOnce(t *testing.T) {
	skipOnWindows(t)

	provider := &fakeProvider{}
	root := t.TempDir()
	s, err := NewWithProvider(Config{Root: root, Hook: "echo run >> count.txt"}, provider, nil)
	require.NoError(t, err)

	require.NoError(t, s.WithLock(context.Background(), lock.ModeWrite, "", func() error {
		return nil
	}))

	data, err := os.ReadFile(filepath.Join(root, "count.txt"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "run"))
}

func TestHookRunsAfterBodyWhileLockHeld(t *testing.T) {
	skipOnWindows(t)

	root := t.TempDir()
	marker := filepath.Join(root, "hookran")

	provider := &fakeProvider{}
	var hookRanBeforeRelease bool
	provider.onRelease = func() {
		_, err := os.Stat(marker)
		hookRanBeforeRelease = err == nil
	}

	s, err := NewWithProvider(Config{Root: root, Hook: "touch hookran"}, provider, nil)
	require.NoError(t, err)

	var hookRanDuringBody bool
	require.NoError(t, s.WithLock(context.Background(), lock.ModeWrite, "", func() error {
		_, err := os.Stat(marker)
		hookRanDuringBody = err == nil
		return nil
	}))

	assert.False(t, hookRanDuringBody, "hook must start only after the body completes")
	assert.True(t, hookRanBeforeRelease, "lock must still be held while the hook runs")
}

func TestHookFailurePropagates(t *testing.T) {
	skipOnWindows(t)

	provider := &fakeProvider{}
	s, err := NewWithProvider(Config{Root: t.TempDir(), Hook: "exit 7"}, provider, nil)
	require.NoError(t, err)

	err = s.WithLock(context.Background(), lock.ModeWrite, "", func() error {
		return nil
	})
	require.Error(t, err)
	assert.True(t, dserrors.IsKind(err, dserrors.KindHook))

	var exitErr *hook.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 7, exitErr.ExitCode)
	assert.Equal(t, "exit 7", exitErr.Command)

	// The lock is still released after a failed hook.
	assert.Equal(t, 1, provider.released)
}

func TestHookSubstitutesUser(t *testing.T) {
	skipOnWindows(t)

	provider := &fakeProvider{}
	root := t.TempDir()
	s, err := NewWithProvider(Config{Root: root, Hook: "echo %(user)s > out.txt"}, provider, nil)
	require.NoError(t, err)

	require.NoError(t, s.WithLock(context.Background(), lock.ModeWrite, "alice", func() error {
		return nil
	}))

	data, err := os.ReadFile(filepath.Join(root, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alice\n", string(data))
}

func TestHookDefaultsToAnonymousUser(t *testing.T) {
	skipOnWindows(t)

	provider := &fakeProvider{}
	root := t.TempDir()
	s, err := NewWithProvider(Config{Root: root, Hook: "echo %(user)s > out.txt"}, provider, nil)
	require.NoError(t, err)

	require.NoError(t, s.WithLock(context.Background(), lock.ModeWrite, "", func() error {
		return nil
	}))

	data, err := os.ReadFile(filepath.Join(root, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Anonymous\n", string(data))
}

func TestInterruptedHookReleasesLock(t *testing.T) {
	skipOnWindows(t)

	provider := &fakeProvider{}
	s, err := NewWithProvider(Config{Root: t.TempDir(), Hook: "sleep 30"}, provider, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.WithLock(ctx, lock.ModeWrite, "", func() error {
			return nil
		})
	}()

	// Let the transaction reach the hook wait, then interrupt it.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("transaction did not unwind after cancellation")
	}
	assert.Equal(t, 1, provider.released)
}

func TestSingleWriteHolderAtATime(t *testing.T) {
	s, provider := newTestStorage(t, "")

	// The fake provider fails if a second writer acquires while one is
	// held; sequential write transactions must therefore both succeed.
	for i := 0; i < 3; i++ {
		require.NoError(t, s.WithLock(context.Background(), lock.ModeWrite, "", func() error {
			return nil
		}))
	}
	assert.Equal(t, []lock.Mode{lock.ModeWrite, lock.ModeWrite, lock.ModeWrite}, provider.acquired)
}
