package config

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// ErrLockTimeout indicates another flashcards process held the config lock too long.
var ErrLockTimeout = errors.New("timed out waiting for config lock")

// lockWait bounds how long Lock polls before giving up.
var lockWait = 5 * time.Second

// FileLock is an exclusive flock on a sidecar file next to the config.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock for the given path. The file is created on Lock.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// LockPath returns the lock file path for a config file.
func LockPath(configPath string) string {
	return configPath + ".lock"
}

// Lock acquires the lock, retrying until lockWait elapses.
func (l *FileLock) Lock() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(lockWait)
	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			l.file = f
			return nil
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			f.Close()
			return err
		}
		if time.Now().After(deadline) {
			f.Close()
			return fmt.Errorf("%w (%s)", ErrLockTimeout, l.path)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// Unlock releases the lock. Calling Unlock on an unlocked FileLock is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	defer func() { l.file = nil }()

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
