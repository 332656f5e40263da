// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package container

import (
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"golang.org/x/sys/unix"
)

// SecureMode selects how a SecureFile pins its snapshot.
type SecureMode int

const (
	// SecureLock holds a shared advisory lock for the life of the
	// SecureFile. Cooperating writers that take an exclusive lock
	// cannot rewrite the file while it is held.
	SecureLock SecureMode = iota

	// SecurePrivateMap maps the file copy-on-write. Reads come from
	// the mapping rather than from the descriptor.
	SecurePrivateMap
)

func (m SecureMode) String() string {
	switch m {
	case SecureLock:
		return "lock"
	case SecurePrivateMap:
		return "private-map"
	default:
		return fmt.Sprintf("SecureMode(%d)", int(m))
	}
}

// SecureFile is a single, stable snapshot of a file. Bytes read for
// signature checks cannot change underneath the reader for as long as
// the SecureFile stays open.
//
// SecureFile is safe for concurrent use. Close waits for reads in
// flight; reads after Close fail with ErrClosed.
type SecureFile struct {
	path string
	mode SecureMode
	fd   int
	data []byte // MAP_PRIVATE, PROT_READ; nil in SecureLock mode
	size int64

	digest func() (Digest, error)

	mu       sync.RWMutex // guards fd and data against Close
	closed   bool
	closeErr error
}

// OpenSecureFile opens path and pins its content according to mode.
func OpenSecureFile(path string, mode SecureMode) (*SecureFile, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("opening secure file %s: %w", path, err)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stating secure file %s: %w", path, err)
	}

	file := &SecureFile{path: path, mode: mode, fd: fd, size: stat.Size}
	switch mode {
	case SecureLock:
		if err := unix.Flock(fd, unix.LOCK_SH); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("locking secure file %s: %w", path, err)
		}
		// The size may have changed between Fstat and the lock.
		if err := unix.Fstat(fd, &stat); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("stating secure file %s: %w", path, err)
		}
		file.size = stat.Size
	case SecurePrivateMap:
		if stat.Size > 0 {
			data, err := unix.Mmap(fd, 0, int(stat.Size), unix.PROT_READ, unix.MAP_PRIVATE)
			if err != nil {
				unix.Close(fd)
				return nil, fmt.Errorf("memory-mapping secure file %s: %w", path, err)
			}
			file.data = data
		}
	default:
		unix.Close(fd)
		return nil, fmt.Errorf("secure file %s: unknown mode %v", path, mode)
	}

	file.digest = sync.OnceValues(func() (Digest, error) {
		return digestReader(io.NewSectionReader(file, 0, file.size))
	})
	return file, nil
}

// ReadAt reads from the snapshot.
func (f *SecureFile) ReadAt(p []byte, off int64) (readCount int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("secure file %s: negative offset %d", f.path, off)
	}
	if off >= f.size {
		return 0, io.EOF
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return 0, fmt.Errorf("reading secure file %s: %w", f.path, ErrClosed)
	}
	if f.mode == SecureLock {
		want := len(p)
		if int64(want) > f.size-off {
			p = p[:f.size-off]
		}
		for readCount < len(p) {
			count, err := unix.Pread(f.fd, p[readCount:], off+int64(readCount))
			if err != nil {
				return readCount, fmt.Errorf("reading secure file %s: %w", f.path, err)
			}
			if count == 0 {
				return readCount, io.EOF
			}
			readCount += count
		}
		if readCount < want {
			return readCount, io.EOF
		}
		return readCount, nil
	}

	// A truncated backing file turns mapped reads into SIGBUS.
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			err = fmt.Errorf("page fault reading secure file %s at offset %d: %v", f.path, off, r)
		}
	}()

	readCount = copy(p, f.data[off:])
	if readCount < len(p) {
		return readCount, io.EOF
	}
	return readCount, nil
}

// Size is the snapshot size in bytes.
func (f *SecureFile) Size() int64 { return f.size }

// Mode reports how the snapshot is pinned.
func (f *SecureFile) Mode() SecureMode { return f.mode }

// Path is the file the snapshot was taken from.
func (f *SecureFile) Path() string { return f.path }

// Digest returns the keyed BLAKE3 digest of the whole snapshot,
// computed on first call.
func (f *SecureFile) Digest() (Digest, error) { return f.digest() }

// Close unmaps the snapshot, releases the lock and closes the
// descriptor. Close is idempotent.
func (f *SecureFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return f.closeErr
	}
	f.closed = true
	if f.data != nil {
		if err := unix.Munmap(f.data); err != nil {
			f.closeErr = fmt.Errorf("unmapping secure file %s: %w", f.path, err)
		}
		f.data = nil
	}
	// Closing the descriptor drops the flock.
	if err := unix.Close(f.fd); err != nil && f.closeErr == nil {
		f.closeErr = fmt.Errorf("closing secure file %s: %w", f.path, err)
	}
	f.fd = -1
	return f.closeErr
}
