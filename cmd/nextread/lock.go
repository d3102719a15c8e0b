// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// IndexLock guards a project's data directory against concurrent
// `nextread index` runs, whether started by hand or by the git hook's
// background reindex. `nextread serve` does not take this lock.
type IndexLock struct {
	lockPath string
	lockFile *os.File
}

// LockInfo describes the current lock holder.
type LockInfo struct {
	PID       int
	StartedAt time.Time
}

// NewIndexLock returns the lock for a project's data directory.
func NewIndexLock(dataDir string) (*IndexLock, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &IndexLock{lockPath: filepath.Join(dataDir, "index.lock")}, nil
}

// TryAcquire attempts to take the lock without blocking. Returns false,
// nil if another process already holds it.
func (l *IndexLock) TryAcquire() (bool, error) {
	f, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return false, nil
		}
		return false, fmt.Errorf("flock: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d %d\n", os.Getpid(), time.Now().Unix()); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write lock file: %w", err)
	}

	l.lockFile = f
	return true, nil
}

// Release releases the lock. Safe to call even if TryAcquire never
// succeeded.
func (l *IndexLock) Release() {
	if l.lockFile != nil {
		_ = syscall.Flock(int(l.lockFile.Fd()), syscall.LOCK_UN)
		_ = l.lockFile.Close()
		l.lockFile = nil
	}
}

// Info returns the current lock holder, or nil if the lock is free.
func (l *IndexLock) Info() (*LockInfo, error) {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var pid int
	var timestamp int64
	if _, err := fmt.Sscanf(string(data), "%d %d", &pid, &timestamp); err != nil {
		return nil, fmt.Errorf("parse lock info: %w", err)
	}

	return &LockInfo{PID: pid, StartedAt: time.Unix(timestamp, 0)}, nil
}

// IsStale reports whether the current lock holder's process is gone.
func (l *IndexLock) IsStale() bool {
	info, err := l.Info()
	if err != nil || info == nil {
		return false
	}

	proc, err := os.FindProcess(info.PID)
	if err != nil {
		return true
	}
	return proc.Signal(syscall.Signal(0)) != nil
}
