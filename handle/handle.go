/*
 * Copyright 2025 SABOS Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package handle implements the per-task handle table: small integers
// naming kernel-owned resources. Tables are owned by one task and freed
// when it terminates; no locking is needed beyond the owner's.
package handle

import (
	"github.com/tokuhirom/sabos-sub001/syserr"
)

// Seek whence values, matching the io package.
const (
	SeekStart   = 0
	SeekCurrent = 1
	SeekEnd     = 2
)

// Resource is anything a handle can name. Implementations live at module
// boundaries (files, block ranges, IPC endpoints); the handle layer keeps
// the per-handle cursor.
type Resource interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Size() int64
	Close() error
}

type entry struct {
	res Resource
	off int64
}

// Table maps handle ids to open resources for one task.
type Table struct {
	next    int64
	entries map[int64]*entry
}

// NewTable returns an empty handle table.
func NewTable() *Table {
	return &Table{entries: make(map[int64]*entry)}
}

// Open assigns the next handle id to res.
func (t *Table) Open(res Resource) int64 {
	h := t.next
	t.next++
	t.entries[h] = &entry{res: res}
	return h
}

// Read reads from the handle's cursor, advancing it.
func (t *Table) Read(h int64, p []byte) (int, error) {
	e, ok := t.entries[h]
	if !ok {
		return 0, syserr.EBADF
	}
	n, err := e.res.ReadAt(p, e.off)
	e.off += int64(n)
	return n, err
}

// Write writes at the handle's cursor, advancing it.
func (t *Table) Write(h int64, p []byte) (int, error) {
	e, ok := t.entries[h]
	if !ok {
		return 0, syserr.EBADF
	}
	n, err := e.res.WriteAt(p, e.off)
	e.off += int64(n)
	return n, err
}

// Seek repositions the handle's cursor and returns the new offset.
func (t *Table) Seek(h int64, off int64, whence int) (int64, error) {
	e, ok := t.entries[h]
	if !ok {
		return 0, syserr.EBADF
	}
	var base int64
	switch whence {
	case SeekStart:
		base = 0
	case SeekCurrent:
		base = e.off
	case SeekEnd:
		base = e.res.Size()
	default:
		return 0, syserr.EINVAL
	}
	pos := base + off
	if pos < 0 {
		return 0, syserr.EINVAL
	}
	e.off = pos
	return pos, nil
}

// Stat returns the resource's current size.
func (t *Table) Stat(h int64) (int64, error) {
	e, ok := t.entries[h]
	if !ok {
		return 0, syserr.EBADF
	}
	return e.res.Size(), nil
}

// Close releases one handle.
func (t *Table) Close(h int64) error {
	e, ok := t.entries[h]
	if !ok {
		return syserr.EBADF
	}
	delete(t.entries, h)
	return e.res.Close()
}

// CloseAll releases every handle; called when the owning task terminates.
func (t *Table) CloseAll() {
	for h, e := range t.entries {
		delete(t.entries, h)
		e.res.Close()
	}
}

// Len returns the number of open handles.
func (t *Table) Len() int { return len(t.entries) }
