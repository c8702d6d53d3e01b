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

// Package fs is the in-memory filesystem behind the path and handle
// syscalls. It stands in for the FAT32 daemon at the same VFS surface:
// open-or-create, read, write, list.
package fs

import (
	"sort"
	"strings"

	"github.com/tokuhirom/sabos-sub001/internal/spin"
	"github.com/tokuhirom/sabos-sub001/syserr"
)

// FS is a flat path-to-file map. One device-global lock; never held
// across a scheduler call.
type FS struct {
	mu    spin.Lock
	files map[string]*File
}

// File is one regular file. Files hang on to their data until the FS
// goes away; handles keep per-task cursors elsewhere.
type File struct {
	fs   *FS
	name string
	data []byte
}

// New returns an empty filesystem.
func New() *FS {
	return &FS{files: make(map[string]*File)}
}

// Open returns the file at path, creating it empty when absent. Paths are
// normalized to a leading slash.
func (f *FS) Open(path string) (*File, error) {
	name := normalize(path)
	if name == "/" {
		return nil, syserr.EINVAL
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if file, ok := f.files[name]; ok {
		return file, nil
	}
	// The caller's string may alias user memory; keep a private copy.
	name = strings.Clone(name)
	file := &File{fs: f, name: name}
	f.files[name] = file
	return file, nil
}

// List returns all file names, sorted.
func (f *FS) List() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// Name returns the file's absolute path.
func (fl *File) Name() string { return fl.name }

// ReadAt implements handle.Resource.
func (fl *File) ReadAt(p []byte, off int64) (int, error) {
	fl.fs.mu.Lock()
	defer fl.fs.mu.Unlock()
	if off >= int64(len(fl.data)) {
		return 0, nil
	}
	return copy(p, fl.data[off:]), nil
}

// WriteAt implements handle.Resource, growing the file as needed.
func (fl *File) WriteAt(p []byte, off int64) (int, error) {
	fl.fs.mu.Lock()
	defer fl.fs.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(fl.data)) {
		grown := make([]byte, end)
		copy(grown, fl.data)
		fl.data = grown
	}
	return copy(fl.data[off:], p), nil
}

// Size implements handle.Resource.
func (fl *File) Size() int64 {
	fl.fs.mu.Lock()
	defer fl.fs.mu.Unlock()
	return int64(len(fl.data))
}

// Close implements handle.Resource. Data stays in the FS.
func (fl *File) Close() error { return nil }
