// Copyright 2025 The dirkv Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package volume implements the in-memory filesystem stored under one key:
// the inode table, path resolution, and every FS.* operation. A volume is not
// safe for concurrent use; the server serializes commands above it.
package volume

import (
	"sort"

	"github.com/dirkv/dirkv/clock"
)

// Volume is one complete filesystem tree. The inode table owns every inode;
// all other references are by id or by stored path string.
type Volume struct {
	clock clock.Clock

	nextID ID
	rootID ID
	inodes map[ID]*Inode
}

// New creates a volume holding an empty root directory.
func New(c clock.Clock) *Volume {
	v := &Volume{
		clock:  c,
		inodes: make(map[ID]*Inode),
	}
	root := v.alloc(KindDir, DefaultDirMode)
	v.rootID = root.id
	return v
}

// alloc creates an inode, assigns the next id, and stamps all three
// timestamps with the current time.
func (v *Volume) alloc(kind Kind, mode uint16) *Inode {
	v.nextID++
	now := v.clock.Now().Unix()
	n := &Inode{
		id:    v.nextID,
		kind:  kind,
		mode:  mode,
		ctime: now,
		atime: now,
		mtime: now,
	}
	if kind == KindDir {
		n.entries = make(map[string]ID)
	}
	v.inodes[n.id] = n
	return n
}

func (v *Volume) root() *Inode {
	return v.inodes[v.rootID]
}

// removeSubtree deletes an inode and, for directories, everything beneath it.
func (v *Volume) removeSubtree(id ID) {
	n := v.inodes[id]
	if n == nil {
		return
	}
	if n.kind == KindDir {
		for _, childID := range n.entries {
			v.removeSubtree(childID)
		}
	}
	delete(v.inodes, id)
}

// Empty reports whether only an empty root remains, the condition under
// which the key holding this volume is deleted.
func (v *Volume) Empty() bool {
	return len(v.inodes) == 1 && len(v.root().entries) == 0
}

// sortedNames returns a directory's entry names in lexical order so that
// listings and walks are deterministic.
func sortedNames(dir *Inode) []string {
	names := make([]string, 0, len(dir.entries))
	for name := range dir.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InfoStats is the FS.INFO summary.
type InfoStats struct {
	Files          uint64
	Directories    uint64
	Symlinks       uint64
	TotalDataBytes uint64
	TotalInodes    uint64
}

// Info scans the inode table and summarizes it.
func (v *Volume) Info() InfoStats {
	var s InfoStats
	for _, n := range v.inodes {
		s.TotalInodes++
		switch n.kind {
		case KindFile:
			s.Files++
			s.TotalDataBytes += uint64(len(n.data))
		case KindDir:
			s.Directories++
		case KindSymlink:
			s.Symlinks++
		}
	}
	return s
}
