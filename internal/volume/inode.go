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

package volume

import "github.com/dirkv/dirkv/internal/bloom"

// ID identifies an inode within its volume. IDs are allocated monotonically
// and never reused.
type ID uint64

type Kind uint8

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	}
	return "unknown"
}

// Default modes for newly created inodes.
const (
	DefaultFileMode    = 0644
	DefaultDirMode     = 0755
	DefaultSymlinkMode = 0777
)

// Inode is the metadata record for one file, directory or symlink. Inodes are
// owned by the volume's table and referenced by id: directory entries hold
// ids, never pointers, and symlink targets are stored path strings, so
// deleting a target can never dangle a reference.
type Inode struct {
	id   ID
	kind Kind

	/////////////////////////
	// Metadata
	/////////////////////////

	// mode holds the low 12 permission bits only; the kind is not encoded
	// here.
	mode uint16
	uid  uint32
	gid  uint32

	// Seconds since epoch.
	ctime int64
	atime int64
	mtime int64

	/////////////////////////
	// Per-kind payload
	/////////////////////////

	// entries maps child name to inode id. Non-nil iff kind == KindDir.
	entries map[string]ID

	// data is the file content. Only meaningful for KindFile.
	data []byte

	// filter is the derived content filter for data. nil until a search
	// needs it; reset to nil on every content change and never persisted.
	filter *bloom.Filter

	// target is the raw symlink target, stored verbatim at creation.
	target string
}

func (n *Inode) ID() ID       { return n.id }
func (n *Inode) Kind() Kind   { return n.kind }
func (n *Inode) Mode() uint16 { return n.mode }
func (n *Inode) Uid() uint32  { return n.uid }
func (n *Inode) Gid() uint32  { return n.gid }

// Size reports the inode size the way FS.STAT does: byte length for files,
// entry count for directories, target length for symlinks.
func (n *Inode) Size() uint64 {
	switch n.kind {
	case KindFile:
		return uint64(len(n.data))
	case KindDir:
		return uint64(len(n.entries))
	default:
		return uint64(len(n.target))
	}
}

// Target returns the stored symlink target, verbatim.
func (n *Inode) Target() string { return n.target }

// setData replaces file content and drops the derived filter.
func (n *Inode) setData(data []byte) {
	n.data = data
	n.filter = nil
}

// contentFilter returns the inode's bloom filter, building it on first use.
func (n *Inode) contentFilter() *bloom.Filter {
	if n.filter == nil {
		n.filter = bloom.New(n.data)
	}
	return n.filter
}
