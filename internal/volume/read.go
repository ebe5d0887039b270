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

import (
	"github.com/dirkv/dirkv/internal/fserrors"
	"github.com/dirkv/dirkv/internal/fspath"
	"github.com/dirkv/dirkv/internal/lineops"
)

// resolveFile resolves a path to a file inode, following terminal symlinks.
func (v *Volume) resolveFile(path string) (*Inode, error) {
	p, err := fspath.Normalize(path)
	if err != nil {
		return nil, err
	}
	n, err := v.resolve(p, true)
	if err != nil {
		return nil, err
	}
	if n.kind != KindFile {
		return nil, fserrors.ErrNotAFile
	}
	return n, nil
}

// Cat returns a file's full content.
func (v *Volume) Cat(path string) ([]byte, error) {
	n, err := v.resolveFile(path)
	if err != nil {
		return nil, err
	}
	return n.data, nil
}

// Lines returns the 1-indexed line range start..end; end == -1 reads through
// EOF.
func (v *Volume) Lines(path string, start, end int) ([]byte, error) {
	if start < 1 || (end != -1 && end < start) {
		return nil, fserrors.ErrInvalidArgument
	}
	n, err := v.resolveFile(path)
	if err != nil {
		return nil, err
	}
	return lineops.Lines(n.data, start, end), nil
}

// Head returns the first n lines.
func (v *Volume) Head(path string, n int) ([]byte, error) {
	if n < 0 {
		return nil, fserrors.ErrInvalidArgument
	}
	f, err := v.resolveFile(path)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return lineops.Head(f.data, n), nil
}

// Tail returns the last n lines.
func (v *Volume) Tail(path string, n int) ([]byte, error) {
	if n < 0 {
		return nil, fserrors.ErrInvalidArgument
	}
	f, err := v.resolveFile(path)
	if err != nil {
		return nil, err
	}
	return lineops.Tail(f.data, n), nil
}

// WC returns line, word and byte counts for a file.
func (v *Volume) WC(path string) (lines, words, chars int, err error) {
	n, err := v.resolveFile(path)
	if err != nil {
		return 0, 0, 0, err
	}
	lines, words, chars = lineops.WC(n.data)
	return lines, words, chars, nil
}

// StatInfo is the FS.STAT field set.
type StatInfo struct {
	Type  string
	Mode  uint16
	Uid   uint32
	Gid   uint32
	Size  uint64
	Ctime int64
	Atime int64
	Mtime int64
}

// Stat returns inode metadata. Terminal symlinks are not followed.
func (v *Volume) Stat(path string) (StatInfo, error) {
	p, err := fspath.Normalize(path)
	if err != nil {
		return StatInfo{}, err
	}
	n, err := v.resolve(p, false)
	if err != nil {
		return StatInfo{}, err
	}
	return StatInfo{
		Type:  n.kind.String(),
		Mode:  n.mode,
		Uid:   n.uid,
		Gid:   n.gid,
		Size:  n.Size(),
		Ctime: n.ctime,
		Atime: n.atime,
		Mtime: n.mtime,
	}, nil
}

// Test reports whether a path resolves, without following a terminal symlink.
func (v *Volume) Test(path string) bool {
	p, err := fspath.Normalize(path)
	if err != nil {
		return false
	}
	_, err = v.resolve(p, false)
	return err == nil
}

// Readlink returns the raw stored target of a symlink.
func (v *Volume) Readlink(path string) (string, error) {
	p, err := fspath.Normalize(path)
	if err != nil {
		return "", err
	}
	n, err := v.resolve(p, false)
	if err != nil {
		return "", err
	}
	if n.kind != KindSymlink {
		return "", fserrors.ErrNotASymlink
	}
	return n.target, nil
}

// resolveDir resolves a path to a directory inode, following terminal
// symlinks so that listing through a dir symlink works.
func (v *Volume) resolveDir(path string) (*Inode, error) {
	p, err := fspath.Normalize(path)
	if err != nil {
		return nil, err
	}
	n, err := v.resolve(p, true)
	if err != nil {
		return nil, err
	}
	if n.kind != KindDir {
		return nil, fserrors.ErrNotADirectory
	}
	return n, nil
}

// Ls lists a directory's entry names in lexical order.
func (v *Volume) Ls(path string) ([]string, error) {
	dir, err := v.resolveDir(path)
	if err != nil {
		return nil, err
	}
	return sortedNames(dir), nil
}

// EntryInfo is one FS.LS LONG row.
type EntryInfo struct {
	Name  string
	Type  string
	Mode  uint16
	Size  uint64
	Mtime int64
}

// LsLong lists a directory with per-entry metadata, in lexical order.
func (v *Volume) LsLong(path string) ([]EntryInfo, error) {
	dir, err := v.resolveDir(path)
	if err != nil {
		return nil, err
	}

	out := make([]EntryInfo, 0, len(dir.entries))
	for _, name := range sortedNames(dir) {
		n := v.inodes[dir.entries[name]]
		out = append(out, EntryInfo{
			Name:  name,
			Type:  n.kind.String(),
			Mode:  n.mode,
			Size:  n.Size(),
			Mtime: n.mtime,
		})
	}
	return out, nil
}
