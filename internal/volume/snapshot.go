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
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/dirkv/dirkv/clock"
)

// The snapshot codec round-trips every observable inode field: kind, mode,
// uid, gid, all three timestamps, file bytes, directory entries and raw
// symlink targets. Bloom filters are derived state and are not written;
// they rebuild on first use after a load.
//
// Layout: little-endian fixed-width integers, byte strings length-prefixed
// with u32.

type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) u8(x uint8)   { s.write(x) }
func (s *stickyWriter) u16(x uint16) { s.write(x) }
func (s *stickyWriter) u32(x uint32) { s.write(x) }
func (s *stickyWriter) u64(x uint64) { s.write(x) }
func (s *stickyWriter) i64(x int64)  { s.write(x) }

func (s *stickyWriter) write(x any) {
	if s.err == nil {
		s.err = binary.Write(s.w, binary.LittleEndian, x)
	}
}

func (s *stickyWriter) bytes(b []byte) {
	s.u32(uint32(len(b)))
	if s.err == nil {
		_, s.err = s.w.Write(b)
	}
}

type stickyReader struct {
	r   io.Reader
	err error
}

func (s *stickyReader) u8() (x uint8)   { s.read(&x); return }
func (s *stickyReader) u16() (x uint16) { s.read(&x); return }
func (s *stickyReader) u32() (x uint32) { s.read(&x); return }
func (s *stickyReader) u64() (x uint64) { s.read(&x); return }
func (s *stickyReader) i64() (x int64)  { s.read(&x); return }

func (s *stickyReader) read(x any) {
	if s.err == nil {
		s.err = binary.Read(s.r, binary.LittleEndian, x)
	}
}

func (s *stickyReader) bytes() []byte {
	n := s.u32()
	if s.err != nil || n == 0 {
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(s.r, b); err != nil {
		s.err = err
		return nil
	}
	return b
}

// Encode writes the volume in snapshot form. Inodes are written in id order
// and directory entries in name order, so equal volumes encode identically.
func (v *Volume) Encode(w io.Writer) error {
	s := &stickyWriter{w: w}
	s.u64(uint64(v.nextID))
	s.u64(uint64(v.rootID))
	s.u64(uint64(len(v.inodes)))

	ids := make([]ID, 0, len(v.inodes))
	for id := range v.inodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		n := v.inodes[id]
		s.u64(uint64(n.id))
		s.u8(uint8(n.kind))
		s.u16(n.mode)
		s.u32(n.uid)
		s.u32(n.gid)
		s.i64(n.ctime)
		s.i64(n.atime)
		s.i64(n.mtime)

		switch n.kind {
		case KindFile:
			s.bytes(n.data)
		case KindDir:
			s.u32(uint32(len(n.entries)))
			for _, name := range sortedNames(n) {
				s.bytes([]byte(name))
				s.u64(uint64(n.entries[name]))
			}
		case KindSymlink:
			s.bytes([]byte(n.target))
		}
	}
	return s.err
}

// Decode reads a volume previously written by Encode.
func Decode(r io.Reader, c clock.Clock) (*Volume, error) {
	s := &stickyReader{r: r}
	v := &Volume{
		clock:  c,
		inodes: make(map[ID]*Inode),
	}
	v.nextID = ID(s.u64())
	v.rootID = ID(s.u64())
	count := s.u64()

	for i := uint64(0); i < count && s.err == nil; i++ {
		n := &Inode{
			id:    ID(s.u64()),
			kind:  Kind(s.u8()),
			mode:  s.u16(),
			uid:   s.u32(),
			gid:   s.u32(),
			ctime: s.i64(),
			atime: s.i64(),
			mtime: s.i64(),
		}

		switch n.kind {
		case KindFile:
			n.data = s.bytes()
		case KindDir:
			entryCount := s.u32()
			n.entries = make(map[string]ID, entryCount)
			for j := uint32(0); j < entryCount && s.err == nil; j++ {
				name := string(s.bytes())
				n.entries[name] = ID(s.u64())
			}
		case KindSymlink:
			n.target = string(s.bytes())
		default:
			return nil, fmt.Errorf("snapshot: unknown inode kind %d", n.kind)
		}
		v.inodes[n.id] = n
	}
	if s.err != nil {
		return nil, fmt.Errorf("snapshot: %w", s.err)
	}

	root, ok := v.inodes[v.rootID]
	if !ok || root.kind != KindDir {
		return nil, fmt.Errorf("snapshot: missing or non-directory root inode %d", v.rootID)
	}
	return v, nil
}
