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

package store

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"

	"github.com/dirkv/dirkv/clock"
	"github.com/dirkv/dirkv/internal/volume"
)

// Snapshot file layout, inside a gzip stream: the magic, a u32 key count,
// then per key a type tag (0 string, 1 volume), the length-prefixed key name
// and the payload. Volume payloads use the volume snapshot codec; bloom
// filters are never written.
var snapshotMagic = []byte("DIRKV001")

const (
	tagString = 0
	tagVolume = 1
)

// Save writes the whole keyspace to path, atomically via a temp file rename.
func (s *Store) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dirkv-snapshot-*")
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	if err := s.encode(zw); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("closing snapshot stream: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot temp file: %w", err)
	}

	if err := os.Chmod(tmp.Name(), s.SnapshotFileMode); err != nil {
		return fmt.Errorf("setting snapshot mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("installing snapshot: %w", err)
	}
	return nil
}

func (s *Store) encode(w io.Writer) error {
	if _, err := w.Write(snapshotMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.keys))); err != nil {
		return err
	}

	names := make([]string, 0, len(s.keys))
	for key := range s.keys {
		names = append(names, key)
	}
	sort.Strings(names)

	for _, key := range names {
		e := s.keys[key]
		tag := uint8(tagString)
		if e.vol != nil {
			tag = tagVolume
		}
		if err := binary.Write(w, binary.LittleEndian, tag); err != nil {
			return err
		}
		if err := writeBytes(w, []byte(key)); err != nil {
			return err
		}
		if e.vol != nil {
			if err := e.vol.Encode(w); err != nil {
				return err
			}
			continue
		}
		if err := writeBytes(w, e.str); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the keyspace with the snapshot at path.
func Load(path string, c clock.Clock) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot stream: %w", err)
	}
	defer zr.Close()

	s := New(c)
	if err := s.decode(zr); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return s, nil
}

func (s *Store) decode(r io.Reader) error {
	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return err
	}
	if string(magic) != string(snapshotMagic) {
		return fmt.Errorf("bad magic %q", magic)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return err
	}

	for i := uint32(0); i < count; i++ {
		var tag uint8
		if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
			return err
		}
		key, err := readBytes(r)
		if err != nil {
			return err
		}

		switch tag {
		case tagVolume:
			v, err := volume.Decode(r, s.clock)
			if err != nil {
				return err
			}
			s.keys[string(key)] = &entry{vol: v}
		case tagString:
			val, err := readBytes(r)
			if err != nil {
				return err
			}
			s.keys[string(key)] = &entry{str: val}
		default:
			return fmt.Errorf("unknown entry tag %d", tag)
		}
	}
	return nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
