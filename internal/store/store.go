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

// Package store implements the keyspace: each key holds either a filesystem
// volume or a plain string value. The store itself is not synchronized; the
// server serializes commands above it, mirroring a single-threaded command
// dispatcher.
package store

import (
	"os"

	"github.com/dirkv/dirkv/clock"
	"github.com/dirkv/dirkv/internal/fserrors"
	"github.com/dirkv/dirkv/internal/volume"
)

type entry struct {
	// Exactly one of vol and str is meaningful; vol == nil means string.
	vol *volume.Volume
	str []byte
}

type Store struct {
	clock clock.Clock
	keys  map[string]*entry

	// SnapshotFileMode is applied to the snapshot file Save installs.
	SnapshotFileMode os.FileMode
}

func New(c clock.Clock) *Store {
	return &Store{
		clock:            c,
		keys:             make(map[string]*entry),
		SnapshotFileMode: 0644,
	}
}

// View returns the volume under key for a read-only command. Absent keys
// return (nil, nil); keys holding another type fail with ErrWrongType.
func (s *Store) View(key string) (*volume.Volume, error) {
	e, ok := s.keys[key]
	if !ok {
		return nil, nil
	}
	if e.vol == nil {
		return nil, fserrors.ErrWrongType
	}
	return e.vol, nil
}

// Acquire returns the volume under key for a mutating command, materializing
// an empty volume when the key is absent.
func (s *Store) Acquire(key string) (*volume.Volume, error) {
	e, ok := s.keys[key]
	if !ok {
		e = &entry{vol: volume.New(s.clock)}
		s.keys[key] = e
		return e.vol, nil
	}
	if e.vol == nil {
		return nil, fserrors.ErrWrongType
	}
	return e.vol, nil
}

// Reap deletes key if its volume has shrunk back to an empty root. Called
// after every command that can remove inodes, so the key lifecycle invariant
// holds: a live key never holds an empty tree.
func (s *Store) Reap(key string) {
	if e, ok := s.keys[key]; ok && e.vol != nil && e.vol.Empty() {
		delete(s.keys, key)
	}
}

// Set stores a plain string value, replacing anything under key.
func (s *Store) Set(key string, value []byte) {
	s.keys[key] = &entry{str: value}
}

// Get returns a string value. Absent keys return (nil, false, nil); a volume
// under the key fails with ErrWrongType.
func (s *Store) Get(key string) ([]byte, bool, error) {
	e, ok := s.keys[key]
	if !ok {
		return nil, false, nil
	}
	if e.vol != nil {
		return nil, false, fserrors.ErrWrongType
	}
	return e.str, true, nil
}

// Del removes keys of any type and reports how many existed.
func (s *Store) Del(keys ...string) int {
	n := 0
	for _, key := range keys {
		if _, ok := s.keys[key]; ok {
			delete(s.keys, key)
			n++
		}
	}
	return n
}

// Exists reports how many of the given keys exist, counting duplicates the
// way the host does.
func (s *Store) Exists(keys ...string) int {
	n := 0
	for _, key := range keys {
		if _, ok := s.keys[key]; ok {
			n++
		}
	}
	return n
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	return len(s.keys)
}
