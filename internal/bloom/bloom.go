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

// Package bloom provides the per-file q-gram filter that pre-screens content
// searches. Membership answers are conservative: a filter may claim to
// contain a gram it never saw, but never the reverse, so a negative answer
// safely skips the line scan.
//
// Grams are hashed case-folded, which widens the filter (a case-sensitive
// query can hit on a differently-cased file) but keeps the no-false-negative
// guarantee for both FS.GREP modes.
package bloom

import (
	"hash/fnv"

	"github.com/willf/bitset"
)

// QGramLength is the window size used to populate the filter. Query literals
// shorter than this cannot be screened and always pass.
const QGramLength = 3

const (
	bitsPerGram = 10
	hashCount   = 4
	minBits     = 64
)

type Filter struct {
	bits *bitset.BitSet
}

// New builds a filter over every q-gram of content.
func New(content []byte) *Filter {
	grams := 0
	if len(content) >= QGramLength {
		grams = len(content) - QGramLength + 1
	}

	m := uint(grams * bitsPerGram)
	if m < minBits {
		m = minBits
	}

	f := &Filter{bits: bitset.New(m)}
	for i := 0; i < grams; i++ {
		h1, h2 := gramHashes(content[i : i+QGramLength])
		for j := uint64(0); j < hashCount; j++ {
			f.bits.Set(uint((h1 + j*h2) % uint64(m)))
		}
	}
	return f
}

// MayContain reports whether content containing literal is possible. Literals
// shorter than QGramLength are unscreenable and report true.
func (f *Filter) MayContain(literal []byte) bool {
	if len(literal) < QGramLength {
		return true
	}

	m := uint64(f.bits.Len())
	for i := 0; i+QGramLength <= len(literal); i++ {
		h1, h2 := gramHashes(literal[i : i+QGramLength])
		for j := uint64(0); j < hashCount; j++ {
			if !f.bits.Test(uint((h1 + j*h2) % m)) {
				return false
			}
		}
	}
	return true
}

// gramHashes returns the two base hashes for double hashing, computed over
// the case-folded gram.
func gramHashes(gram []byte) (uint64, uint64) {
	h := fnv.New64a()
	for _, c := range gram {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		h.Write([]byte{c})
	}
	sum := h.Sum64()
	h1 := sum & 0xffffffff
	h2 := sum >> 32
	if h2 == 0 {
		h2 = 0x9e3779b1
	}
	return h1, h2
}
