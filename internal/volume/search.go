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
	"bytes"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/dirkv/dirkv/internal/bloom"
	"github.com/dirkv/dirkv/internal/fserrors"
	"github.com/dirkv/dirkv/internal/fspath"
)

// BinaryMatchText is the pseudo-line reported for binary files in Grep.
const BinaryMatchText = "Binary file matches"

func compileGlob(pattern string) (glob.Glob, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: bad pattern %q", fserrors.ErrInvalidArgument, pattern)
	}
	return g, nil
}

// Find returns the absolute paths of all descendants of path whose basename
// matches the glob pattern, optionally restricted to one inode kind
// (typeFilter "file", "dir" or "link"; empty means all). Symlinked
// directories are listed but not descended.
func (v *Volume) Find(path, pattern, typeFilter string) ([]string, error) {
	var want Kind
	hasWant := true
	switch typeFilter {
	case "":
		hasWant = false
	case "file":
		want = KindFile
	case "dir":
		want = KindDir
	case "link":
		want = KindSymlink
	default:
		return nil, fmt.Errorf("%w: unknown TYPE %q", fserrors.ErrInvalidArgument, typeFilter)
	}

	g, err := compileGlob(pattern)
	if err != nil {
		return nil, err
	}

	p, err := fspath.Normalize(path)
	if err != nil {
		return nil, err
	}
	start, err := v.resolve(p, true)
	if err != nil {
		return nil, err
	}
	if start.kind != KindDir {
		return nil, fserrors.ErrNotADirectory
	}

	var out []string
	var walk func(dirPath string, dir *Inode)
	walk = func(dirPath string, dir *Inode) {
		for _, name := range sortedNames(dir) {
			child := v.inodes[dir.entries[name]]
			childPath := fspath.Join(dirPath, name)
			if g.Match(name) && (!hasWant || child.kind == want) {
				out = append(out, childPath)
			}
			if child.kind == KindDir {
				walk(childPath, child)
			}
		}
	}
	walk(p, start)
	return out, nil
}

// GrepMatch is one FS.GREP hit.
type GrepMatch struct {
	Path string
	Line int
	Text []byte
}

// Grep scans every file under path (or path itself, if it is a file) and
// returns the lines whose content matches the glob pattern. Binary files are
// reported once with line 0 and BinaryMatchText. Each file's bloom filter is
// consulted before its lines are scanned.
func (v *Volume) Grep(path, pattern string, nocase bool) ([]GrepMatch, error) {
	matchPattern := pattern
	if nocase {
		matchPattern = strings.ToLower(pattern)
	}
	g, err := compileGlob(matchPattern)
	if err != nil {
		return nil, err
	}
	literals := patternLiterals(pattern)

	p, err := fspath.Normalize(path)
	if err != nil {
		return nil, err
	}
	start, err := v.resolve(p, true)
	if err != nil {
		return nil, err
	}

	var out []GrepMatch
	scanFile := func(filePath string, f *Inode) {
		filter := f.contentFilter()
		for _, lit := range literals {
			if !filter.MayContain(lit) {
				return
			}
		}

		binary := bytes.IndexByte(f.data, 0) >= 0
		lineno := 0
		for off := 0; off < len(f.data); {
			lineno++
			line := f.data[off:]
			if i := bytes.IndexByte(line, '\n'); i >= 0 {
				line = line[:i]
				off += i + 1
			} else {
				off = len(f.data)
			}

			cand := string(line)
			if nocase {
				cand = strings.ToLower(cand)
			}
			if !g.Match(cand) {
				continue
			}
			if binary {
				out = append(out, GrepMatch{Path: filePath, Line: 0, Text: []byte(BinaryMatchText)})
				return
			}
			out = append(out, GrepMatch{Path: filePath, Line: lineno, Text: line})
		}
	}

	var walk func(dirPath string, dir *Inode)
	walk = func(dirPath string, dir *Inode) {
		for _, name := range sortedNames(dir) {
			child := v.inodes[dir.entries[name]]
			childPath := fspath.Join(dirPath, name)
			switch child.kind {
			case KindFile:
				scanFile(childPath, child)
			case KindDir:
				walk(childPath, child)
			}
		}
	}

	switch start.kind {
	case KindFile:
		scanFile(p, start)
	case KindDir:
		walk(p, start)
	default:
		return nil, fserrors.ErrNotAFile
	}
	return out, nil
}

// patternLiterals extracts the literal byte runs of a glob pattern that are
// long enough to probe the bloom filter. A pattern with no such run cannot be
// screened and scans every file.
func patternLiterals(pattern string) [][]byte {
	var runs [][]byte
	var cur []byte
	flush := func() {
		if len(cur) >= bloom.QGramLength {
			runs = append(runs, cur)
		}
		cur = nil
	}

	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '\\':
			if i+1 < len(pattern) {
				i++
				cur = append(cur, pattern[i])
			}
		case '*', '?':
			flush()
		case '[':
			flush()
			for i++; i < len(pattern) && pattern[i] != ']'; i++ {
			}
		default:
			cur = append(cur, c)
		}
	}
	flush()
	return runs
}
