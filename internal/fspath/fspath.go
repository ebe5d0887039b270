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

// Package fspath canonicalizes the virtual absolute paths used by the
// filesystem volume. It is purely lexical: no inode is consulted.
package fspath

import (
	"strings"

	"github.com/dirkv/dirkv/internal/fserrors"
)

// MaxDepth is the maximum number of components in a normalized path, not
// counting the leading slash.
const MaxDepth = 256

// Normalize canonicalizes an absolute path: collapses slash runs, drops "."
// components, resolves ".." lexically (".." at root stays at root), and
// discards a trailing slash. Relative input fails with ErrInvalidPath; more
// than MaxDepth components after normalization fails with ErrDepthExceeded.
func Normalize(p string) (string, error) {
	if p == "" || p[0] != '/' {
		return "", fserrors.ErrInvalidPath
	}

	var stack []string
	for _, comp := range strings.Split(p, "/") {
		switch comp {
		case "", ".":
			// Slash runs and "." are no-ops.
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, comp)
		}
	}

	if len(stack) > MaxDepth {
		return "", fserrors.ErrDepthExceeded
	}
	if len(stack) == 0 {
		return "/", nil
	}
	return "/" + strings.Join(stack, "/"), nil
}

// ResolveTarget normalizes a symlink target. Absolute targets stand alone;
// relative targets are resolved against the directory containing the link.
func ResolveTarget(linkDir, target string) (string, error) {
	if target == "" {
		return "", fserrors.ErrInvalidPath
	}
	if target[0] == '/' {
		return Normalize(target)
	}
	return Normalize(linkDir + "/" + target)
}

// Components splits a normalized path into its parts. The root has none.
func Components(p string) []string {
	if p == "/" || p == "" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// Base returns the final component of a normalized path; "/" for the root.
func Base(p string) string {
	if p == "/" || p == "" {
		return "/"
	}
	return p[strings.LastIndexByte(p, '/')+1:]
}

// Dir returns the parent of a normalized path; the parent of "/" is "/".
func Dir(p string) string {
	if p == "/" || p == "" {
		return "/"
	}
	i := strings.LastIndexByte(p, '/')
	if i == 0 {
		return "/"
	}
	return p[:i]
}

// Join appends a child name to a normalized directory path.
func Join(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
