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

// Package fserrors defines the error taxonomy shared by every filesystem
// operation. Clients pattern-match on the lowercase message substrings, so the
// wording here is part of the wire contract and must stay stable.
package fserrors

import "errors"

var (
	// ErrNotFound reports a missing path component. The file reads, STAT,
	// WC and READLINK translate it to a nil reply instead of surfacing it;
	// LS, TREE and FIND surface it.
	ErrNotFound = errors.New("path not found")

	// ErrNotAFile reports a file operation against a directory.
	ErrNotAFile = errors.New("not a file")

	// ErrNotADirectory reports a directory operation against a file or a
	// traversal through a non-directory component.
	ErrNotADirectory = errors.New("not a directory")

	// ErrNotASymlink reports READLINK against anything but a symlink.
	ErrNotASymlink = errors.New("not a symbolic link")

	// ErrExists reports a target path that already exists where the
	// operation requires it not to.
	ErrExists = errors.New("file exists")

	// ErrNotEmpty reports a non-recursive removal of a non-empty directory.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrInvalidPath reports root used where forbidden, relative paths, and
	// other illegal names.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidArgument reports malformed flags and out-of-range numbers.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDepthExceeded reports a path of more than fspath.MaxDepth components.
	ErrDepthExceeded = errors.New("path depth limit exceeded")

	// ErrSymlinkLoop reports a resolution that ran out of symlink hops.
	ErrSymlinkLoop = errors.New("too many levels of symbolic links")

	// ErrWrongType reports a key that holds a non-filesystem value. The
	// message matches the host convention verbatim, including the prefix.
	ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
)
