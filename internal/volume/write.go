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

// writableFile locates or creates the file a content write targets. Missing
// parent directories are created; terminal symlinks are followed.
func (v *Volume) writableFile(path string) (*Inode, error) {
	p, err := fspath.Normalize(path)
	if err != nil {
		return nil, err
	}

	parent, name, existing, err := v.prepareWrite(p)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		f := v.alloc(KindFile, DefaultFileMode)
		parent.entries[name] = f.id
		v.markModified(parent)
		return f, nil
	}
	if existing.kind != KindFile {
		return nil, fserrors.ErrNotAFile
	}
	return existing, nil
}

// Echo writes content to a file, overwriting by default. With appendFlag it
// behaves exactly like Append. Parents are created as needed.
func (v *Volume) Echo(path string, content []byte, appendFlag bool) error {
	f, err := v.writableFile(path)
	if err != nil {
		return err
	}
	if appendFlag {
		f.setData(append(f.data, content...))
	} else {
		f.setData(append([]byte{}, content...))
	}
	v.markModified(f)
	return nil
}

// Append appends content to a file, creating it and its parents if needed,
// and returns the new size in bytes.
func (v *Volume) Append(path string, content []byte) (int, error) {
	f, err := v.writableFile(path)
	if err != nil {
		return 0, err
	}
	f.setData(append(f.data, content...))
	v.markModified(f)
	return len(f.data), nil
}

// Touch creates an empty file (and missing parents) or, if the path already
// exists, refreshes its mtime and ctime.
func (v *Volume) Touch(path string) error {
	p, err := fspath.Normalize(path)
	if err != nil {
		return err
	}

	parent, name, existing, err := v.prepareWrite(p)
	if err != nil {
		return err
	}
	if existing == nil {
		f := v.alloc(KindFile, DefaultFileMode)
		parent.entries[name] = f.id
		v.markModified(parent)
		return nil
	}
	v.markModified(existing)
	return nil
}

// Insert places content after the given 1-indexed line; 0 prepends, -1
// appends. The file is created if absent.
func (v *Volume) Insert(path string, afterLine int, content []byte) error {
	if afterLine < -1 {
		return fserrors.ErrInvalidArgument
	}
	f, err := v.writableFile(path)
	if err != nil {
		return err
	}
	f.setData(lineops.Insert(f.data, afterLine, content))
	v.markModified(f)
	return nil
}

// DeleteLines removes the 1-indexed inclusive line range and returns how many
// lines were deleted.
func (v *Volume) DeleteLines(path string, start, end int) (int, error) {
	if start < 1 || end < start {
		return 0, fserrors.ErrInvalidArgument
	}
	f, err := v.resolveFile(path)
	if err != nil {
		return 0, err
	}
	data, deleted := lineops.DeleteLines(f.data, start, end)
	if deleted > 0 {
		f.setData(data)
		v.markModified(f)
	}
	return deleted, nil
}

// Replace substitutes old with new in a file and returns the substitution
// count. With all unset only the first occurrence is replaced; a line band
// constrains matching to lines bandStart..bandEnd.
func (v *Volume) Replace(path string, old, new []byte, all bool, hasBand bool, bandStart, bandEnd int) (int, error) {
	if len(old) == 0 {
		return 0, fserrors.ErrInvalidArgument
	}
	if hasBand && (bandStart < 1 || bandEnd < bandStart) {
		return 0, fserrors.ErrInvalidArgument
	}
	f, err := v.resolveFile(path)
	if err != nil {
		return 0, err
	}
	data, count := lineops.Replace(f.data, old, new, all, hasBand, bandStart, bandEnd)
	if count > 0 {
		f.setData(data)
		v.markModified(f)
	}
	return count, nil
}

// Truncate resizes a file: shrinking discards bytes, extending zero-pads.
func (v *Volume) Truncate(path string, length int64) error {
	if length < 0 {
		return fserrors.ErrInvalidArgument
	}
	f, err := v.resolveFile(path)
	if err != nil {
		return err
	}

	data := f.data
	if int64(len(data)) > length {
		data = append([]byte{}, data[:length]...)
	} else {
		grown := make([]byte, length)
		copy(grown, data)
		data = grown
	}
	f.setData(data)
	v.markModified(f)
	return nil
}
