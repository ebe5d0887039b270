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
	"errors"
	"fmt"
	"strings"

	"github.com/dirkv/dirkv/internal/fserrors"
	"github.com/dirkv/dirkv/internal/fspath"
)

// Mkdir creates a directory. Without parents a missing ancestor is an error
// and an existing target is an error; with parents ancestors are created and
// an existing directory is accepted.
func (v *Volume) Mkdir(path string, parents bool) error {
	p, err := fspath.Normalize(path)
	if err != nil {
		return err
	}
	if p == "/" {
		if parents {
			return nil
		}
		return fserrors.ErrExists
	}

	if parents {
		hops := 0
		_, err = v.walkDirCreating(p, &hops)
		return err
	}

	parent, err := v.resolve(fspath.Dir(p), true)
	if err != nil {
		return err
	}
	if parent.kind != KindDir {
		return fserrors.ErrNotADirectory
	}
	name := fspath.Base(p)
	if _, ok := parent.entries[name]; ok {
		return fserrors.ErrExists
	}

	dir := v.alloc(KindDir, DefaultDirMode)
	parent.entries[name] = dir.id
	v.markModified(parent)
	return nil
}

// Rm removes a path and returns 1, or 0 if nothing was there. Terminal
// symlinks are not followed: removing a link removes the link. A non-empty
// directory requires recursive.
func (v *Volume) Rm(path string, recursive bool) (int, error) {
	p, err := fspath.Normalize(path)
	if err != nil {
		return 0, err
	}
	if p == "/" {
		return 0, fserrors.ErrInvalidPath
	}

	parent, err := v.resolve(fspath.Dir(p), true)
	if err != nil {
		if errors.Is(err, fserrors.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if parent.kind != KindDir {
		return 0, fserrors.ErrNotADirectory
	}

	name := fspath.Base(p)
	id, ok := parent.entries[name]
	if !ok {
		return 0, nil
	}
	n := v.inodes[id]
	if n.kind == KindDir && len(n.entries) > 0 && !recursive {
		return 0, fserrors.ErrNotEmpty
	}

	v.removeSubtree(id)
	delete(parent.entries, name)
	v.markModified(parent)
	return 1, nil
}

// Cp copies src to dst, which must not exist. Symlinks are copied as links;
// directories require recursive. All metadata, including timestamps, is
// preserved on every copied inode.
func (v *Volume) Cp(src, dst string, recursive bool) error {
	sp, err := fspath.Normalize(src)
	if err != nil {
		return err
	}
	dp, err := fspath.Normalize(dst)
	if err != nil {
		return err
	}

	srcN, err := v.resolve(sp, false)
	if err != nil {
		return err
	}
	if srcN.kind == KindDir && !recursive {
		return fmt.Errorf("%w: source is a directory (RECURSIVE required)", fserrors.ErrInvalidArgument)
	}
	if dp == "/" {
		return fserrors.ErrExists
	}
	if _, err := v.resolve(dp, false); err == nil {
		return fserrors.ErrExists
	}

	hops := 0
	parent, err := v.walkDirCreating(fspath.Dir(dp), &hops)
	if err != nil {
		return err
	}
	name := fspath.Base(dp)
	if _, ok := parent.entries[name]; ok {
		return fserrors.ErrExists
	}

	clone := v.cloneSubtree(srcN)
	parent.entries[name] = clone.id
	v.markModified(parent)
	return nil
}

// cloneSubtree deep-copies an inode tree, allocating fresh ids but preserving
// every metadata field.
func (v *Volume) cloneSubtree(n *Inode) *Inode {
	v.nextID++
	c := &Inode{
		id:     v.nextID,
		kind:   n.kind,
		mode:   n.mode,
		uid:    n.uid,
		gid:    n.gid,
		ctime:  n.ctime,
		atime:  n.atime,
		mtime:  n.mtime,
		target: n.target,
	}
	if n.kind == KindFile {
		c.data = append([]byte{}, n.data...)
	}
	if n.kind == KindDir {
		c.entries = make(map[string]ID, len(n.entries))
		for name, childID := range n.entries {
			c.entries[name] = v.cloneSubtree(v.inodes[childID]).id
		}
	}
	v.inodes[c.id] = c
	return c
}

// Mv moves src to dst. The root cannot move, dst must not exist, and a
// directory cannot move into its own subtree; all checks precede any
// mutation.
func (v *Volume) Mv(src, dst string) error {
	sp, err := fspath.Normalize(src)
	if err != nil {
		return err
	}
	dp, err := fspath.Normalize(dst)
	if err != nil {
		return err
	}
	if sp == "/" {
		return fserrors.ErrInvalidPath
	}
	if dp == sp {
		return fserrors.ErrExists
	}
	if strings.HasPrefix(dp, sp+"/") {
		return fmt.Errorf("%w: cannot move a directory into its own subtree", fserrors.ErrInvalidArgument)
	}

	srcParent, err := v.resolve(fspath.Dir(sp), true)
	if err != nil {
		return err
	}
	if srcParent.kind != KindDir {
		return fserrors.ErrNotADirectory
	}
	srcName := fspath.Base(sp)
	id, ok := srcParent.entries[srcName]
	if !ok {
		return fserrors.ErrNotFound
	}

	if _, err := v.resolve(dp, false); err == nil {
		return fserrors.ErrExists
	}

	hops := 0
	dstParent, err := v.walkDirCreating(fspath.Dir(dp), &hops)
	if err != nil {
		return err
	}
	dstName := fspath.Base(dp)
	if _, ok := dstParent.entries[dstName]; ok {
		return fserrors.ErrExists
	}

	delete(srcParent.entries, srcName)
	dstParent.entries[dstName] = id
	v.markModified(srcParent)
	v.markModified(dstParent)
	v.markChanged(v.inodes[id])
	return nil
}

// Ln creates a symlink at linkPath storing target verbatim: the target may
// be relative, may dangle, and is never normalized.
func (v *Volume) Ln(target, linkPath string) error {
	if target == "" {
		return fserrors.ErrInvalidArgument
	}
	lp, err := fspath.Normalize(linkPath)
	if err != nil {
		return err
	}
	if lp == "/" {
		return fserrors.ErrInvalidPath
	}

	if _, err := v.resolve(lp, false); err == nil {
		return fserrors.ErrExists
	}

	hops := 0
	parent, err := v.walkDirCreating(fspath.Dir(lp), &hops)
	if err != nil {
		return err
	}
	name := fspath.Base(lp)
	if _, ok := parent.entries[name]; ok {
		return fserrors.ErrExists
	}

	link := v.alloc(KindSymlink, DefaultSymlinkMode)
	link.target = target
	parent.entries[name] = link.id
	v.markModified(parent)
	return nil
}
