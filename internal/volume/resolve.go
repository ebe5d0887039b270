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
	"strings"

	"github.com/dirkv/dirkv/internal/fserrors"
	"github.com/dirkv/dirkv/internal/fspath"
)

// maxSymlinkHops bounds symlink substitutions in one resolution: the 40th
// hop fails. One shared counter per top-level operation catches self-loops,
// A<->B cycles, and loops reached through intermediate components alike.
const maxSymlinkHops = 40

// resolve walks a normalized path and returns the target inode. Intermediate
// symlinks are always followed; a terminal symlink only when followTerminal
// is set.
func (v *Volume) resolve(p string, followTerminal bool) (*Inode, error) {
	hops := 0
	return v.walk(p, followTerminal, &hops)
}

func (v *Volume) walk(p string, followTerminal bool, hops *int) (*Inode, error) {
	comps := fspath.Components(p)
	cur := v.root()
	curPath := "/"

	for i, name := range comps {
		if cur.kind != KindDir {
			return nil, fserrors.ErrNotADirectory
		}
		childID, ok := cur.entries[name]
		if !ok {
			return nil, fserrors.ErrNotFound
		}
		child := v.inodes[childID]

		terminal := i == len(comps)-1
		if child.kind == KindSymlink && (!terminal || followTerminal) {
			rerouted, err := v.reroute(curPath, child.target, comps[i+1:], hops)
			if err != nil {
				return nil, err
			}
			return v.walk(rerouted, followTerminal, hops)
		}

		cur = child
		curPath = fspath.Join(curPath, name)
	}
	return cur, nil
}

// reroute substitutes a symlink target for the component being crossed and
// rebuilds the remaining path. It charges one hop and fails once the budget
// is spent.
func (v *Volume) reroute(linkDir, target string, rest []string, hops *int) (string, error) {
	*hops++
	if *hops >= maxSymlinkHops {
		return "", fserrors.ErrSymlinkLoop
	}

	p, err := fspath.ResolveTarget(linkDir, target)
	if err != nil {
		return "", err
	}
	if len(rest) > 0 {
		p, err = fspath.Normalize(p + "/" + strings.Join(rest, "/"))
		if err != nil {
			return "", err
		}
	}
	return p, nil
}

// walkDirCreating resolves a normalized directory path, creating missing
// components as directories with default metadata. Symlinks along the way
// are followed.
func (v *Volume) walkDirCreating(p string, hops *int) (*Inode, error) {
	comps := fspath.Components(p)
	cur := v.root()
	curPath := "/"

	for i, name := range comps {
		if cur.kind != KindDir {
			return nil, fserrors.ErrNotADirectory
		}

		childID, ok := cur.entries[name]
		if !ok {
			child := v.alloc(KindDir, DefaultDirMode)
			cur.entries[name] = child.id
			v.markModified(cur)
			cur = child
			curPath = fspath.Join(curPath, name)
			continue
		}

		child := v.inodes[childID]
		if child.kind == KindSymlink {
			rerouted, err := v.reroute(curPath, child.target, comps[i+1:], hops)
			if err != nil {
				return nil, err
			}
			return v.walkDirCreating(rerouted, hops)
		}
		if child.kind != KindDir {
			return nil, fserrors.ErrNotADirectory
		}

		cur = child
		curPath = fspath.Join(curPath, name)
	}

	if cur.kind != KindDir {
		return nil, fserrors.ErrNotADirectory
	}
	return cur, nil
}

// prepareWrite locates the slot a write-style operation targets: it creates
// missing parent directories, follows a terminal symlink to its ultimate
// location, and returns the parent directory, the final name there, and the
// existing inode in that slot (nil when the write will create it).
func (v *Volume) prepareWrite(p string) (parent *Inode, name string, existing *Inode, err error) {
	hops := 0
	cur := p
	for {
		if cur == "/" {
			return nil, "", nil, fserrors.ErrInvalidPath
		}

		parentPath := fspath.Dir(cur)
		name = fspath.Base(cur)
		parent, err = v.walkDirCreating(parentPath, &hops)
		if err != nil {
			return nil, "", nil, err
		}

		childID, ok := parent.entries[name]
		if !ok {
			return parent, name, nil, nil
		}
		child := v.inodes[childID]
		if child.kind == KindSymlink {
			cur, err = v.reroute(parentPath, child.target, nil, &hops)
			if err != nil {
				return nil, "", nil, err
			}
			continue
		}
		return parent, name, child, nil
	}
}

// markModified stamps mtime and ctime with the current time.
func (v *Volume) markModified(n *Inode) {
	now := v.clock.Now().Unix()
	n.mtime = now
	n.ctime = now
}

// markChanged stamps ctime only, for metadata-level changes.
func (v *Volume) markChanged(n *Inode) {
	n.ctime = v.clock.Now().Unix()
}
