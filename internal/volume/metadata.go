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
	"github.com/dirkv/dirkv/internal/fspath"
)

// metaInode resolves a path for metadata changes. Like FS.STAT, terminal
// symlinks are not followed: chmod/chown/utimens on a link touch the link.
func (v *Volume) metaInode(path string) (*Inode, error) {
	p, err := fspath.Normalize(path)
	if err != nil {
		return nil, err
	}
	return v.resolve(p, false)
}

// Chmod sets the permission bits. The mode is validated by the caller.
func (v *Volume) Chmod(path string, mode uint16) error {
	n, err := v.metaInode(path)
	if err != nil {
		return err
	}
	n.mode = mode
	v.markChanged(n)
	return nil
}

// Chown sets the owner and, when hasGid is set, the group.
func (v *Volume) Chown(path string, uid uint32, gid uint32, hasGid bool) error {
	n, err := v.metaInode(path)
	if err != nil {
		return err
	}
	n.uid = uid
	if hasGid {
		n.gid = gid
	}
	v.markChanged(n)
	return nil
}

// UtimeOmit is the sentinel leaving a timestamp unchanged in Utimens.
const UtimeOmit = -1

// Utimens sets atime and mtime explicitly; either may be UtimeOmit.
func (v *Volume) Utimens(path string, atime, mtime int64) error {
	n, err := v.metaInode(path)
	if err != nil {
		return err
	}
	if atime != UtimeOmit {
		n.atime = atime
	}
	if mtime != UtimeOmit {
		n.mtime = mtime
	}
	v.markChanged(n)
	return nil
}
