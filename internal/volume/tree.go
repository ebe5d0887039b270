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

// Tree renders a directory subtree in the classic tree(1) layout. Symlinks
// appear as "name -> target" and are not descended. maxDepth <= 0 means
// unlimited.
func (v *Volume) Tree(path string, maxDepth int) (string, error) {
	p, err := fspath.Normalize(path)
	if err != nil {
		return "", err
	}
	start, err := v.resolve(p, true)
	if err != nil {
		return "", err
	}
	if start.kind != KindDir {
		return "", fserrors.ErrNotADirectory
	}

	var b strings.Builder
	b.WriteString(p)
	b.WriteByte('\n')
	v.renderTree(&b, start, "", 1, maxDepth)
	return b.String(), nil
}

func (v *Volume) renderTree(b *strings.Builder, dir *Inode, prefix string, level, maxDepth int) {
	names := sortedNames(dir)
	for i, name := range names {
		child := v.inodes[dir.entries[name]]
		last := i == len(names)-1

		connector, childPrefix := "├── ", prefix+"│   "
		if last {
			connector, childPrefix = "└── ", prefix+"    "
		}

		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(name)
		if child.kind == KindSymlink {
			b.WriteString(" -> ")
			b.WriteString(child.target)
		}
		b.WriteByte('\n')

		if child.kind == KindDir && (maxDepth <= 0 || level < maxDepth) {
			v.renderTree(b, child, childPrefix, level+1, maxDepth)
		}
	}
}
