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
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dirkv/dirkv/clock"
	"github.com/dirkv/dirkv/internal/fserrors"
)

type VolumeTest struct {
	suite.Suite
	clock *clock.SimulatedClock
	v     *Volume
}

func TestVolumeSuite(t *testing.T) {
	suite.Run(t, new(VolumeTest))
}

func (t *VolumeTest) SetupTest() {
	t.clock = clock.NewSimulatedClock(time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC))
	t.v = New(t.clock)
}

func (t *VolumeTest) mustEcho(path, content string) {
	t.Require().NoError(t.v.Echo(path, []byte(content), false))
}

func (t *VolumeTest) cat(path string) string {
	data, err := t.v.Cat(path)
	t.Require().NoError(err)
	return string(data)
}

////////////////////////////////////////////////////////////////////////
// Echo / Cat
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestEchoCatRoundTrip() {
	t.mustEcho("/hello.txt", "Hello, world!")
	t.Equal("Hello, world!", t.cat("/hello.txt"))

	// Overwrite replaces content.
	t.mustEcho("/hello.txt", "Replaced")
	t.Equal("Replaced", t.cat("/hello.txt"))

	// Empty file.
	t.mustEcho("/empty.txt", "")
	t.Equal("", t.cat("/empty.txt"))
}

func (t *VolumeTest) TestEchoBinarySafe() {
	data := []byte{0x00, 0x01, 0x02, 0xff}
	t.Require().NoError(t.v.Echo("/bin.dat", data, false))

	got, err := t.v.Cat("/bin.dat")

	t.Require().NoError(err)
	t.Equal(data, got)
}

func (t *VolumeTest) TestCatAbsentPath() {
	_, err := t.v.Cat("/nope.txt")

	t.ErrorIs(err, fserrors.ErrNotFound)
}

func (t *VolumeTest) TestEchoToRootFails() {
	err := t.v.Echo("/", []byte("bad"), false)

	t.ErrorIs(err, fserrors.ErrInvalidPath)
}

func (t *VolumeTest) TestEchoAutoCreatesParents() {
	t.mustEcho("/a/b/c/deep.txt", "deep")

	t.Equal("deep", t.cat("/a/b/c/deep.txt"))
	t.True(t.v.Test("/a"))
	t.True(t.v.Test("/a/b"))
	t.True(t.v.Test("/a/b/c"))
}

func (t *VolumeTest) TestEchoAppendFlag() {
	t.mustEcho("/append.txt", "hello")

	t.Require().NoError(t.v.Echo("/append.txt", []byte(" world"), true))

	t.Equal("hello world", t.cat("/append.txt"))

	// APPEND creates the file if absent.
	t.Require().NoError(t.v.Echo("/new-append.txt", []byte("created"), true))
	t.Equal("created", t.cat("/new-append.txt"))
}

func (t *VolumeTest) TestEchoToDirectoryFails() {
	t.Require().NoError(t.v.Mkdir("/adir", false))

	t.ErrorIs(t.v.Echo("/adir", []byte("bad"), false), fserrors.ErrNotAFile)
	t.ErrorIs(t.v.Echo("/adir", []byte("bad"), true), fserrors.ErrNotAFile)
}

func (t *VolumeTest) TestCatOnDirectoryFails() {
	t.Require().NoError(t.v.Mkdir("/mydir", false))

	_, err := t.v.Cat("/mydir")

	t.ErrorIs(err, fserrors.ErrNotAFile)
}

////////////////////////////////////////////////////////////////////////
// Append
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestAppendGrowsFile() {
	size, err := t.v.Append("/log.txt", []byte("line1\n"))
	t.Require().NoError(err)
	t.Equal(6, size)

	size, err = t.v.Append("/log.txt", []byte("line2\n"))
	t.Require().NoError(err)
	t.Equal(12, size)

	t.Equal("line1\nline2\n", t.cat("/log.txt"))
}

func (t *VolumeTest) TestAppendAutoCreatesParents() {
	_, err := t.v.Append("/a/b/c.txt", []byte("data"))

	t.Require().NoError(err)
	t.Equal("data", t.cat("/a/b/c.txt"))
}

func (t *VolumeTest) TestAppendToDirectoryFails() {
	t.Require().NoError(t.v.Mkdir("/mydir", false))

	_, err := t.v.Append("/mydir", []byte("bad"))

	t.ErrorIs(err, fserrors.ErrNotAFile)
}

////////////////////////////////////////////////////////////////////////
// Touch
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestTouchCreatesEmptyFile() {
	t.Require().NoError(t.v.Touch("/new.txt"))

	t.Equal("", t.cat("/new.txt"))
}

func (t *VolumeTest) TestTouchUpdatesMtime() {
	t.mustEcho("/ts.txt", "data")
	before, err := t.v.Stat("/ts.txt")
	t.Require().NoError(err)

	t.clock.AdvanceTime(2 * time.Second)
	t.Require().NoError(t.v.Touch("/ts.txt"))

	after, err := t.v.Stat("/ts.txt")
	t.Require().NoError(err)
	t.Greater(after.Mtime, before.Mtime)
	t.Equal("data", t.cat("/ts.txt"))
}

func (t *VolumeTest) TestTouchAutoCreatesParents() {
	t.Require().NoError(t.v.Touch("/a/b/c.txt"))

	t.True(t.v.Test("/a/b/c.txt"))
}

////////////////////////////////////////////////////////////////////////
// Insert
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestInsert() {
	t.mustEcho("/test.txt", "line 1\nline 2\nline 3")

	t.Require().NoError(t.v.Insert("/test.txt", 1, []byte("inserted")))

	t.Equal("line 1\ninserted\nline 2\nline 3", t.cat("/test.txt"))
}

func (t *VolumeTest) TestInsertCreatesAbsentFile() {
	t.Require().NoError(t.v.Insert("/newfile.txt", 0, []byte("created")))

	t.Equal("created", t.cat("/newfile.txt"))

	st, err := t.v.Stat("/newfile.txt")
	t.Require().NoError(err)
	t.Equal(uint16(DefaultFileMode), st.Mode)
	t.Equal(uint32(0), st.Uid)
}

func (t *VolumeTest) TestInsertInvalidLine() {
	t.mustEcho("/test.txt", "x")

	t.ErrorIs(t.v.Insert("/test.txt", -5, []byte("bad")), fserrors.ErrInvalidArgument)
}

func (t *VolumeTest) TestInsertIntoDirectoryFails() {
	t.Require().NoError(t.v.Mkdir("/mydir", false))

	t.ErrorIs(t.v.Insert("/mydir", 0, []byte("bad")), fserrors.ErrNotAFile)
}

////////////////////////////////////////////////////////////////////////
// Line reads
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestLinesRange() {
	var parts []string
	for i := 1; i <= 10; i++ {
		parts = append(parts, fmt.Sprintf("line %d", i))
	}
	t.mustEcho("/test.txt", strings.Join(parts, "\n"))

	got, err := t.v.Lines("/test.txt", 2, 4)
	t.Require().NoError(err)
	t.Equal("line 2\nline 3\nline 4", string(got))

	got, err = t.v.Lines("/test.txt", 8, -1)
	t.Require().NoError(err)
	t.Equal("line 8\nline 9\nline 10", string(got))

	got, err = t.v.Lines("/test.txt", 100, 200)
	t.Require().NoError(err)
	t.Empty(got)
}

func (t *VolumeTest) TestLinesInvalidArguments() {
	t.mustEcho("/test.txt", "x")

	_, err := t.v.Lines("/test.txt", 0, 5)
	t.ErrorIs(err, fserrors.ErrInvalidArgument)

	_, err = t.v.Lines("/test.txt", -5, 10)
	t.ErrorIs(err, fserrors.ErrInvalidArgument)

	_, err = t.v.Lines("/test.txt", 4, 2)
	t.ErrorIs(err, fserrors.ErrInvalidArgument)
}

func (t *VolumeTest) TestLinesOnDirectoryFails() {
	t.Require().NoError(t.v.Mkdir("/mydir", false))

	_, err := t.v.Lines("/mydir", 1, 5)

	t.ErrorIs(err, fserrors.ErrNotAFile)
}

func (t *VolumeTest) TestHeadTail() {
	var parts []string
	for i := 1; i <= 20; i++ {
		parts = append(parts, fmt.Sprintf("line %d", i))
	}
	content := strings.Join(parts, "\n")
	t.mustEcho("/test.txt", content)

	got, err := t.v.Head("/test.txt", 10)
	t.Require().NoError(err)
	t.Equal(strings.Join(parts[:10], "\n"), string(got))

	got, err = t.v.Tail("/test.txt", 5)
	t.Require().NoError(err)
	t.Equal(strings.Join(parts[15:], "\n"), string(got))

	got, err = t.v.Head("/test.txt", 100)
	t.Require().NoError(err)
	t.Equal(content, string(got))

	got, err = t.v.Head("/test.txt", 0)
	t.Require().NoError(err)
	t.Empty(got)

	_, err = t.v.Head("/test.txt", -5)
	t.ErrorIs(err, fserrors.ErrInvalidArgument)

	_, err = t.v.Tail("/test.txt", -5)
	t.ErrorIs(err, fserrors.ErrInvalidArgument)
}

////////////////////////////////////////////////////////////////////////
// DeleteLines / Replace
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestDeleteLines() {
	t.mustEcho("/t.txt", "line 1\nline 2\nline 3\nline 4\nline 5")

	deleted, err := t.v.DeleteLines("/t.txt", 2, 3)

	t.Require().NoError(err)
	t.Equal(2, deleted)
	t.Equal("line 1\nline 4\nline 5", t.cat("/t.txt"))
}

func (t *VolumeTest) TestDeleteLinesValidation() {
	t.mustEcho("/t.txt", "a\nb")

	_, err := t.v.DeleteLines("/t.txt", 0, 5)
	t.ErrorIs(err, fserrors.ErrInvalidArgument)

	_, err = t.v.DeleteLines("/t.txt", 3, 1)
	t.ErrorIs(err, fserrors.ErrInvalidArgument)

	deleted, err := t.v.DeleteLines("/t.txt", 100, 200)
	t.Require().NoError(err)
	t.Equal(0, deleted)
}

func (t *VolumeTest) TestReplace() {
	t.mustEcho("/m.txt", "foo bar foo baz foo")

	count, err := t.v.Replace("/m.txt", []byte("foo"), []byte("X"), true, false, 0, 0)

	t.Require().NoError(err)
	t.Equal(3, count)
	t.Equal("X bar X baz X", t.cat("/m.txt"))
}

func (t *VolumeTest) TestReplaceFirstOnly() {
	t.mustEcho("/m.txt", "foo bar foo")

	count, err := t.v.Replace("/m.txt", []byte("foo"), []byte("X"), false, false, 0, 0)

	t.Require().NoError(err)
	t.Equal(1, count)
	t.Equal("X bar foo", t.cat("/m.txt"))
}

func (t *VolumeTest) TestReplaceEmptyOldFails() {
	t.mustEcho("/m.txt", "x")

	_, err := t.v.Replace("/m.txt", nil, []byte("prefix"), false, false, 0, 0)

	t.ErrorIs(err, fserrors.ErrInvalidArgument)
}

func (t *VolumeTest) TestReplaceLineBand() {
	t.mustEcho("/lines.txt", "line 1 foo\nline 2 foo\nline 3 foo\nline 4 foo")

	count, err := t.v.Replace("/lines.txt", []byte("foo"), []byte("BAR"), true, true, 2, 3)

	t.Require().NoError(err)
	t.Equal(2, count)
	t.Equal("line 1 foo\nline 2 BAR\nline 3 BAR\nline 4 foo", t.cat("/lines.txt"))
}

////////////////////////////////////////////////////////////////////////
// WC
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestWC() {
	t.mustEcho("/test.txt", "hello world\nfoo bar baz\n")

	lines, words, chars, err := t.v.WC("/test.txt")

	t.Require().NoError(err)
	t.Equal(2, lines)
	t.Equal(5, words)
	t.Equal(24, chars)
}

func (t *VolumeTest) TestWCOnDirectoryFails() {
	t.Require().NoError(t.v.Mkdir("/mydir", false))

	_, _, _, err := t.v.WC("/mydir")

	t.ErrorIs(err, fserrors.ErrNotAFile)
}

////////////////////////////////////////////////////////////////////////
// Mkdir / Rm
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestMkdir() {
	t.Require().NoError(t.v.Mkdir("/mydir", false))

	st, err := t.v.Stat("/mydir")
	t.Require().NoError(err)
	t.Equal("dir", st.Type)
	t.Equal(uint16(DefaultDirMode), st.Mode)
}

func (t *VolumeTest) TestMkdirMissingParentFails() {
	t.ErrorIs(t.v.Mkdir("/a/b/c", false), fserrors.ErrNotFound)
}

func (t *VolumeTest) TestMkdirParents() {
	t.Require().NoError(t.v.Mkdir("/a/b/c", true))

	t.True(t.v.Test("/a"))
	t.True(t.v.Test("/a/b"))
	t.True(t.v.Test("/a/b/c"))

	// Idempotent on existing directories.
	t.Require().NoError(t.v.Mkdir("/a/b/c", true))
}

func (t *VolumeTest) TestMkdirExistingFails() {
	t.Require().NoError(t.v.Mkdir("/mydir", false))

	t.ErrorIs(t.v.Mkdir("/mydir", false), fserrors.ErrExists)
}

func (t *VolumeTest) TestMkdirParentsCollidingWithFileFails() {
	t.mustEcho("/f.txt", "x")

	t.ErrorIs(t.v.Mkdir("/f.txt/sub", true), fserrors.ErrNotADirectory)
}

func (t *VolumeTest) TestRmFile() {
	t.mustEcho("/file.txt", "data")

	n, err := t.v.Rm("/file.txt", false)

	t.Require().NoError(err)
	t.Equal(1, n)
	t.False(t.v.Test("/file.txt"))
}

func (t *VolumeTest) TestRmAbsentReturnsZero() {
	n, err := t.v.Rm("/nope", false)

	t.Require().NoError(err)
	t.Equal(0, n)
}

func (t *VolumeTest) TestRmRootFails() {
	_, err := t.v.Rm("/", false)

	t.ErrorIs(err, fserrors.ErrInvalidPath)
}

func (t *VolumeTest) TestRmNonEmptyDirFails() {
	t.mustEcho("/dir/child.txt", "x")

	_, err := t.v.Rm("/dir", false)

	t.ErrorIs(err, fserrors.ErrNotEmpty)
}

func (t *VolumeTest) TestRmRecursive() {
	t.mustEcho("/tree/a/1.txt", "1")
	t.mustEcho("/tree/a/2.txt", "2")
	t.mustEcho("/tree/b/3.txt", "3")

	n, err := t.v.Rm("/tree", true)

	t.Require().NoError(err)
	t.Equal(1, n)
	t.False(t.v.Test("/tree"))
	t.False(t.v.Test("/tree/a"))
	t.False(t.v.Test("/tree/a/1.txt"))

	// No inode leaked: only the root remains.
	t.Equal(uint64(1), t.v.Info().TotalInodes)
}

func (t *VolumeTest) TestEmptyAfterRemovingEverything() {
	t.mustEcho("/x", "1")
	t.False(t.v.Empty())

	_, err := t.v.Rm("/x", false)

	t.Require().NoError(err)
	t.True(t.v.Empty())
}

////////////////////////////////////////////////////////////////////////
// Cp / Mv
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestCpFilePreservesMetadata() {
	t.mustEcho("/src.txt", "data")
	t.Require().NoError(t.v.Chmod("/src.txt", 0o601))
	t.Require().NoError(t.v.Chown("/src.txt", 12, 34, true))
	t.Require().NoError(t.v.Utimens("/src.txt", 1111, 2222))

	t.Require().NoError(t.v.Cp("/src.txt", "/dst.txt", false))

	src, err := t.v.Stat("/src.txt")
	t.Require().NoError(err)
	dst, err := t.v.Stat("/dst.txt")
	t.Require().NoError(err)
	t.Equal(src, dst)
	t.Equal("data", t.cat("/dst.txt"))
	t.Equal("data", t.cat("/src.txt"))
}

func (t *VolumeTest) TestCpDirRequiresRecursive() {
	t.mustEcho("/srcdir/a.txt", "a")

	t.ErrorIs(t.v.Cp("/srcdir", "/dstdir", false), fserrors.ErrInvalidArgument)
}

func (t *VolumeTest) TestCpRecursive() {
	t.mustEcho("/srcdir/a.txt", "a")
	t.mustEcho("/srcdir/sub/b.txt", "b")

	t.Require().NoError(t.v.Cp("/srcdir", "/dstdir", true))

	t.Equal("a", t.cat("/dstdir/a.txt"))
	t.Equal("b", t.cat("/dstdir/sub/b.txt"))
}

func (t *VolumeTest) TestCpExistingDstFails() {
	t.mustEcho("/src.txt", "x")
	t.mustEcho("/dst.txt", "y")

	t.ErrorIs(t.v.Cp("/src.txt", "/dst.txt", false), fserrors.ErrExists)
}

func (t *VolumeTest) TestCpSymlinkCopiesLink() {
	t.mustEcho("/a/file.txt", "payload")
	t.Require().NoError(t.v.Ln("/a/file.txt", "/ln"))
	t.Require().NoError(t.v.Chown("/ln", 55, 66, true))
	t.Require().NoError(t.v.Utimens("/ln", 3333, 4444))

	t.Require().NoError(t.v.Cp("/ln", "/ln-copy", false))

	src, err := t.v.Stat("/ln")
	t.Require().NoError(err)
	dst, err := t.v.Stat("/ln-copy")
	t.Require().NoError(err)
	t.Equal(src, dst)
	t.Equal("symlink", dst.Type)

	srcTarget, err := t.v.Readlink("/ln")
	t.Require().NoError(err)
	dstTarget, err := t.v.Readlink("/ln-copy")
	t.Require().NoError(err)
	t.Equal(srcTarget, dstTarget)
}

func (t *VolumeTest) TestMvFile() {
	t.mustEcho("/old.txt", "content")

	t.Require().NoError(t.v.Mv("/old.txt", "/new.txt"))

	t.Equal("content", t.cat("/new.txt"))
	t.False(t.v.Test("/old.txt"))
}

func (t *VolumeTest) TestMvDirectoryMovesChildren() {
	t.mustEcho("/src/a.txt", "a")
	t.mustEcho("/src/sub/c.txt", "c")

	t.Require().NoError(t.v.Mv("/src", "/dst"))

	t.Equal("a", t.cat("/dst/a.txt"))
	t.Equal("c", t.cat("/dst/sub/c.txt"))
	t.False(t.v.Test("/src"))
}

func (t *VolumeTest) TestMvRootFails() {
	t.ErrorIs(t.v.Mv("/", "/newroot"), fserrors.ErrInvalidPath)
}

func (t *VolumeTest) TestMvExistingDstFails() {
	t.mustEcho("/x.txt", "x")
	t.mustEcho("/y.txt", "y")

	t.ErrorIs(t.v.Mv("/x.txt", "/y.txt"), fserrors.ErrExists)
}

func (t *VolumeTest) TestMvIntoOwnSubtreeFails() {
	t.mustEcho("/a/file.txt", "payload")

	err := t.v.Mv("/a", "/a/sub/new")

	t.ErrorIs(err, fserrors.ErrInvalidArgument)
	// Checked before any mutation.
	t.True(t.v.Test("/a/file.txt"))
	t.False(t.v.Test("/a/sub"))
}

////////////////////////////////////////////////////////////////////////
// Symlinks
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestSymlinkBasics() {
	t.mustEcho("/target.txt", "hello")

	t.Require().NoError(t.v.Ln("/target.txt", "/link"))

	target, err := t.v.Readlink("/link")
	t.Require().NoError(err)
	t.Equal("/target.txt", target)
	t.Equal("hello", t.cat("/link"))
}

func (t *VolumeTest) TestSymlinkToDirectory() {
	t.mustEcho("/realdir/f.txt", "inside")

	t.Require().NoError(t.v.Ln("/realdir", "/dirlink"))

	names, err := t.v.Ls("/dirlink")
	t.Require().NoError(err)
	t.Contains(names, "f.txt")
}

func (t *VolumeTest) TestLnAtRootFails() {
	t.mustEcho("/target.txt", "x")

	t.ErrorIs(t.v.Ln("/target.txt", "/"), fserrors.ErrInvalidPath)
}

func (t *VolumeTest) TestLnExistingFails() {
	t.mustEcho("/target.txt", "x")
	t.Require().NoError(t.v.Ln("/target.txt", "/link"))

	t.ErrorIs(t.v.Ln("/target.txt", "/link"), fserrors.ErrExists)
}

func (t *VolumeTest) TestReadlinkOnNonSymlinkFails() {
	t.mustEcho("/target.txt", "x")
	t.Require().NoError(t.v.Mkdir("/dir", false))

	_, err := t.v.Readlink("/target.txt")
	t.ErrorIs(err, fserrors.ErrNotASymlink)

	_, err = t.v.Readlink("/dir")
	t.ErrorIs(err, fserrors.ErrNotASymlink)
}

func (t *VolumeTest) TestRelativeSymlinkTarget() {
	t.mustEcho("/target.txt", "hello")

	t.Require().NoError(t.v.Ln("target.txt", "/rellink"))

	target, err := t.v.Readlink("/rellink")
	t.Require().NoError(err)
	t.Equal("target.txt", target)
	t.Equal("hello", t.cat("/rellink"))
}

func (t *VolumeTest) TestSymlinkChain() {
	t.mustEcho("/f.txt", "hello")
	t.Require().NoError(t.v.Ln("/f.txt", "/l"))
	t.Require().NoError(t.v.Ln("/l", "/m"))
	t.Require().NoError(t.v.Ln("/m", "/n"))

	t.Equal("hello", t.cat("/n"))

	target, err := t.v.Readlink("/n")
	t.Require().NoError(err)
	t.Equal("/m", target)
}

func (t *VolumeTest) TestDanglingSymlink() {
	t.Require().NoError(t.v.Ln("/nonexistent", "/dangling"))

	_, err := t.v.Cat("/dangling")
	t.ErrorIs(err, fserrors.ErrNotFound)

	// The link itself exists and READLINK still answers.
	t.True(t.v.Test("/dangling"))
	target, err := t.v.Readlink("/dangling")
	t.Require().NoError(err)
	t.Equal("/nonexistent", target)
}

func (t *VolumeTest) TestSymlinkSelfLoop() {
	t.Require().NoError(t.v.Ln("/selfloop", "/selfloop"))

	_, err := t.v.Cat("/selfloop")

	t.ErrorIs(err, fserrors.ErrSymlinkLoop)
}

func (t *VolumeTest) TestSymlinkCircularLoop() {
	t.Require().NoError(t.v.Ln("/loopB", "/loopA"))
	t.Require().NoError(t.v.Ln("/loopA", "/loopB"))

	_, err := t.v.Cat("/loopA")

	t.ErrorIs(err, fserrors.ErrSymlinkLoop)
	t.Contains(strings.ToLower(err.Error()), "too many")
}

func (t *VolumeTest) TestSymlinkChainAtHopLimit() {
	t.mustEcho("/longchain_target.txt", "reached")

	prev := "/longchain_target.txt"
	for i := 0; i < 39; i++ {
		curr := fmt.Sprintf("/longchain_%d", i)
		t.Require().NoError(t.v.Ln(prev, curr))
		prev = curr
	}

	// 39 hops resolve.
	t.Equal("reached", t.cat(prev))

	// One more link exceeds the limit.
	t.Require().NoError(t.v.Ln(prev, "/longchain_over"))
	_, err := t.v.Cat("/longchain_over")
	t.ErrorIs(err, fserrors.ErrSymlinkLoop)
}

////////////////////////////////////////////////////////////////////////
// Stat / Test / Ls / Tree
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestStatFields() {
	t.mustEcho("/f.txt", "hello")

	st, err := t.v.Stat("/f.txt")

	t.Require().NoError(err)
	t.Equal("file", st.Type)
	t.Equal(uint64(5), st.Size)
	t.Equal(uint16(DefaultFileMode), st.Mode)
	t.Equal(t.clock.Now().Unix(), st.Ctime)
}

func (t *VolumeTest) TestStatDoesNotFollowSymlinks() {
	t.mustEcho("/f.txt", "hello")
	t.Require().NoError(t.v.Ln("/f.txt", "/link"))

	st, err := t.v.Stat("/link")

	t.Require().NoError(err)
	t.Equal("symlink", st.Type)
}

func (t *VolumeTest) TestStatAbsent() {
	_, err := t.v.Stat("/nope")

	t.ErrorIs(err, fserrors.ErrNotFound)
}

func (t *VolumeTest) TestLs() {
	t.mustEcho("/a.txt", "aaa")
	t.mustEcho("/b.txt", "bbb")
	t.Require().NoError(t.v.Mkdir("/subdir", false))

	names, err := t.v.Ls("/")

	t.Require().NoError(err)
	t.Equal([]string{"a.txt", "b.txt", "subdir"}, names)
}

func (t *VolumeTest) TestLsOnFileFails() {
	t.mustEcho("/a.txt", "x")

	_, err := t.v.Ls("/a.txt")

	t.ErrorIs(err, fserrors.ErrNotADirectory)
}

func (t *VolumeTest) TestLsEmptyDirectory() {
	t.Require().NoError(t.v.Mkdir("/empty", false))

	names, err := t.v.Ls("/empty")

	t.Require().NoError(err)
	t.Empty(names)
}

func (t *VolumeTest) TestLsLong() {
	t.mustEcho("/subdir/x.txt", "x")

	entries, err := t.v.LsLong("/subdir")

	t.Require().NoError(err)
	t.Require().Len(entries, 1)
	t.Equal("x.txt", entries[0].Name)
	t.Equal("file", entries[0].Type)
	t.Equal(uint64(1), entries[0].Size)
}

func (t *VolumeTest) TestTree() {
	t.mustEcho("/a.txt", "a")
	t.mustEcho("/sub/b.txt", "b")
	t.mustEcho("/sub/deep/c.txt", "c")
	t.Require().NoError(t.v.Ln("/a.txt", "/sym"))

	out, err := t.v.Tree("/", 0)

	t.Require().NoError(err)
	t.Contains(out, "a.txt")
	t.Contains(out, "sym -> /a.txt")
	t.Contains(out, "c.txt")

	shallow, err := t.v.Tree("/", 1)
	t.Require().NoError(err)
	t.Contains(shallow, "sub")
	t.NotContains(shallow, "b.txt")
	t.Less(len(shallow), len(out))
}

////////////////////////////////////////////////////////////////////////
// Find / Grep
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestFind() {
	t.mustEcho("/a.txt", "a")
	t.mustEcho("/b.log", "b")
	t.mustEcho("/sub/c.txt", "c")
	t.mustEcho("/sub/d.log", "d")
	t.mustEcho("/sub/deep/e.txt", "e")

	paths, err := t.v.Find("/", "*.txt", "")
	t.Require().NoError(err)
	t.Contains(paths, "/a.txt")
	t.Contains(paths, "/sub/c.txt")
	t.Contains(paths, "/sub/deep/e.txt")
	t.NotContains(paths, "/b.log")

	paths, err = t.v.Find("/sub", "*.log", "")
	t.Require().NoError(err)
	t.Equal([]string{"/sub/d.log"}, paths)
}

func (t *VolumeTest) TestFindTypeFilter() {
	t.mustEcho("/sub/data", "file named data")
	t.Require().NoError(t.v.Mkdir("/sub/dir-data", false))
	t.Require().NoError(t.v.Mkdir("/data", false))

	paths, err := t.v.Find("/", "data", "dir")

	t.Require().NoError(err)
	t.Equal([]string{"/data"}, paths)
}

func (t *VolumeTest) TestFindInvalidType() {
	_, err := t.v.Find("/", "*", "badtype")

	t.ErrorIs(err, fserrors.ErrInvalidArgument)
}

func (t *VolumeTest) TestFindGlobPatterns() {
	for _, name := range []string{"foo.txt", "bar.txt", "baz.log", "qux.TXT", "abc", "a1c", "a-c", "a!c"} {
		t.mustEcho("/"+name, "x")
	}

	paths, err := t.v.Find("/", "???.txt", "")
	t.Require().NoError(err)
	t.Contains(paths, "/foo.txt")
	t.Contains(paths, "/bar.txt")
	t.NotContains(paths, "/baz.log")

	paths, err = t.v.Find("/", "[fb]*.txt", "")
	t.Require().NoError(err)
	t.Contains(paths, "/foo.txt")
	t.Contains(paths, "/bar.txt")

	paths, err = t.v.Find("/", "a[0-9]c", "")
	t.Require().NoError(err)
	t.Equal([]string{"/a1c"}, paths)

	paths, err = t.v.Find("/", "a[!0-9]c", "")
	t.Require().NoError(err)
	t.Contains(paths, "/a-c")
	t.Contains(paths, "/a!c")
	t.NotContains(paths, "/a1c")

	paths, err = t.v.Find("/", "abc", "")
	t.Require().NoError(err)
	t.Equal([]string{"/abc"}, paths)
}

func (t *VolumeTest) TestGrep() {
	t.mustEcho("/a.txt", "Hello World\nfoo bar\nbaz")
	t.mustEcho("/b.txt", "nothing here\nHello Again\n")
	t.mustEcho("/sub/c.txt", "deep hello content\n")

	matches, err := t.v.Grep("/", "Hello*", false)
	t.Require().NoError(err)
	paths := grepPaths(matches)
	t.Contains(paths, "/a.txt")
	t.Contains(paths, "/b.txt")
	t.NotContains(paths, "/sub/c.txt")

	matches, err = t.v.Grep("/", "*hello*", true)
	t.Require().NoError(err)
	paths = grepPaths(matches)
	t.Contains(paths, "/a.txt")
	t.Contains(paths, "/sub/c.txt")

	matches, err = t.v.Grep("/", "zzzzz*", false)
	t.Require().NoError(err)
	t.Empty(matches)

	matches, err = t.v.Grep("/sub", "*hello*", false)
	t.Require().NoError(err)
	t.Equal([]string{"/sub/c.txt"}, grepPaths(matches))
}

func (t *VolumeTest) TestGrepLineNumbersAndText() {
	t.mustEcho("/a.txt", "one\ntwo needle\nthree\nneedle four")

	matches, err := t.v.Grep("/", "*needle*", false)

	t.Require().NoError(err)
	t.Require().Len(matches, 2)
	t.Equal(2, matches[0].Line)
	t.Equal("two needle", string(matches[0].Text))
	t.Equal(4, matches[1].Line)
	t.Equal("needle four", string(matches[1].Text))
}

func (t *VolumeTest) TestGrepBinaryFile() {
	t.Require().NoError(t.v.Echo("/bin.dat", []byte("start\x00\x00\x00middle hello end"), false))

	matches, err := t.v.Grep("/", "*hello*", false)

	t.Require().NoError(err)
	t.Require().Len(matches, 1)
	t.Equal("/bin.dat", matches[0].Path)
	t.Equal(0, matches[0].Line)
	t.Equal(BinaryMatchText, string(matches[0].Text))
}

func grepPaths(matches []GrepMatch) []string {
	var out []string
	for _, m := range matches {
		out = append(out, m.Path)
	}
	return out
}

////////////////////////////////////////////////////////////////////////
// Metadata
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestChmod() {
	t.mustEcho("/f.txt", "data")

	t.Require().NoError(t.v.Chmod("/f.txt", 0o755))

	st, err := t.v.Stat("/f.txt")
	t.Require().NoError(err)
	t.Equal(uint16(0o755), st.Mode)
}

func (t *VolumeTest) TestChmodAbsentFails() {
	t.ErrorIs(t.v.Chmod("/nope", 0o644), fserrors.ErrNotFound)
}

func (t *VolumeTest) TestChown() {
	t.mustEcho("/f.txt", "data")

	t.Require().NoError(t.v.Chown("/f.txt", 1000, 0, false))
	st, err := t.v.Stat("/f.txt")
	t.Require().NoError(err)
	t.Equal(uint32(1000), st.Uid)
	t.Equal(uint32(0), st.Gid)

	t.Require().NoError(t.v.Chown("/f.txt", 500, 600, true))
	st, err = t.v.Stat("/f.txt")
	t.Require().NoError(err)
	t.Equal(uint32(500), st.Uid)
	t.Equal(uint32(600), st.Gid)
}

func (t *VolumeTest) TestTruncate() {
	t.Require().NoError(t.v.Echo("/data.bin", []byte("abcdef"), false))

	t.Require().NoError(t.v.Truncate("/data.bin", 3))
	t.Equal("abc", t.cat("/data.bin"))

	t.Require().NoError(t.v.Truncate("/data.bin", 6))
	t.Equal("abc\x00\x00\x00", t.cat("/data.bin"))

	t.Require().NoError(t.v.Truncate("/data.bin", 0))
	t.Equal("", t.cat("/data.bin"))

	t.ErrorIs(t.v.Truncate("/data.bin", -1), fserrors.ErrInvalidArgument)

	t.Require().NoError(t.v.Mkdir("/dir", false))
	t.ErrorIs(t.v.Truncate("/dir", 1), fserrors.ErrNotAFile)
}

func (t *VolumeTest) TestUtimens() {
	t.mustEcho("/data.bin", "x")

	t.Require().NoError(t.v.Utimens("/data.bin", 1000, 2000))
	st, err := t.v.Stat("/data.bin")
	t.Require().NoError(err)
	t.Equal(int64(1000), st.Atime)
	t.Equal(int64(2000), st.Mtime)

	// -1 leaves the field unchanged.
	t.Require().NoError(t.v.Utimens("/data.bin", UtimeOmit, 3000))
	st, err = t.v.Stat("/data.bin")
	t.Require().NoError(err)
	t.Equal(int64(1000), st.Atime)
	t.Equal(int64(3000), st.Mtime)
}

////////////////////////////////////////////////////////////////////////
// Path handling
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestMessyPathsResolve() {
	t.mustEcho("/a/b/c.txt", "data")

	for _, p := range []string{
		"//a//b//c.txt",
		"/a/./b/./c.txt",
		"/a/b/x/../c.txt",
		"/a/b/../b/c.txt",
	} {
		t.Equal("data", t.cat(p), "path %q", p)
	}

	t.True(t.v.Test("/"))
	t.True(t.v.Test("//"))
	t.True(t.v.Test("/./"))
}

func (t *VolumeTest) TestDepthLimitAtomic() {
	deep := "/" + strings.Repeat("d/", 299) + "d"
	truncated := "/" + strings.Repeat("d/", 255) + "d"

	err := t.v.Touch(deep)

	t.ErrorIs(err, fserrors.ErrDepthExceeded)
	// No prefix of the failed path was created.
	t.False(t.v.Test(truncated))
	t.False(t.v.Test("/d"))
}

func (t *VolumeTest) TestDepthLimitBoundary() {
	atLimit := "/" + strings.Repeat("d/", 255) + "f.txt"

	t.Require().NoError(t.v.Echo(atLimit, []byte("deep content"), false))

	t.Equal("deep content", t.cat(atLimit))
}

////////////////////////////////////////////////////////////////////////
// Info / invariants
////////////////////////////////////////////////////////////////////////

func (t *VolumeTest) TestInfo() {
	t.mustEcho("/f1.txt", "hello")
	t.mustEcho("/f2.txt", "world!")
	t.Require().NoError(t.v.Mkdir("/mydir", false))
	t.Require().NoError(t.v.Ln("/f1.txt", "/link"))

	s := t.v.Info()

	t.Equal(uint64(2), s.Files)
	t.Equal(uint64(2), s.Directories) // root + /mydir
	t.Equal(uint64(1), s.Symlinks)
	t.Equal(uint64(11), s.TotalDataBytes)
	t.Equal(uint64(5), s.TotalInodes)
}

func (t *VolumeTest) TestTreeConsistency() {
	t.mustEcho("/d/a/1.txt", "1")
	t.mustEcho("/d/b/2.txt", "2")
	t.Require().NoError(t.v.Ln("/d/a", "/shortcut"))

	dirs, err := t.v.Find("/", "*", "dir")
	t.Require().NoError(err)
	for _, d := range dirs {
		names, err := t.v.Ls(d)
		t.Require().NoError(err)
		for _, name := range names {
			t.True(t.v.Test(d+"/"+name), "missing listed child %s/%s", d, name)
		}
	}

	all, err := t.v.Find("/", "*", "")
	t.Require().NoError(err)
	for _, p := range all {
		parent := p[:strings.LastIndex(p, "/")]
		if parent == "" {
			parent = "/"
		}
		names, err := t.v.Ls(parent)
		t.Require().NoError(err)
		t.Contains(names, p[strings.LastIndex(p, "/")+1:])
	}
}
