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

package server

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dirkv/dirkv/clock"
	"github.com/dirkv/dirkv/internal/fserrors"
	"github.com/dirkv/dirkv/internal/store"
	"github.com/dirkv/dirkv/internal/volume"
)

// Handler parses commands, routes them to the keyspace and shapes replies.
// It holds no locks itself; the server serializes calls to Dispatch.
type Handler struct {
	store        *store.Store
	clock        clock.Clock
	snapshotPath string
}

func NewHandler(s *store.Store, c clock.Clock, snapshotPath string) *Handler {
	return &Handler{store: s, clock: c, snapshotPath: snapshotPath}
}

// Store returns the current keyspace. DEBUG RELOAD swaps it.
func (h *Handler) Store() *store.Store { return h.store }

type commandFunc func(h *Handler, args [][]byte) Reply

// command arities count the arguments after the command name; maxArgs -1
// means unbounded.
type command struct {
	minArgs int
	maxArgs int
	fn      commandFunc
}

var commands = map[string]command{
	"PING":   {0, 1, cmdPing},
	"SET":    {2, 2, cmdSet},
	"GET":    {1, 1, cmdGet},
	"DEL":    {1, -1, cmdDel},
	"EXISTS": {1, -1, cmdExists},
	"SAVE":   {0, 0, cmdSave},
	"DEBUG":  {1, -1, cmdDebug},

	"FS.ECHO":        {3, 4, fsEcho},
	"FS.CAT":         {2, 2, fsCat},
	"FS.LINES":       {2, 4, fsLines},
	"FS.HEAD":        {2, 3, fsHead},
	"FS.TAIL":        {2, 3, fsTail},
	"FS.APPEND":      {3, 3, fsAppend},
	"FS.TOUCH":       {2, 2, fsTouch},
	"FS.INSERT":      {4, 4, fsInsert},
	"FS.REPLACE":     {4, 8, fsReplace},
	"FS.DELETELINES": {4, 4, fsDeleteLines},
	"FS.LS":          {1, 3, fsLs},
	"FS.TREE":        {1, 4, fsTree},
	"FS.FIND":        {3, 5, fsFind},
	"FS.STAT":        {2, 2, fsStat},
	"FS.TEST":        {2, 2, fsTest},
	"FS.READLINK":    {2, 2, fsReadlink},
	"FS.WC":          {2, 2, fsWC},
	"FS.MKDIR":       {2, 3, fsMkdir},
	"FS.RM":          {2, 3, fsRm},
	"FS.CP":          {3, 4, fsCp},
	"FS.MV":          {3, 3, fsMv},
	"FS.LN":          {3, 3, fsLn},
	"FS.CHMOD":       {3, 3, fsChmod},
	"FS.CHOWN":       {3, 4, fsChown},
	"FS.TRUNCATE":    {3, 3, fsTruncate},
	"FS.UTIMENS":     {4, 4, fsUtimens},
	"FS.INFO":        {1, 1, fsInfo},
	"FS.GREP":        {3, 4, fsGrep},
}

// Dispatch executes one command. args[0] is the command name; the rest are
// its arguments, binary-safe.
func (h *Handler) Dispatch(args [][]byte) Reply {
	if len(args) == 0 {
		return errorReply(errors.New("empty command"))
	}
	name := strings.ToUpper(string(args[0]))

	cmd, ok := commands[name]
	if !ok {
		return Reply{
			kind:  kindError,
			str:   fmt.Sprintf("ERR unknown command '%s'", args[0]),
			isErr: true,
		}
	}

	n := len(args) - 1
	if n < cmd.minArgs || (cmd.maxArgs >= 0 && n > cmd.maxArgs) {
		return arityError(strings.ToLower(name))
	}
	return cmd.fn(h, args[1:])
}

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

func eqFold(b []byte, s string) bool {
	return strings.EqualFold(string(b), s)
}

func parseInt(b []byte) (int64, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: value is not an integer or out of range", fserrors.ErrInvalidArgument)
	}
	return n, nil
}

// parseMode validates a 1-4 digit octal mode string in [0, 07777].
func parseMode(b []byte) (uint16, error) {
	if len(b) < 1 || len(b) > 4 {
		return 0, fmt.Errorf("%w: mode must be 1-4 octal digits", fserrors.ErrInvalidArgument)
	}
	var mode uint16
	for _, c := range b {
		if c < '0' || c > '7' {
			return 0, fmt.Errorf("%w: mode must be 1-4 octal digits", fserrors.ErrInvalidArgument)
		}
		mode = mode<<3 | uint16(c-'0')
	}
	return mode, nil
}

// parseID32 validates a non-negative integer fitting in 32 bits.
func parseID32(b []byte) (uint32, error) {
	n, err := parseInt(b)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: id out of range", fserrors.ErrInvalidArgument)
	}
	return uint32(n), nil
}

// withView runs a read-only command against the volume under key. Absent
// keys short-circuit to the given reply.
func (h *Handler) withView(key []byte, absent Reply, fn func(v *volume.Volume) Reply) Reply {
	v, err := h.store.View(string(key))
	if err != nil {
		return errorReply(err)
	}
	if v == nil {
		return absent
	}
	return fn(v)
}

// withAcquire runs a mutating command, materializing the volume if needed and
// reaping the key afterwards so a failed mutation never leaves an empty tree
// behind.
func (h *Handler) withAcquire(key []byte, fn func(v *volume.Volume) Reply) Reply {
	v, err := h.store.Acquire(string(key))
	if err != nil {
		return errorReply(err)
	}
	r := fn(v)
	h.store.Reap(string(key))
	return r
}

// dataReply shapes a file read: a missing path reads as nil, everything else
// surfaces.
func dataReply(data []byte, err error) Reply {
	if err != nil {
		if errors.Is(err, fserrors.ErrNotFound) {
			return nilReply()
		}
		return errorReply(err)
	}
	if data == nil {
		data = []byte{}
	}
	return bulkReply(data)
}

func statusReply(err error) Reply {
	if err != nil {
		return errorReply(err)
	}
	return okReply()
}

func formatMode(mode uint16) string {
	return fmt.Sprintf("0%03o", mode)
}

////////////////////////////////////////////////////////////////////////
// Generic commands
////////////////////////////////////////////////////////////////////////

func cmdPing(h *Handler, args [][]byte) Reply {
	if len(args) == 1 {
		return bulkReply(args[0])
	}
	return Reply{kind: kindSimple, str: "PONG"}
}

func cmdSet(h *Handler, args [][]byte) Reply {
	h.store.Set(string(args[0]), append([]byte{}, args[1]...))
	return okReply()
}

func cmdGet(h *Handler, args [][]byte) Reply {
	val, ok, err := h.store.Get(string(args[0]))
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return nilReply()
	}
	return bulkReply(val)
}

func cmdDel(h *Handler, args [][]byte) Reply {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = string(a)
	}
	return intReply(int64(h.store.Del(keys...)))
}

func cmdExists(h *Handler, args [][]byte) Reply {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = string(a)
	}
	return intReply(int64(h.store.Exists(keys...)))
}

func cmdSave(h *Handler, args [][]byte) Reply {
	if err := h.store.Save(h.snapshotPath); err != nil {
		return errorReply(err)
	}
	return okReply()
}

// cmdDebug supports RELOAD: persist the keyspace, drop it, and reparse the
// snapshot, proving the round trip the way the host's DEBUG RELOAD does.
func cmdDebug(h *Handler, args [][]byte) Reply {
	if !eqFold(args[0], "RELOAD") {
		return errorReply(fmt.Errorf("unknown DEBUG subcommand '%s'", args[0]))
	}
	if err := h.store.Save(h.snapshotPath); err != nil {
		return errorReply(err)
	}
	reloaded, err := store.Load(h.snapshotPath, h.clock)
	if err != nil {
		return errorReply(err)
	}
	reloaded.SnapshotFileMode = h.store.SnapshotFileMode
	h.store = reloaded
	return okReply()
}

////////////////////////////////////////////////////////////////////////
// Reading
////////////////////////////////////////////////////////////////////////

func fsCat(h *Handler, args [][]byte) Reply {
	return h.withView(args[0], nilReply(), func(v *volume.Volume) Reply {
		return dataReply(v.Cat(string(args[1])))
	})
}

func fsLines(h *Handler, args [][]byte) Reply {
	if len(args) == 3 {
		return arityError("fs.lines")
	}
	start, end := int64(1), int64(-1)
	if len(args) == 4 {
		var err error
		if start, err = parseInt(args[2]); err != nil {
			return errorReply(err)
		}
		if end, err = parseInt(args[3]); err != nil {
			return errorReply(err)
		}
	}
	return h.withView(args[0], nilReply(), func(v *volume.Volume) Reply {
		return dataReply(v.Lines(string(args[1]), int(start), int(end)))
	})
}

func fsHead(h *Handler, args [][]byte) Reply {
	return headOrTail(h, args, (*volume.Volume).Head)
}

func fsTail(h *Handler, args [][]byte) Reply {
	return headOrTail(h, args, (*volume.Volume).Tail)
}

func headOrTail(h *Handler, args [][]byte, read func(*volume.Volume, string, int) ([]byte, error)) Reply {
	n := int64(10)
	if len(args) == 3 {
		var err error
		if n, err = parseInt(args[2]); err != nil {
			return errorReply(err)
		}
	}
	return h.withView(args[0], nilReply(), func(v *volume.Volume) Reply {
		return dataReply(read(v, string(args[1]), int(n)))
	})
}

func fsWC(h *Handler, args [][]byte) Reply {
	return h.withView(args[0], nilReply(), func(v *volume.Volume) Reply {
		lines, words, chars, err := v.WC(string(args[1]))
		if err != nil {
			if errors.Is(err, fserrors.ErrNotFound) {
				return nilReply()
			}
			return errorReply(err)
		}
		return arrayReply(
			bulkString("lines"), intReply(int64(lines)),
			bulkString("words"), intReply(int64(words)),
			bulkString("chars"), intReply(int64(chars)),
		)
	})
}

////////////////////////////////////////////////////////////////////////
// Writing
////////////////////////////////////////////////////////////////////////

func fsEcho(h *Handler, args [][]byte) Reply {
	appendFlag := false
	if len(args) == 4 {
		if !eqFold(args[3], "APPEND") {
			return errorReply(fmt.Errorf("%w: unknown option '%s'", fserrors.ErrInvalidArgument, args[3]))
		}
		appendFlag = true
	}
	return h.withAcquire(args[0], func(v *volume.Volume) Reply {
		return statusReply(v.Echo(string(args[1]), args[2], appendFlag))
	})
}

func fsAppend(h *Handler, args [][]byte) Reply {
	return h.withAcquire(args[0], func(v *volume.Volume) Reply {
		size, err := v.Append(string(args[1]), args[2])
		if err != nil {
			return errorReply(err)
		}
		return intReply(int64(size))
	})
}

func fsTouch(h *Handler, args [][]byte) Reply {
	return h.withAcquire(args[0], func(v *volume.Volume) Reply {
		return statusReply(v.Touch(string(args[1])))
	})
}

func fsInsert(h *Handler, args [][]byte) Reply {
	after, err := parseInt(args[2])
	if err != nil {
		return errorReply(err)
	}
	return h.withAcquire(args[0], func(v *volume.Volume) Reply {
		return statusReply(v.Insert(string(args[1]), int(after), args[3]))
	})
}

////////////////////////////////////////////////////////////////////////
// Editing
////////////////////////////////////////////////////////////////////////

func fsReplace(h *Handler, args [][]byte) Reply {
	old, replacement := args[2], args[3]
	if len(old) == 0 {
		return errorReply(fmt.Errorf("%w: empty search string", fserrors.ErrInvalidArgument))
	}

	all, hasBand := false, false
	var bandStart, bandEnd int64
	for i := 4; i < len(args); i++ {
		switch {
		case eqFold(args[i], "ALL"):
			all = true
		case eqFold(args[i], "LINE"):
			if i+2 >= len(args) {
				return arityError("fs.replace")
			}
			var err error
			if bandStart, err = parseInt(args[i+1]); err != nil {
				return errorReply(err)
			}
			if bandEnd, err = parseInt(args[i+2]); err != nil {
				return errorReply(err)
			}
			hasBand = true
			i += 2
		default:
			return errorReply(fmt.Errorf("%w: unknown option '%s'", fserrors.ErrInvalidArgument, args[i]))
		}
	}

	return h.withView(args[0], nilReply(), func(v *volume.Volume) Reply {
		count, err := v.Replace(string(args[1]), old, replacement, all, hasBand, int(bandStart), int(bandEnd))
		if err != nil {
			if errors.Is(err, fserrors.ErrNotFound) {
				return intReply(0)
			}
			return errorReply(err)
		}
		return intReply(int64(count))
	})
}

func fsDeleteLines(h *Handler, args [][]byte) Reply {
	start, err := parseInt(args[2])
	if err != nil {
		return errorReply(err)
	}
	end, err := parseInt(args[3])
	if err != nil {
		return errorReply(err)
	}
	return h.withView(args[0], nilReply(), func(v *volume.Volume) Reply {
		deleted, err := v.DeleteLines(string(args[1]), int(start), int(end))
		if err != nil {
			if errors.Is(err, fserrors.ErrNotFound) {
				return intReply(0)
			}
			return errorReply(err)
		}
		return intReply(int64(deleted))
	})
}

////////////////////////////////////////////////////////////////////////
// Navigation
////////////////////////////////////////////////////////////////////////

func fsLs(h *Handler, args [][]byte) Reply {
	path := "/"
	long := false
	pathSet := false
	for _, arg := range args[1:] {
		switch {
		case eqFold(arg, "LONG"):
			long = true
		case !pathSet:
			path = string(arg)
			pathSet = true
		default:
			return errorReply(fmt.Errorf("%w: unknown option '%s'", fserrors.ErrInvalidArgument, arg))
		}
	}

	return h.withView(args[0], nilReply(), func(v *volume.Volume) Reply {
		if !long {
			names, err := v.Ls(path)
			if err != nil {
				return errorReply(err)
			}
			items := make([]Reply, len(names))
			for i, name := range names {
				items[i] = bulkString(name)
			}
			return arrayReply(items...)
		}

		entries, err := v.LsLong(path)
		if err != nil {
			return errorReply(err)
		}
		items := make([]Reply, len(entries))
		for i, e := range entries {
			items[i] = arrayReply(
				bulkString(e.Name),
				bulkString(e.Type),
				bulkString(formatMode(e.Mode)),
				intReply(int64(e.Size)),
				intReply(e.Mtime),
			)
		}
		return arrayReply(items...)
	})
}

func fsTree(h *Handler, args [][]byte) Reply {
	path := "/"
	depth := 0
	pathSet := false
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		switch {
		case eqFold(rest[i], "DEPTH"):
			if i+1 >= len(rest) {
				return arityError("fs.tree")
			}
			n, err := parseInt(rest[i+1])
			if err != nil {
				return errorReply(err)
			}
			if n < 1 {
				return errorReply(fmt.Errorf("%w: DEPTH must be positive", fserrors.ErrInvalidArgument))
			}
			depth = int(n)
			i++
		case !pathSet:
			path = string(rest[i])
			pathSet = true
		default:
			return errorReply(fmt.Errorf("%w: unknown option '%s'", fserrors.ErrInvalidArgument, rest[i]))
		}
	}

	return h.withView(args[0], nilReply(), func(v *volume.Volume) Reply {
		out, err := v.Tree(path, depth)
		if err != nil {
			return errorReply(err)
		}
		return bulkString(out)
	})
}

func fsFind(h *Handler, args [][]byte) Reply {
	typeFilter := ""
	if len(args) > 3 {
		if len(args) != 5 || !eqFold(args[3], "TYPE") {
			return errorReply(fmt.Errorf("%w: unknown option '%s'", fserrors.ErrInvalidArgument, args[3]))
		}
		typeFilter = strings.ToLower(string(args[4]))
	}

	return h.withView(args[0], arrayReply(), func(v *volume.Volume) Reply {
		paths, err := v.Find(string(args[1]), string(args[2]), typeFilter)
		if err != nil {
			return errorReply(err)
		}
		items := make([]Reply, len(paths))
		for i, p := range paths {
			items[i] = bulkString(p)
		}
		return arrayReply(items...)
	})
}

func fsStat(h *Handler, args [][]byte) Reply {
	return h.withView(args[0], nilReply(), func(v *volume.Volume) Reply {
		st, err := v.Stat(string(args[1]))
		if err != nil {
			if errors.Is(err, fserrors.ErrNotFound) {
				return nilReply()
			}
			return errorReply(err)
		}
		return arrayReply(
			bulkString("type"), bulkString(st.Type),
			bulkString("mode"), bulkString(formatMode(st.Mode)),
			bulkString("uid"), intReply(int64(st.Uid)),
			bulkString("gid"), intReply(int64(st.Gid)),
			bulkString("size"), intReply(int64(st.Size)),
			bulkString("ctime"), intReply(st.Ctime),
			bulkString("atime"), intReply(st.Atime),
			bulkString("mtime"), intReply(st.Mtime),
		)
	})
}

func fsTest(h *Handler, args [][]byte) Reply {
	return h.withView(args[0], intReply(0), func(v *volume.Volume) Reply {
		if v.Test(string(args[1])) {
			return intReply(1)
		}
		return intReply(0)
	})
}

func fsReadlink(h *Handler, args [][]byte) Reply {
	return h.withView(args[0], nilReply(), func(v *volume.Volume) Reply {
		target, err := v.Readlink(string(args[1]))
		if err != nil {
			if errors.Is(err, fserrors.ErrNotFound) {
				return nilReply()
			}
			return errorReply(err)
		}
		return bulkString(target)
	})
}

////////////////////////////////////////////////////////////////////////
// Organization
////////////////////////////////////////////////////////////////////////

func fsMkdir(h *Handler, args [][]byte) Reply {
	parents := false
	if len(args) == 3 {
		if !eqFold(args[2], "PARENTS") {
			return errorReply(fmt.Errorf("%w: unknown option '%s'", fserrors.ErrInvalidArgument, args[2]))
		}
		parents = true
	}
	return h.withAcquire(args[0], func(v *volume.Volume) Reply {
		return statusReply(v.Mkdir(string(args[1]), parents))
	})
}

func fsRm(h *Handler, args [][]byte) Reply {
	recursive := false
	if len(args) == 3 {
		if !eqFold(args[2], "RECURSIVE") {
			return errorReply(fmt.Errorf("%w: unknown option '%s'", fserrors.ErrInvalidArgument, args[2]))
		}
		recursive = true
	}
	return h.withView(args[0], intReply(0), func(v *volume.Volume) Reply {
		n, err := v.Rm(string(args[1]), recursive)
		if err != nil {
			return errorReply(err)
		}
		h.store.Reap(string(args[0]))
		return intReply(int64(n))
	})
}

func fsCp(h *Handler, args [][]byte) Reply {
	recursive := false
	if len(args) == 4 {
		if !eqFold(args[3], "RECURSIVE") {
			return errorReply(fmt.Errorf("%w: unknown option '%s'", fserrors.ErrInvalidArgument, args[3]))
		}
		recursive = true
	}
	return h.withAcquire(args[0], func(v *volume.Volume) Reply {
		return statusReply(v.Cp(string(args[1]), string(args[2]), recursive))
	})
}

func fsMv(h *Handler, args [][]byte) Reply {
	return h.withAcquire(args[0], func(v *volume.Volume) Reply {
		return statusReply(v.Mv(string(args[1]), string(args[2])))
	})
}

func fsLn(h *Handler, args [][]byte) Reply {
	return h.withAcquire(args[0], func(v *volume.Volume) Reply {
		return statusReply(v.Ln(string(args[1]), string(args[2])))
	})
}

////////////////////////////////////////////////////////////////////////
// Metadata
////////////////////////////////////////////////////////////////////////

func fsChmod(h *Handler, args [][]byte) Reply {
	mode, err := parseMode(args[2])
	if err != nil {
		return errorReply(err)
	}
	return h.withView(args[0], errorReply(fserrors.ErrNotFound), func(v *volume.Volume) Reply {
		return statusReply(v.Chmod(string(args[1]), mode))
	})
}

func fsChown(h *Handler, args [][]byte) Reply {
	uid, err := parseID32(args[2])
	if err != nil {
		return errorReply(err)
	}
	var gid uint32
	hasGid := len(args) == 4
	if hasGid {
		if gid, err = parseID32(args[3]); err != nil {
			return errorReply(err)
		}
	}
	return h.withView(args[0], errorReply(fserrors.ErrNotFound), func(v *volume.Volume) Reply {
		return statusReply(v.Chown(string(args[1]), uid, gid, hasGid))
	})
}

func fsTruncate(h *Handler, args [][]byte) Reply {
	length, err := parseInt(args[2])
	if err != nil {
		return errorReply(err)
	}
	return h.withView(args[0], errorReply(fserrors.ErrNotFound), func(v *volume.Volume) Reply {
		return statusReply(v.Truncate(string(args[1]), length))
	})
}

func fsUtimens(h *Handler, args [][]byte) Reply {
	atime, err := parseInt(args[2])
	if err != nil {
		return errorReply(err)
	}
	mtime, err := parseInt(args[3])
	if err != nil {
		return errorReply(err)
	}
	return h.withView(args[0], errorReply(fserrors.ErrNotFound), func(v *volume.Volume) Reply {
		return statusReply(v.Utimens(string(args[1]), atime, mtime))
	})
}

////////////////////////////////////////////////////////////////////////
// Introspection
////////////////////////////////////////////////////////////////////////

func fsInfo(h *Handler, args [][]byte) Reply {
	return h.withView(args[0], arrayReply(), func(v *volume.Volume) Reply {
		s := v.Info()
		return arrayReply(
			bulkString("files"), intReply(int64(s.Files)),
			bulkString("directories"), intReply(int64(s.Directories)),
			bulkString("symlinks"), intReply(int64(s.Symlinks)),
			bulkString("total_data_bytes"), intReply(int64(s.TotalDataBytes)),
			bulkString("total_inodes"), intReply(int64(s.TotalInodes)),
		)
	})
}

func fsGrep(h *Handler, args [][]byte) Reply {
	nocase := false
	if len(args) == 4 {
		if !eqFold(args[3], "NOCASE") {
			return errorReply(fmt.Errorf("%w: unknown option '%s'", fserrors.ErrInvalidArgument, args[3]))
		}
		nocase = true
	}
	return h.withView(args[0], arrayReply(), func(v *volume.Volume) Reply {
		matches, err := v.Grep(string(args[1]), string(args[2]), nocase)
		if err != nil {
			if errors.Is(err, fserrors.ErrNotFound) {
				return arrayReply()
			}
			return errorReply(err)
		}
		items := make([]Reply, len(matches))
		for i, m := range matches {
			items[i] = arrayReply(
				bulkString(m.Path),
				intReply(int64(m.Line)),
				bulkReply(m.Text),
			)
		}
		return arrayReply(items...)
	})
}
