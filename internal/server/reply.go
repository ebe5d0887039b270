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

	"github.com/tidwall/redcon"

	"github.com/dirkv/dirkv/internal/fserrors"
)

// Reply models one RESP response independently of the wire, so the dispatch
// layer stays testable without a connection.
type Reply struct {
	kind  replyKind
	str   string
	bulk  []byte
	n     int64
	arr   []Reply
	isErr bool
}

type replyKind int

const (
	kindNil replyKind = iota
	kindSimple
	kindBulk
	kindInt
	kindArray
	kindError
)

func nilReply() Reply              { return Reply{kind: kindNil} }
func okReply() Reply               { return Reply{kind: kindSimple, str: "OK"} }
func bulkReply(b []byte) Reply     { return Reply{kind: kindBulk, bulk: b} }
func bulkString(s string) Reply    { return Reply{kind: kindBulk, bulk: []byte(s)} }
func intReply(n int64) Reply       { return Reply{kind: kindInt, n: n} }
func arrayReply(rs ...Reply) Reply { return Reply{kind: kindArray, arr: rs} }

// errorReply renders an error from the taxonomy. WRONGTYPE keeps its own
// prefix per host convention; everything else gets the generic ERR prefix.
func errorReply(err error) Reply {
	msg := err.Error()
	if !errors.Is(err, fserrors.ErrWrongType) {
		msg = "ERR " + msg
	}
	return Reply{kind: kindError, str: msg, isErr: true}
}

func arityError(command string) Reply {
	return Reply{
		kind:  kindError,
		str:   fmt.Sprintf("ERR wrong number of arguments for '%s' command", command),
		isErr: true,
	}
}

// IsError reports whether the reply is a response error.
func (r Reply) IsError() bool { return r.isErr }

// writeReply serializes a reply onto a redcon connection.
func writeReply(conn redcon.Conn, r Reply) {
	switch r.kind {
	case kindNil:
		conn.WriteNull()
	case kindSimple:
		conn.WriteString(r.str)
	case kindBulk:
		conn.WriteBulk(r.bulk)
	case kindInt:
		conn.WriteInt64(r.n)
	case kindArray:
		conn.WriteArray(len(r.arr))
		for _, item := range r.arr {
			writeReply(conn, item)
		}
	case kindError:
		conn.WriteError(r.str)
	}
}
