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

// Package server is the RESP front end: it accepts connections, hands parsed
// commands to the dispatch layer, and writes replies. A single mutex
// serializes dispatch, so every command executes atomically with respect to
// every other, the way the host's single-threaded dispatcher would run it.
package server

import (
	"strings"
	"sync"

	"github.com/tidwall/redcon"

	"github.com/dirkv/dirkv/internal/logger"
	"github.com/dirkv/dirkv/internal/metrics"
)

type Server struct {
	addr    string
	handler *Handler

	mu  sync.Mutex // serializes Dispatch
	srv *redcon.Server
}

func New(addr string, h *Handler) *Server {
	s := &Server{addr: addr, handler: h}
	s.srv = redcon.NewServer(addr, s.handle, s.accept, s.closed)
	return s
}

// ListenAndServe blocks serving the RESP listener.
func (s *Server) ListenAndServe() error {
	logger.Infof("listening on %s", s.addr)
	return s.srv.ListenAndServe()
}

// Close stops the listener.
func (s *Server) Close() error {
	return s.srv.Close()
}

func (s *Server) handle(conn redcon.Conn, cmd redcon.Command) {
	name := strings.ToUpper(string(cmd.Args[0]))
	if name == "QUIT" {
		conn.WriteString("OK")
		conn.Close()
		return
	}

	s.mu.Lock()
	reply := s.handler.Dispatch(cmd.Args)
	keyCount := s.handler.Store().Len()
	s.mu.Unlock()

	metrics.RecordCommand(name, reply.IsError())
	metrics.SetKeyCount(keyCount)
	if reply.IsError() {
		logger.Debugf("%s: %s", name, reply.str)
	}
	writeReply(conn, reply)
}

func (s *Server) accept(conn redcon.Conn) bool {
	metrics.ConnOpened()
	logger.Tracef("accepted connection from %s", conn.RemoteAddr())
	return true
}

func (s *Server) closed(conn redcon.Conn, err error) {
	metrics.ConnClosed()
	if err != nil {
		logger.Tracef("connection %s closed: %v", conn.RemoteAddr(), err)
	}
}
