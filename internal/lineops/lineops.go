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

// Package lineops implements the byte-level line operations shared by the
// read, edit and stat commands. Content is treated as an opaque byte stream
// with '\n' line semantics; nothing here is UTF-8 aware.
//
// Two line models coexist, matching the command surface:
//
//   - Segments: the '\n'-separated pieces of the content. A trailing newline
//     produces a final empty segment. HEAD, TAIL and LINES select segments and
//     re-join them, so "A\nB\nC\n" tailed by 2 yields "C\n".
//
//   - Spans: lines including their terminating newline, with no empty span
//     for a trailing newline. INSERT, DELETELINES, REPLACE's line band and WC
//     count spans, so deleting the last line of "A\nB\nC" leaves "A\nB\n".
package lineops

import "bytes"

var newline = []byte{'\n'}

// segments splits content at newlines, python-str.split style: empty content
// yields a single empty segment, a trailing newline yields a final empty one.
func segments(b []byte) [][]byte {
	return bytes.Split(b, newline)
}

// spans splits content into newline-terminated line spans. The final span may
// lack its terminator. Empty content has no spans.
func spans(b []byte) [][]byte {
	if len(b) == 0 {
		return nil
	}
	var out [][]byte
	for start := 0; start < len(b); {
		i := bytes.IndexByte(b[start:], '\n')
		if i < 0 {
			out = append(out, b[start:])
			break
		}
		out = append(out, b[start:start+i+1])
		start += i + 1
	}
	return out
}

// SpanCount returns the number of line spans in content.
func SpanCount(b []byte) int {
	n := bytes.Count(b, newline)
	if len(b) > 0 && b[len(b)-1] != '\n' {
		n++
	}
	return n
}

func joinSegments(segs [][]byte) []byte {
	return bytes.Join(segs, newline)
}

// Head returns the first n segments, re-joined. n beyond the segment count
// returns the content verbatim.
//
// REQUIRES: n >= 0
func Head(b []byte, n int) []byte {
	segs := segments(b)
	if n >= len(segs) {
		return b
	}
	return joinSegments(segs[:n])
}

// Tail returns the last n segments, re-joined. n beyond the segment count
// returns the content verbatim.
//
// REQUIRES: n >= 0
func Tail(b []byte, n int) []byte {
	if n == 0 {
		return nil
	}
	segs := segments(b)
	if n >= len(segs) {
		return b
	}
	return joinSegments(segs[len(segs)-n:])
}

// Lines returns segments start..end (1-indexed, inclusive), re-joined.
// end == -1 selects through the last segment; end beyond it is clamped; start
// beyond it yields empty.
//
// REQUIRES: start >= 1 and (end == -1 or end >= start)
func Lines(b []byte, start, end int) []byte {
	segs := segments(b)
	if start > len(segs) {
		return nil
	}
	if end == -1 || end > len(segs) {
		end = len(segs)
	}
	return joinSegments(segs[start-1 : end])
}

// Insert places text after line span afterLine. 0 prepends, -1 or any value
// beyond the span count appends; a single newline separator is supplied
// wherever the seam needs one.
//
// REQUIRES: afterLine >= -1
func Insert(b []byte, afterLine int, text []byte) []byte {
	sp := spans(b)
	if afterLine == -1 || afterLine > len(sp) {
		afterLine = len(sp)
	}

	if afterLine == len(sp) {
		switch {
		case len(b) == 0:
			return text
		case b[len(b)-1] == '\n':
			return append(append([]byte{}, b...), text...)
		default:
			out := append(append([]byte{}, b...), '\n')
			return append(out, text...)
		}
	}

	var out []byte
	for _, s := range sp[:afterLine] {
		out = append(out, s...)
	}
	out = append(out, text...)
	out = append(out, '\n')
	for _, s := range sp[afterLine:] {
		out = append(out, s...)
	}
	return out
}

// DeleteLines removes spans start..end (1-indexed, inclusive) and reports how
// many were removed. end is clamped to the span count; start beyond it
// removes nothing.
//
// REQUIRES: start >= 1 and end >= start
func DeleteLines(b []byte, start, end int) ([]byte, int) {
	sp := spans(b)
	if start > len(sp) {
		return b, 0
	}
	if end > len(sp) {
		end = len(sp)
	}

	var out []byte
	for _, s := range sp[:start-1] {
		out = append(out, s...)
	}
	for _, s := range sp[end:] {
		out = append(out, s...)
	}
	return out, end - start + 1
}

// Replace substitutes old with new inside content and reports the number of
// substitutions. With all unset only the first occurrence is replaced. A line
// band constrains matching to the byte range covered by spans
// bandStart..bandEnd; matches straddling the band boundary are skipped.
//
// REQUIRES: len(old) > 0; if hasBand, bandStart >= 1 and bandEnd >= bandStart
func Replace(b, old, new []byte, all bool, hasBand bool, bandStart, bandEnd int) ([]byte, int) {
	regionStart, regionEnd := 0, len(b)
	if hasBand {
		sp := spans(b)
		if bandStart > len(sp) {
			return b, 0
		}
		if bandEnd > len(sp) {
			bandEnd = len(sp)
		}
		for _, s := range sp[:bandStart-1] {
			regionStart += len(s)
		}
		regionEnd = regionStart
		for _, s := range sp[bandStart-1 : bandEnd] {
			regionEnd += len(s)
		}
	}

	region := b[regionStart:regionEnd]
	count := bytes.Count(region, old)
	if count == 0 {
		return b, 0
	}
	n := 1
	if all {
		n = count
	}

	var out []byte
	out = append(out, b[:regionStart]...)
	out = append(out, bytes.Replace(region, old, new, n)...)
	out = append(out, b[regionEnd:]...)
	return out, n
}

// WC counts line spans, ASCII-whitespace-separated words, and bytes.
func WC(b []byte) (lines, words, chars int) {
	lines = SpanCount(b)
	chars = len(b)

	inWord := false
	for _, c := range b {
		if isASCIISpace(c) {
			inWord = false
		} else if !inWord {
			inWord = true
			words++
		}
	}
	return lines, words, chars
}

func isASCIISpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
