/*
 * Copyright 2025 SABOS Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pal

import (
	"fmt"
	"io"
)

// Writer adapts the console syscall to io.Writer so fmt and friends work
// inside a user program.
type Writer struct {
	c *Client
}

// Writer returns the console as an io.Writer.
func (c *Client) Writer() *Writer { return &Writer{c: c} }

// Write implements io.Writer over SYS_WRITE.
func (w *Writer) Write(p []byte) (int, error) {
	n := w.c.Write(p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Printf formats to the console.
func (c *Client) Printf(format string, args ...any) {
	fmt.Fprintf(c.Writer(), format, args...)
}

// Println prints a line to the console.
func (c *Client) Println(args ...any) {
	fmt.Fprintln(c.Writer(), args...)
}
