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

// Package textutil holds the small text helpers shared by the user
// daemons.
package textutil

import "strings"

// ReplaceLiteral replaces occurrences of from with to in line, no
// regular expressions. With global false only the first match is
// replaced. The second result reports whether anything changed.
func ReplaceLiteral(line, from, to string, global bool) (string, bool) {
	if from == "" {
		return line, false
	}
	if !strings.Contains(line, from) {
		return line, false
	}
	if global {
		return strings.ReplaceAll(line, from, to), true
	}
	return strings.Replace(line, from, to, 1), true
}
