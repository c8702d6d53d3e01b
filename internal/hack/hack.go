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

// Package hack contains zero-copy conversions between strings and byte
// slices. Used on syscall paths where the user buffer has already been
// validated and a copy would only serve the type system.
package hack

import "unsafe"

// ByteSliceToString converts []byte to string without copy.
// The caller must not mutate b while the returned string is live.
func ByteSliceToString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// StringToByteSlice converts string to []byte without copy.
// The returned slice must not be written to.
func StringToByteSlice(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
