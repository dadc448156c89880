// corvid.dev/go/subray - a 2D vector rendering library
// Copyright (C) 2026  The subray Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package subray

import "fmt"

// MalformedInputError is spec §7's MalformedInput kind: a format-specific
// layouter detected invalid subtitle data for one event. The affected
// event is treated as absent; render continues with the rest.
type MalformedInputError struct {
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("subray: malformed input: %s", e.Reason)
}

// RasterizerBackendError is spec §7's RasterizerBackend kind: the
// concrete Backend implementation reported a failure of its own (e.g. a
// GPU backend's resource exhaustion). The reference SoftwareBackend never
// returns one itself, but the Backend interface's Execute-style callers
// (frame.PaintOp.Execute) surface a backend's own error through it.
type RasterizerBackendError struct {
	Err error
}

func (e *RasterizerBackendError) Error() string {
	return fmt.Sprintf("subray: rasterizer backend: %v", e.Err)
}

func (e *RasterizerBackendError) Unwrap() error { return e.Err }
