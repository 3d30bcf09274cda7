// Copyright 2025 The Kubernetes Authors.
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

package view

import (
	"fmt"
	"io"
	"runtime"

	"sigs.k8s.io/release-utils/version"
)

// Stream writes command output.
type Stream struct {
	Writer io.Writer
}

func NewStream(w io.Writer) *Stream {
	return &Stream{
		Writer: w,
	}
}

func (s *Stream) Println(args ...any) {
	fmt.Fprintln(s.Writer, args...)
}

func (s *Stream) Printf(fmtStr string, args ...any) {
	fmt.Fprintf(s.Writer, fmtStr, args...)
}

func (s *Stream) PrintVersion() {
	fmt.Fprintf(s.Writer, "xform version %s\n", version.GetVersionInfo().GitVersion)
	fmt.Fprintf(s.Writer, "%s/%s\n", runtime.GOOS, runtime.GOARCH)
}
