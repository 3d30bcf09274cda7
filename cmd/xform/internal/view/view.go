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

var _ Viewer = (*HumanView)(nil)
var _ Viewer = (*JSONView)(nil)

// Viewer is the view layer a command renders through.
type Viewer interface {
	Logger() Logger
	Type() ViewType
}

// NewViewer returns the viewer for vt. Structured formats log as JSON,
// everything else through the human logger.
func NewViewer(vt ViewType, s *Stream, level LogLevel) Viewer {
	switch vt {
	case ViewHuman, ViewXML, ViewTable:
		return NewHumanView(s, level).withType(vt)
	case ViewJSON, ViewYAML:
		return NewJSONView(s, level).withType(vt)
	default:
		panic("unknown view type")
	}
}

type HumanView struct {
	*Stream
	logger Logger
	vt     ViewType
}

func NewHumanView(s *Stream, level LogLevel) *HumanView {
	var logger Logger
	if level == LogLevelSilent {
		logger = NewNopLogger()
	} else {
		logger = NewHumanLogger(s.Writer, level)
	}
	return &HumanView{
		Stream: s,
		logger: logger,
		vt:     ViewHuman,
	}
}

func (h *HumanView) withType(vt ViewType) *HumanView {
	h.vt = vt
	return h
}

func (h *HumanView) Logger() Logger {
	return h.logger
}

func (h *HumanView) Type() ViewType {
	return h.vt
}

type JSONView struct {
	*Stream
	logger Logger
	vt     ViewType
}

func NewJSONView(s *Stream, level LogLevel) *JSONView {
	var logger Logger
	if level == LogLevelSilent {
		logger = NewNopLogger()
	} else {
		logger = NewJSONLogger(s.Writer, level)
	}
	return &JSONView{
		Stream: s,
		logger: logger,
		vt:     ViewJSON,
	}
}

func (j *JSONView) withType(vt ViewType) *JSONView {
	j.vt = vt
	return j
}

func (j *JSONView) Logger() Logger {
	return j.logger
}

func (j *JSONView) Type() ViewType {
	return j.vt
}
