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

package xmldom

import (
	"testing"

	"github.com/santhosh-tekuri/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `<?xml version="1.0"?>
<h:html xmlns="http://www.w3.org/2002/xforms" xmlns:h="http://www.w3.org/1999/xhtml" xmlns:jr="http://openrosa.org/javarosa">
  <h:head>
    <model>
      <instance>
        <data id="sample">
          <rep jr:template=""><x>default</x></rep>
          <note>a &amp; b</note>
        </data>
      </instance>
    </model>
  </h:head>
</h:html>`

func TestParse(t *testing.T) {
	root, err := ParseString(sampleDoc)
	require.NoError(t, err)

	assert.Equal(t, "html", root.Local)
	assert.Equal(t, "http://www.w3.org/1999/xhtml", root.URI)
	assert.Equal(t, "h:html", QualifiedName(root.Name))

	head := ChildElements(root)[0]
	model := ChildElements(head)[0]
	assert.Equal(t, "model", model.Local)
	assert.Equal(t, "http://www.w3.org/2002/xforms", model.URI)
	assert.Equal(t, "", model.Prefix)
	assert.Same(t, head, ParentElement(model))
	assert.Nil(t, ParentElement(root))

	data := ChildElements(ChildElements(model)[0])[0]
	assert.Equal(t, "sample", Attr(data, "id"))
	assert.True(t, HasChildElements(data))
	assert.Len(t, data.ChildNodes, 2, "blank text between elements is dropped")

	rep := ChildElements(data)[0]
	_, ok := LookupAttr(rep, "http://openrosa.org/javarosa", "template")
	assert.True(t, ok)
	_, ok = LookupAttr(rep, "", "template")
	assert.False(t, ok)
	assert.Equal(t, "default", Text(rep))

	note := ChildElements(data)[1]
	assert.Equal(t, "a & b", Text(note))
	assert.False(t, HasChildElements(note))
}

func TestParseMergesText(t *testing.T) {
	root, err := ParseString(`<a>one<!-- c --> two<?pi x?><![CDATA[ <three>]]></a>`)
	require.NoError(t, err)

	require.Len(t, root.ChildNodes, 1)
	assert.Equal(t, "one two <three>", Text(root))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "unterminated", input: "<a><b></a>"},
		{name: "text only", input: "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	root, err := ParseString(`<a x="1"><b>one</b></a>`)
	require.NoError(t, err)

	clone := Clone(root)
	SetText(ChildElements(clone)[0], "two")
	SetAttr(clone, "x", "2")

	assert.Equal(t, "one", Text(root))
	assert.Equal(t, "1", Attr(root, "x"))
	assert.Equal(t, "two", Text(clone))
	assert.Equal(t, "2", Attr(clone, "x"))
	assert.Nil(t, ParentElement(clone))
	assert.Same(t, clone, ParentElement(ChildElements(clone)[0]))
}

func TestWalk(t *testing.T) {
	root, err := ParseString(`<a><b><c/></b><d/></a>`)
	require.NoError(t, err)

	var seen []string
	Walk(root, func(el *dom.Element) bool {
		seen = append(seen, el.Local)
		return el.Local != "b"
	})
	assert.Equal(t, []string{"a", "b", "d"}, seen)
}

func TestSerialize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "prefix declared where first used",
			input: `<data xmlns:jr="http://openrosa.org/javarosa" id="f"><a jr:x="1">1 &lt; 2</a><b/></data>`,
			want:  `<data id="f"><a xmlns:jr="http://openrosa.org/javarosa" jr:x="1">1 &lt; 2</a><b/></data>`,
		},
		{
			name:  "default namespace declared once",
			input: `<data xmlns="urn:x" xmlns:orx="urn:orx" orx:version="1"><a/><orx:meta/></data>`,
			want:  `<data xmlns="urn:x" xmlns:orx="urn:orx" orx:version="1"><a/><orx:meta/></data>`,
		},
		{
			name:  "default namespace undeclared",
			input: `<data xmlns="urn:x"><a xmlns=""/></data>`,
			want:  `<data xmlns="urn:x"><a xmlns=""/></data>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := ParseString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Serialize(root))
		})
	}
}

func TestNewElement(t *testing.T) {
	el := NewElement("urn:orx", "orx", "meta")
	child := NewElement("urn:orx", "orx", "instanceID")
	el.Append(child)
	SetText(child, "uuid:1")

	assert.Equal(t, `<orx:meta xmlns:orx="urn:orx"><orx:instanceID>uuid:1</orx:instanceID></orx:meta>`, Serialize(el))
}
