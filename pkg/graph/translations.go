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

package graph

import (
	"github.com/samber/lo"
	"github.com/santhosh-tekuri/dom"

	"github.com/getodk/web-forms-sub004/pkg/xmldom"
	"github.com/getodk/web-forms-sub004/pkg/xpath"
	"github.com/getodk/web-forms-sub004/pkg/xpath/inspector"
)

// Translations is the itext table of a form: language -> text id -> text.
type Translations struct {
	languages       []string
	defaultLanguage string
	texts           map[string]map[string]string
}

// Languages returns the languages in document order.
func (t *Translations) Languages() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.languages...)
}

// DefaultLanguage is the translation marked default, else the first one.
func (t *Translations) DefaultLanguage() string {
	if t == nil {
		return ""
	}
	return t.defaultLanguage
}

// HasLanguage reports whether lang has a translation.
func (t *Translations) HasLanguage(lang string) bool {
	if t == nil {
		return false
	}
	_, ok := t.texts[lang]
	return ok
}

// Lookup returns the text for id in lang.
func (t *Translations) Lookup(lang, id string) (string, bool) {
	if t == nil {
		return "", false
	}
	s, ok := t.texts[lang][id]
	return s, ok
}

// parseTranslations reads <itext><translation lang=".."><text id=".."><value>.
// A value without a form attribute is preferred over media forms.
func parseTranslations(itext *dom.Element) *Translations {
	t := &Translations{texts: make(map[string]map[string]string)}
	if itext == nil {
		return t
	}
	for _, tr := range xmldom.ChildElements(itext) {
		if tr.Local != "translation" {
			continue
		}
		lang := xmldom.Attr(tr, "lang")
		if _, seen := t.texts[lang]; !seen {
			t.languages = append(t.languages, lang)
			t.texts[lang] = make(map[string]string)
		}
		if d, ok := xmldom.LookupAttr(tr, "", "default"); ok && t.defaultLanguage == "" && isTruthyAttribute(d) {
			t.defaultLanguage = lang
		}
		for _, text := range xmldom.ChildElements(tr) {
			if text.Local != "text" {
				continue
			}
			values := lo.Filter(xmldom.ChildElements(text), func(v *dom.Element, _ int) bool {
				return v.Local == "value"
			})
			if len(values) == 0 {
				continue
			}
			chosen, found := lo.Find(values, func(v *dom.Element) bool {
				_, hasForm := xmldom.LookupAttr(v, "", "form")
				return !hasForm
			})
			if !found {
				chosen = values[0]
			}
			t.texts[lang][xmldom.Attr(text, "id")] = xmldom.Text(chosen)
		}
	}
	if t.defaultLanguage == "" && len(t.languages) > 0 {
		t.defaultLanguage = t.languages[0]
	}
	return t
}

// isTruthyAttribute evaluates boolean-like attributes such as default="true()"
// or jr:noAddRemove="true()".
func isTruthyAttribute(v string) bool {
	switch v {
	case "true", "1":
		return true
	case "false", "0", "":
		return false
	}
	e, err := xpath.Parse(v)
	if err != nil {
		return false
	}
	return inspector.IsConstantTruthyExpression(e)
}
