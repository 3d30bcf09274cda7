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

package forms_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/getodk/web-forms-sub004/pkg/runtime"
	"github.com/getodk/web-forms-sub004/pkg/testutil/generator"
)

var surveyForm = generator.NewXForm("survey",
	generator.WithTranslation("en", true, map[string]string{"city:label": "City", "hello": "Hello"}),
	generator.WithTranslation("es", false, map[string]string{"city:label": "Ciudad", "hello": "Hola"}),
	generator.WithSecondaryInstance("cities", `<root>
		<item><name>mad</name><label>Madrid</label><country>es</country></item>
		<item><name>bcn</name><label>Barcelona</label><country>es</country></item>
		<item><name>lis</name><label>Lisbon</label><country>pt</country></item>
	</root>`),
	generator.WithPrimaryInstance(`<data id="survey" version="3"><country>es</country><city/><greeting/><visits><place/></visits><orx:meta><orx:instanceID/></orx:meta></data>`),
	generator.WithBind("/data/greeting", generator.WithCalculate("jr:itext('hello')")),
	generator.WithBody(
		`<input ref="/data/country"/>`,
		`<select1 ref="/data/city"><label ref="jr:itext('city:label')"/>
			<itemset nodeset="instance('cities')/root/item[country = current()/../country]">
				<value ref="name"/><label ref="label"/>
			</itemset>
		</select1>`,
		`<repeat nodeset="/data/visits"><input ref="place"/></repeat>`,
	),
)

var _ = Describe("Form sessions", func() {
	var in *runtime.Instance

	BeforeEach(func() {
		in = start(surveyForm)
	})

	Describe("translations", func() {
		It("switches labels and translated calculations", func() {
			Expect(in.Languages()).To(ConsistOf("en", "es"))
			Expect(stateOf(in, "/data/city").Label).To(Equal("City"))
			Expect(valueOf(in, "/data/greeting")).To(Equal("Hello"))

			Expect(in.SetLanguage("es")).To(Succeed())
			Expect(stateOf(in, "/data/city").Label).To(Equal("Ciudad"))
			Expect(valueOf(in, "/data/greeting")).To(Equal("Hola"))
		})
	})

	Describe("select options", func() {
		It("filters an itemset from a secondary instance", func() {
			options, err := leaf(in, "/data/city").Options()
			Expect(err).NotTo(HaveOccurred())
			Expect(options).To(Equal([]runtime.SelectOption{
				{Value: "mad", Label: "Madrid"},
				{Value: "bcn", Label: "Barcelona"},
			}))

			answer(in, "/data/country", "pt")
			options, err = leaf(in, "/data/city").Options()
			Expect(err).NotTo(HaveOccurred())
			Expect(options).To(Equal([]runtime.SelectOption{{Value: "lis", Label: "Lisbon"}}))
		})
	})

	Describe("serialization", func() {
		It("round-trips through Edit", func() {
			answer(in, "/data/city", "bcn")
			r, ok := in.FindRepeatRange("/data/visits")
			Expect(ok).To(BeTrue())
			added, err := r.Append(1)
			Expect(err).NotTo(HaveOccurred())
			place, _ := added[0].Children()[0].AsLeaf()
			Expect(place.SetValue("museum & park")).To(Succeed())

			xml, err := in.Serialize()
			Expect(err).NotTo(HaveOccurred())
			Expect(xml).To(ContainSubstring(`id="survey"`))
			Expect(xml).To(ContainSubstring(`version="3"`))
			Expect(xml).To(ContainSubstring(`<city>bcn</city>`))
			Expect(xml).To(ContainSubstring(`<visits><place/></visits><visits><place>museum &amp; park</place></visits>`))
			Expect(xml).To(ContainSubstring(`xmlns:orx="http://openrosa.org/xforms"`))

			edited, err := runtime.EditString(in.Model(), xml, env.options())
			Expect(err).NotTo(HaveOccurred())
			Expect(valueOf(edited, "/data/city")).To(Equal("bcn"))
			Expect(valuesOf(edited, "/data/visits/place")).To(Equal([]string{"", "museum & park"}))

			again, err := edited.Serialize()
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(xml))
		})

		It("refuses an instance of another form", func() {
			_, err := runtime.EditString(in.Model(), `<other id="x"/>`, env.options())
			Expect(err).To(MatchError(runtime.ErrInstanceMismatch))
		})
	})

	Describe("reset", func() {
		It("discards answers and detaches old nodes", func() {
			old := leaf(in, "/data/country")
			answer(in, "/data/country", "pt")

			Expect(in.Reset()).To(Succeed())
			Expect(valueOf(in, "/data/country")).To(Equal("es"))
			Expect(old.Attached()).To(BeFalse())
			Expect(old.SetValue("fr")).To(MatchError(runtime.ErrDetached))
		})
	})

	Describe("metrics", func() {
		It("records writes and expression evaluations on the shared registry", func() {
			answer(in, "/data/country", "pt")

			count, err := testutil.GatherAndCount(env.Registry,
				"xform_runtime_writes_total",
				"xform_runtime_effect_runs_total",
				"xform_xpath_evaluation_duration_seconds",
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeNumerically(">=", 3))
		})
	})
})
