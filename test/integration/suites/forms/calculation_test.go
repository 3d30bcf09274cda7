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

	"github.com/getodk/web-forms-sub004/pkg/runtime"
	"github.com/getodk/web-forms-sub004/pkg/testutil/generator"
)

var _ = Describe("Calculations", func() {
	var in *runtime.Instance

	BeforeEach(func() {
		in = start(generator.NewXForm("invoice",
			generator.WithPrimaryInstance(`<data id="invoice"><qty>2</qty><price>5</price><subtotal/><tax/><total/></data>`),
			generator.WithBind("/data/qty", generator.WithType("int")),
			generator.WithBind("/data/subtotal", generator.WithCalculate("/data/qty * /data/price")),
			generator.WithBind("/data/tax", generator.WithCalculate("/data/subtotal * 0.2")),
			generator.WithBind("/data/total", generator.WithCalculate("/data/subtotal + /data/tax")),
			generator.WithBody(`<input ref="/data/qty"/>`, `<input ref="/data/price"/>`),
		))
	})

	It("computes the chain on load", func() {
		Expect(valueOf(in, "/data/subtotal")).To(Equal("10"))
		Expect(valueOf(in, "/data/tax")).To(Equal("2"))
		Expect(valueOf(in, "/data/total")).To(Equal("12"))
	})

	It("recomputes every dependent after a write", func() {
		answer(in, "/data/qty", "3")
		Expect(valueOf(in, "/data/total")).To(Equal("18"))

		answer(in, "/data/price", "")
		Expect(valueOf(in, "/data/total")).To(Equal("NaN"))
	})

	It("recomputes once for a batch of writes", func() {
		Expect(in.Batch(func() error {
			if err := leaf(in, "/data/qty").SetValue("1"); err != nil {
				return err
			}
			return leaf(in, "/data/price").SetValue("100")
		})).To(Succeed())
		Expect(valueOf(in, "/data/total")).To(Equal("120"))
	})

	It("orders calculations after what they read", func() {
		Expect(in.Model().TopologicalOrder()).To(Equal([]string{"/data/subtotal", "/data/tax", "/data/total"}))
	})
})

var _ = Describe("Relevance", func() {
	var in *runtime.Instance

	BeforeEach(func() {
		in = start(generator.NewXForm("consent",
			generator.WithPrimaryInstance(`<data id="consent"><agree/><details><email/><phone>555</phone></details><summary/></data>`),
			generator.WithBind("/data/details", generator.WithRelevant("/data/agree = 'yes'")),
			generator.WithBind("/data/details/email", generator.WithRequired("true()")),
			generator.WithBind("/data/summary", generator.WithCalculate("concat('phone:', /data/details/phone)")),
			generator.WithBody(
				`<input ref="/data/agree"/>`,
				`<group ref="/data/details"><input ref="/data/details/email"/><input ref="/data/details/phone"/></group>`,
			),
		))
	})

	It("hides descendants of a non-relevant group", func() {
		s := stateOf(in, "/data/details/phone")
		Expect(s.Relevant).To(BeFalse())
		Expect(s.Value).To(BeEmpty())
		Expect(valueOf(in, "/data/summary")).To(Equal("phone:"))
	})

	It("does not flag required fields that are not relevant", func() {
		Expect(stateOf(in, "/data/details/email").Validation.Valid).To(BeTrue())
	})

	It("restores values and validation once relevant", func() {
		answer(in, "/data/agree", "yes")

		Expect(stateOf(in, "/data/details/phone").Value).To(Equal("555"))
		Expect(valueOf(in, "/data/summary")).To(Equal("phone:555"))

		email := stateOf(in, "/data/details/email")
		Expect(email.Required).To(BeTrue())
		Expect(email.Validation.Violation).To(Equal(runtime.ViolationRequired))

		answer(in, "/data/details/email", "a@example.org")
		Expect(stateOf(in, "/data/details/email").Validation.Valid).To(BeTrue())
	})

	It("blanks non-relevant nodes when serializing", func() {
		xml, err := in.Serialize()
		Expect(err).NotTo(HaveOccurred())
		Expect(xml).To(ContainSubstring("<details/>"))
		Expect(xml).NotTo(ContainSubstring("555"))
	})
})

var _ = Describe("Readonly and constraints", func() {
	It("rejects writes to readonly nodes and checks constraints", func() {
		in := start(generator.NewXForm("age",
			generator.WithPrimaryInstance(`<data id="age"><locked>fixed</locked><age/></data>`),
			generator.WithBind("/data/locked", generator.WithReadonly("true()")),
			generator.WithBind("/data/age", generator.WithConstraint(". >= 18", "Must be an adult")),
			generator.WithBody(`<input ref="/data/age"/>`),
		))

		err := leaf(in, "/data/locked").SetValue("changed")
		Expect(err).To(MatchError(runtime.ErrReadonlyWrite))
		Expect(valueOf(in, "/data/locked")).To(Equal("fixed"))

		Expect(stateOf(in, "/data/age").Validation.Valid).To(BeTrue())

		answer(in, "/data/age", "12")
		v := stateOf(in, "/data/age").Validation
		Expect(v.Violation).To(Equal(runtime.ViolationConstraint))
		Expect(v.Message).To(Equal("Must be an adult"))

		answer(in, "/data/age", "40")
		Expect(stateOf(in, "/data/age").Validation.Valid).To(BeTrue())
	})
})
