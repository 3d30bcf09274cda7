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

func rangeOf(in *runtime.Instance, nodeset string) runtime.RepeatRange {
	GinkgoHelper()
	r, ok := in.FindRepeatRange(nodeset)
	Expect(ok).To(BeTrue(), "no repeat %s", nodeset)
	return r
}

var _ = Describe("Repeats", func() {
	Context("user controlled", func() {
		var in *runtime.Instance

		BeforeEach(func() {
			in = start(generator.NewXForm("household",
				generator.WithPrimaryInstance(`<data id="household">
					<person jr:template=""><name/><age>0</age><adult/></person>
					<count/><ages/>
				</data>`),
				generator.WithBind("/data/person/adult", generator.WithCalculate("if(../age >= 18, 'yes', 'no')")),
				generator.WithBind("/data/count", generator.WithCalculate("count(/data/person)")),
				generator.WithBind("/data/ages", generator.WithCalculate("sum(/data/person/age)")),
				generator.WithBody(`<repeat nodeset="/data/person"><input ref="name"/><input ref="age"/></repeat>`),
			))
		})

		It("starts without instances when only a template is authored", func() {
			Expect(rangeOf(in, "/data/person").Instances()).To(BeEmpty())
			Expect(valueOf(in, "/data/count")).To(Equal("0"))
		})

		It("creates instances from the template and runs their calculations", func() {
			added, err := rangeOf(in, "/data/person").Append(2)
			Expect(err).NotTo(HaveOccurred())
			Expect(added).To(HaveLen(2))

			Expect(valuesOf(in, "/data/person/age")).To(Equal([]string{"0", "0"}))
			Expect(valuesOf(in, "/data/person/adult")).To(Equal([]string{"no", "no"}))
			Expect(valueOf(in, "/data/count")).To(Equal("2"))

			age, ok := added[1].Children()[1].AsLeaf()
			Expect(ok).To(BeTrue())
			Expect(age.SetValue("30")).To(Succeed())
			Expect(valuesOf(in, "/data/person/adult")).To(Equal([]string{"no", "yes"}))
			Expect(valueOf(in, "/data/ages")).To(Equal("30"))
		})

		It("removes instances and recomputes aggregates", func() {
			r := rangeOf(in, "/data/person")
			added, err := r.Append(3)
			Expect(err).NotTo(HaveOccurred())
			for i, n := range added {
				age, _ := n.Children()[1].AsLeaf()
				Expect(age.SetValue([]string{"10", "20", "30"}[i])).To(Succeed())
			}
			Expect(valueOf(in, "/data/ages")).To(Equal("60"))

			Expect(r.RemoveInstances(0, 2)).To(Succeed())
			Expect(valuesOf(in, "/data/person/age")).To(Equal([]string{"30"}))
			Expect(valueOf(in, "/data/ages")).To(Equal("30"))
			Expect(valueOf(in, "/data/count")).To(Equal("1"))
			Expect(added[0].Attached()).To(BeFalse())
		})

		It("rejects out of range positions", func() {
			r := rangeOf(in, "/data/person")
			_, err := r.AddInstances(3, 1)
			Expect(err).To(MatchError(runtime.ErrIndexOutOfRange))
			Expect(r.RemoveInstances(0, 1)).To(MatchError(runtime.ErrIndexOutOfRange))
		})
	})

	Context("controlled by jr:count", func() {
		It("follows the count expression", func() {
			in := start(generator.NewXForm("children",
				generator.WithPrimaryInstance(`<data id="children"><n>2</n><child jr:template=""><name/></child></data>`),
				generator.WithBody(
					`<input ref="/data/n"/>`,
					`<repeat nodeset="/data/child" jr:count="/data/n"><input ref="name"/></repeat>`,
				),
			))
			r := rangeOf(in, "/data/child")
			Expect(r.Controlled()).To(BeTrue())
			Expect(r.Instances()).To(HaveLen(2))

			answer(in, "/data/n", "5")
			Expect(r.Instances()).To(HaveLen(5))

			answer(in, "/data/n", "0")
			Expect(r.Instances()).To(BeEmpty())

			_, err := r.Append(1)
			Expect(err).To(MatchError(runtime.ErrControlledRange))
		})
	})

	Context("nested", func() {
		It("keeps inner repeats per outer instance", func() {
			in := start(generator.NewXForm("nested",
				generator.WithPrimaryInstance(`<data id="nested">
					<house><room><size>1</size></room><room><size>2</size></room></house>
					<house><room><size>3</size></room></house>
					<total/>
				</data>`),
				generator.WithBind("/data/total", generator.WithCalculate("sum(/data/house/room/size)")),
				generator.WithBody(`<repeat nodeset="/data/house"><repeat nodeset="/data/house/room"><input ref="size"/></repeat></repeat>`),
			))
			Expect(rangeOf(in, "/data/house").Instances()).To(HaveLen(2))
			Expect(valuesOf(in, "/data/house/room/size")).To(Equal([]string{"1", "2", "3"}))
			Expect(valueOf(in, "/data/total")).To(Equal("6"))

			second := rangeOf(in, "/data/house").Instances()[1]
			var rooms runtime.RepeatRange
			for _, c := range second.Children() {
				if r, ok := c.AsRepeatRange(); ok {
					rooms = r
				}
			}
			Expect(rooms.Node).NotTo(BeNil())
			added, err := rooms.Append(1)
			Expect(err).NotTo(HaveOccurred())
			size, _ := added[0].Children()[0].AsLeaf()
			Expect(size.SetValue("4")).To(Succeed())

			Expect(valuesOf(in, "/data/house/room/size")).To(Equal([]string{"1", "2", "3", "4"}))
			Expect(valueOf(in, "/data/total")).To(Equal("10"))
		})
	})
})
