package domain_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/expert-desk/internal/domain"
)

var _ = Describe("ParseSurface", func() {
	DescribeTable("case variants classify identically",
		func(input string, expected domain.Surface) {
			surface, ok := domain.ParseSurface(input)
			Expect(ok).To(BeTrue())
			Expect(surface).To(Equal(expected))
		},
		Entry("personal", "personal", domain.SurfacePersonal),
		Entry("Personal", "Personal", domain.SurfacePersonal),
		Entry("PERSONAL", "PERSONAL", domain.SurfacePersonal),
		Entry("channel", "channel", domain.SurfaceChannel),
		Entry("ChAnNeL", "ChAnNeL", domain.SurfaceChannel),
	)

	It("rejects other conversation types", func() {
		for _, input := range []string{"groupChat", "", "channels"} {
			_, ok := domain.ParseSurface(input)
			Expect(ok).To(BeFalse(), input)
		}
	})
})
