package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractMerchant", func() {
	var (
		lines    []string
		merchant string
	)

	JustBeforeEach(func() {
		merchant = ExtractMerchant(lines)
	})

	When("the first line is a name", func() {
		BeforeEach(func() {
			lines = []string{"Joe's Diner", "Business Dinner    $75.00"}
		})

		It("should return the first line", func() {
			Expect(merchant).To(Equal("Joe's Diner"))
		})
	})

	When("the first line is a structural header", func() {
		BeforeEach(func() {
			lines = []string{"RECEIPT #123", "Corner Cafe", "Coffee 3.50"}
		})

		It("should skip it", func() {
			Expect(merchant).To(Equal("Corner Cafe"))
		})
	})

	When("every top line is filtered", func() {
		BeforeEach(func() {
			lines = []string{"12345", "Date: 01/01/2024", "ab", "Good Store"}
		})

		It("should fall back to the first raw line", func() {
			Expect(merchant).To(Equal("12345"))
		})
	})

	When("the only candidate is below the top three lines", func() {
		BeforeEach(func() {
			lines = []string{"Receipt", "Invoice 1", "Bill to", "Good Store"}
		})

		It("should not look further down", func() {
			Expect(merchant).To(Equal("Receipt"))
		})
	})

	When("there are no lines", func() {
		BeforeEach(func() {
			lines = []string{}
		})

		It("should return the sentinel", func() {
			Expect(merchant).To(Equal(UnknownMerchant))
		})
	})
})
