package extraction

import (
	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractLineItems", func() {
	var (
		lines []string
		items []LineItem
	)

	JustBeforeEach(func() {
		items = ExtractLineItems(lines)
	})

	When("lines hold descriptions and prices", func() {
		BeforeEach(func() {
			lines = []string{"Joe's Diner", "Business Dinner    $75.00", "Taxi Fare $25.00", "01/15/2024"}
		})

		It("should return one item per line in order", func() {
			Expect(items).To(HaveLen(2))
			Expect(items[0].Description).To(Equal("Business Dinner"))
			Expect(items[0].Amount.Equal(decimal.NewFromInt(75))).To(BeTrue())
			Expect(items[1].Description).To(Equal("Taxi Fare"))
			Expect(items[1].Amount.Equal(decimal.NewFromInt(25))).To(BeTrue())
		})
	})

	When("a line contains a noise keyword", func() {
		BeforeEach(func() {
			lines = []string{"Thank you for shopping with us $500.00", "Subtotal 30.00", "Sales Tax 2.40", "Total 32.40"}
		})

		It("should never treat it as an item", func() {
			Expect(items).To(BeEmpty())
		})
	})

	When("the amount is out of range", func() {
		BeforeEach(func() {
			lines = []string{"Gift card 0.00", "Television 12000.00"}
		})

		It("should reject it", func() {
			Expect(items).To(BeEmpty())
		})
	})

	When("the description is too short", func() {
		BeforeEach(func() {
			lines = []string{"Ab 5.00"}
		})

		It("should reject it", func() {
			Expect(items).To(BeEmpty())
		})
	})

	When("the line is shorter than five characters", func() {
		BeforeEach(func() {
			lines = []string{"A 12"}
		})

		It("should skip it", func() {
			Expect(items).To(BeEmpty())
		})
	})

	When("the amount has no fraction", func() {
		BeforeEach(func() {
			lines = []string{"Tea 3", "Printer Ink  30.5"}
		})

		It("should accept whole and one-digit amounts", func() {
			Expect(items).To(HaveLen(2))
			Expect(items[0].Amount.Equal(decimal.NewFromInt(3))).To(BeTrue())
			Expect(items[1].Amount.Equal(decimal.RequireFromString("30.5"))).To(BeTrue())
		})
	})

	When("no line matches", func() {
		BeforeEach(func() {
			lines = []string{"Walmart", "Total: $142.37"}
		})

		It("should return an empty list", func() {
			Expect(items).NotTo(BeNil())
			Expect(items).To(BeEmpty())
		})
	})
})

var _ = DescribeTable("ExtractLineItems noise keywords inside words",
	func(line string) {
		Expect(ExtractLineItems([]string{line})).To(BeEmpty())
	},
	Entry("joined grand total", "GRANDTOTAL 88.50"),
	Entry("telephone number", "Telephone 555 1234"),
	Entry("prepayment", "Prepayment 40.00"),
	Entry("web address", "shop.example.com 12.00"),
)

var _ = Describe("ExtractLineItems with dated lines", func() {
	It("should not read a year as a price", func() {
		items := ExtractLineItems([]string{"Croissant 3.20", "Feb 14, 2024", "Mar 1 2024"})
		Expect(items).To(HaveLen(1))
		Expect(items[0].Description).To(Equal("Croissant"))
	})
})
