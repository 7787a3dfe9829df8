package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Classify", func() {
	DescribeTable("keyword groups",
		func(primary, fullText string, expected Category) {
			Expect(Classify(primary, fullText)).To(Equal(expected))
		},
		Entry("food", "Starbucks Coffee", "", CategoryFoodDining),
		Entry("groceries", "Walmart", "", CategoryGroceries),
		Entry("groceries before shopping", "Target Store", "", CategoryGroceries),
		Entry("food before groceries", "Food Market", "", CategoryFoodDining),
		Entry("transportation", "Shell Station", "", CategoryTransportation),
		Entry("shopping", "Amazon", "", CategoryShoppingRetail),
		Entry("healthcare", "CVS Pharmacy", "", CategoryHealthcare),
		Entry("entertainment", "AMC Cinema", "", CategoryEntertainment),
		Entry("case insensitive", "UBER TRIP", "", CategoryTransportation),
		Entry("utilities from full text", "City Power", "Electric service for May", CategoryHousingUtility),
		Entry("merchant wins over utilities", "Starbucks", "free internet", CategoryFoodDining),
		Entry("no match", "Nothing Here", "nothing to see", CategoryOther),
	)

	It("should only test the full text for utilities", func() {
		Expect(Classify("Acme", "starbucks pizza")).To(Equal(CategoryOther))
	})
})

var _ = Describe("Category", func() {
	It("should accept every listed category", func() {
		for _, c := range Categories {
			Expect(c.Valid()).To(BeTrue())
		}
	})

	It("should reject free text", func() {
		Expect(Category("Travel").Valid()).To(BeFalse())
	})
})
