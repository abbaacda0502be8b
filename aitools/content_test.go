package aitools

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SearchContent", func() {

	It("finds a chapter by grade, subject and topic", func() {
		result := SearchContent(5, "Mathematics", "fractions")
		Expect(result.Chapter).To(Equal("Fractions"))
		Expect(result.KeyConcepts).NotTo(BeEmpty())
		Expect(result.ExampleProblems).NotTo(BeEmpty())
	})

	It("matches case-insensitively with surrounding whitespace", func() {
		result := SearchContent(5, "  science  ", " PHOTOSYNTHESIS ")
		Expect(result.Chapter).To(Equal("Plant Life"))
	})

	It("matches a topic substring", func() {
		result := SearchContent(5, "mathematics", "decimal")
		Expect(result.Chapter).To(Equal("Decimals"))
	})

	It("returns a placeholder when nothing matches", func() {
		result := SearchContent(9, "History", "mughal empire")
		Expect(result.Grade).To(Equal(9))
		Expect(result.Chapter).To(ContainSubstring("not found"))
		Expect(result.KeyConcepts).To(BeEmpty())
	})

	It("does not cross grades", func() {
		result := SearchContent(6, "Mathematics", "fractions")
		Expect(result.Chapter).To(ContainSubstring("not found"))
	})
})
