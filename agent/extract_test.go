package agent_test

import (
	"tutobot/agent"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractJSON", func() {

	It("parses a bare JSON object", func() {
		out, err := agent.ExtractJSON(`{"title": "Fractions", "week": 1}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(out["title"]).To(Equal("Fractions"))
		Expect(out["week"]).To(Equal(float64(1)))
	})

	It("prefers the first fenced block", func() {
		text := "Here is the plan:\n```json\n{\"week\": 1}\n```\nAnd a second block:\n```json\n{\"week\": 2}\n```"
		out, err := agent.ExtractJSON(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(out["week"]).To(Equal(float64(1)))
	})

	It("handles a fence without a language tag", func() {
		text := "```\n{\"ok\": true}\n```"
		out, err := agent.ExtractJSON(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(out["ok"]).To(Equal(true))
	})

	It("handles an unterminated fence", func() {
		text := "```json\n{\"ok\": true}"
		out, err := agent.ExtractJSON(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(out["ok"]).To(Equal(true))
	})

	It("narrows to the outermost braces when prose surrounds the object", func() {
		text := `Sure! Here is your curriculum: {"weeks": [{"week": 1}]} Hope that helps.`
		out, err := agent.ExtractJSON(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveKey("weeks"))
	})

	It("returns an ExtractionError carrying the raw text when no object exists", func() {
		_, err := agent.ExtractJSON("I could not produce the content you asked for.")
		var extErr *agent.ExtractionError
		Expect(err).To(BeAssignableToTypeOf(extErr))
		extErr = err.(*agent.ExtractionError)
		Expect(extErr.Raw).To(ContainSubstring("could not produce"))
	})

	It("returns an ExtractionError for malformed JSON between braces", func() {
		_, err := agent.ExtractJSON(`{"title": "unterminated`)
		var extErr *agent.ExtractionError
		Expect(err).To(BeAssignableToTypeOf(extErr))
	})
})

var _ = Describe("SentinelOutput", func() {

	It("round-trips through IsSentinel", func() {
		out := agent.SentinelOutput("not json at all")
		Expect(agent.IsSentinel(out)).To(BeTrue())
		Expect(out["raw_output"]).To(Equal("not json at all"))
	})

	It("does not flag ordinary outputs", func() {
		Expect(agent.IsSentinel(agent.TaskOutput{"error": "something else"})).To(BeFalse())
		Expect(agent.IsSentinel(nil)).To(BeFalse())
	})
})
