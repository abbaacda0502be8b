package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"tutobot/agent"
	"tutobot/aitools"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseQuizQuestions", func() {

	It("converts well-formed question maps", func() {
		questions := parseQuizQuestions([]any{
			map[string]any{
				"question":       "What is 2+2?",
				"type":           "MULTIPLE_CHOICE",
				"options":        []any{"2", "3", "4", "5"},
				"correct_answer": "4",
				"points":         float64(1),
			},
		})
		Expect(questions).To(HaveLen(1))
		Expect(questions[0].Question).To(Equal("What is 2+2?"))
		Expect(questions[0].Options).To(Equal([]string{"2", "3", "4", "5"}))
		Expect(questions[0].Points).To(Equal(int64(1)))
	})

	It("defaults the type to multiple choice", func() {
		questions := parseQuizQuestions([]any{
			map[string]any{"question": "Q", "correct_answer": "A"},
		})
		Expect(questions[0].Type).To(Equal(aitools.QuestionMultipleChoice))
	})

	It("skips entries missing question or answer", func() {
		questions := parseQuizQuestions([]any{
			map[string]any{"question": "Q without answer"},
			map[string]any{"correct_answer": "orphan answer"},
			"not even a map",
			map[string]any{"question": "Valid", "correct_answer": "Yes"},
		})
		Expect(questions).To(HaveLen(1))
		Expect(questions[0].Question).To(Equal("Valid"))
	})

	It("returns nil for a non-list payload", func() {
		Expect(parseQuizQuestions("nope")).To(BeNil())
		Expect(parseQuizQuestions(nil)).To(BeNil())
	})
})

var _ = Describe("formatLessonDoc", func() {

	It("orders known sections and titles them", func() {
		doc := formatLessonDoc(agent.TaskOutput{
			"title":      "Week 1: Fractions",
			"objectives": []any{"Understand halves", "Compare fractions"},
			"homework":   "Worksheet 3",
			"activities": []any{"Pizza slicing demo"},
		})

		Expect(doc).To(HavePrefix("Week 1: Fractions\n"))
		Expect(doc).To(ContainSubstring("Learning Objectives\n- Understand halves\n- Compare fractions\n"))
		Expect(doc).To(ContainSubstring("Activities\n- Pizza slicing demo\n"))
		Expect(doc).To(ContainSubstring("Homework\nWorksheet 3\n"))
		// Objectives come before homework
		Expect(strings.Index(doc, "Learning Objectives")).To(BeNumerically("<", strings.Index(doc, "Homework")))
	})

	It("appends unknown keys as their own headed sections", func() {
		doc := formatLessonDoc(agent.TaskOutput{
			"title":            "Week 2",
			"assessment_ideas": "Quick oral quiz",
		})
		Expect(doc).To(ContainSubstring("Assessment Ideas\nQuick oral quiz\n"))
	})
})

var _ = Describe("buildSummary", func() {

	It("includes stages, artifacts and warnings", func() {
		result := &Result{
			Curriculum: approvedResult(agent.TaskOutput{}),
			Lessons:    []*agent.LoopResult{approvedResult(agent.TaskOutput{})},
			Assessment: approvedResult(agent.TaskOutput{}),
			Artifacts: []aitools.Artifact{
				{Kind: "document", Title: "Week 1 Lesson Plan", URL: "https://example.test/doc"},
			},
			Warnings: []string{"tracking sheet unavailable"},
		}
		md := buildSummary(Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3}, result)

		Expect(md).To(ContainSubstring("# Content Generation Summary"))
		Expect(md).To(ContainSubstring("**Curriculum**: APPROVED, score 85"))
		Expect(md).To(ContainSubstring("[Week 1 Lesson Plan](https://example.test/doc)"))
		Expect(md).To(ContainSubstring("tracking sheet unavailable"))
	})
})

var _ = Describe("DebugLogger", func() {

	It("writes events as JSONL", func() {
		dir := filepath.Join(GinkgoT().TempDir(), "debug")
		logger, err := NewDebugLogger(dir)
		Expect(err).NotTo(HaveOccurred())
		defer logger.Close()

		Expect(logger.IsEnabled()).To(BeTrue())
		logger.LogEvent("task_started", map[string]any{"stage": "planner"})
		logger.Close()

		raw, err := os.ReadFile(filepath.Join(dir, "events.log"))
		Expect(err).NotTo(HaveOccurred())

		var entry map[string]any
		Expect(json.Unmarshal(raw[:len(raw)-1], &entry)).To(Succeed())
		Expect(entry["event"]).To(Equal("task_started"))
		Expect(entry["stage"]).To(Equal("planner"))
		Expect(entry).To(HaveKey("timestamp"))
	})

	It("is disabled for an empty directory", func() {
		logger, err := NewDebugLogger("")
		Expect(err).NotTo(HaveOccurred())
		Expect(logger.IsEnabled()).To(BeFalse())
		// Logging is a no-op rather than a crash
		logger.LogEvent("noop", nil)
	})
})
