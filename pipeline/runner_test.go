package pipeline

import (
	"context"
	"errors"

	"tutobot/agent"
	"tutobot/store"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Runner", func() {
	var (
		ctx       context.Context
		loop      *fakeLoop
		exec      *fakeExec
		workspace *fakeWorkspace
		runs      store.RunStore
		runner    *Runner
	)

	threeWeekCurriculum := agent.TaskOutput{
		"curriculum": []any{
			map[string]any{"week": float64(1), "theme": "Fractions"},
			map[string]any{"week": float64(2), "theme": "Decimals"},
			map[string]any{"week": float64(3), "theme": "Geometry"},
		},
	}

	quizContent := agent.TaskOutput{
		"title": "Fractions Quiz",
		"questions": []any{
			map[string]any{
				"question":       "What is 1/2 + 1/4?",
				"type":           "MULTIPLE_CHOICE",
				"options":        []any{"1/6", "3/4"},
				"correct_answer": "3/4",
				"points":         float64(2),
			},
		},
	}

	newRunner := func() *Runner {
		r, err := NewRunner(RunnerOptions{
			Config:    loadPipelineConfig(),
			Loop:      loop,
			Executor:  exec,
			Runs:      runs,
			Workspace: workspace,
		})
		Expect(err).NotTo(HaveOccurred())
		return r
	}

	BeforeEach(func() {
		ctx = context.Background()
		loop = newFakeLoop()
		exec = &fakeExec{output: agent.TaskOutput{"document": "# Course Summary\n\nAll set."}}
		workspace = &fakeWorkspace{}
		runs = store.NewMemoryBundle().Runs
		runner = nil
	})

	Describe("RunFull", func() {
		BeforeEach(func() {
			loop.queue("planner", approvedResult(threeWeekCurriculum))
			loop.queue("lesson", approvedResult(agent.TaskOutput{"title": "Week 1: Fractions"}))
			loop.queue("lesson", approvedResult(agent.TaskOutput{"title": "Week 2: Decimals"}))
			loop.queue("assessment", approvedResult(quizContent))
			runner = newRunner()
		})

		It("processes only the first two curriculum weeks", func() {
			result, err := runner.RunFull(ctx, Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Lessons).To(HaveLen(2))

			lessonCalls := loop.callsFor("lesson")
			Expect(lessonCalls).To(HaveLen(2))
			Expect(lessonCalls[0].input["week_number"]).To(Equal(1))
			Expect(lessonCalls[1].input["week_number"]).To(Equal(2))

			week, _ := lessonCalls[0].input["curriculum"].(map[string]any)
			Expect(week["theme"]).To(Equal("Fractions"))
		})

		It("assesses week one as a quiz", func() {
			_, err := runner.RunFull(ctx, Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3})
			Expect(err).NotTo(HaveOccurred())

			assessCalls := loop.callsFor("assessment")
			Expect(assessCalls).To(HaveLen(1))
			Expect(assessCalls[0].input["assessment_type"]).To(Equal("quiz"))
			Expect(assessCalls[0].input["week_number"]).To(Equal(1))
		})

		It("hands the export stage all approved content", func() {
			_, err := runner.RunFull(ctx, Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3})
			Expect(err).NotTo(HaveOccurred())

			Expect(exec.inputs).To(HaveLen(1))
			Expect(exec.inputs[0]).To(HaveKey("curriculum"))
			Expect(exec.inputs[0]["lessons"]).To(HaveLen(2))
			Expect(exec.inputs[0]).To(HaveKey("assessment"))
		})

		It("materializes lesson docs, the quiz form, and the summary doc", func() {
			result, err := runner.RunFull(ctx, Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3})
			Expect(err).NotTo(HaveOccurred())

			// Two lesson docs plus the course summary
			Expect(workspace.docs).To(HaveLen(3))
			Expect(workspace.docs[0].title).To(Equal("Week 1 Lesson Plan - Mathematics"))
			Expect(workspace.docs[0].folderID).To(Equal("folder-123"))
			Expect(workspace.docs[2].body).To(ContainSubstring("Course Summary"))

			Expect(workspace.forms).To(HaveLen(1))
			Expect(workspace.forms[0].title).To(Equal("Fractions Quiz"))
			Expect(workspace.forms[0].questions[0].CorrectAnswer).To(Equal("3/4"))

			Expect(result.Artifacts).To(HaveLen(4))
		})

		It("appends a completion row to the tracking sheet", func() {
			_, err := runner.RunFull(ctx, Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3})
			Expect(err).NotTo(HaveOccurred())

			Expect(workspace.sheetIDs).To(ConsistOf("sheet-456"))
			Expect(workspace.rows).To(HaveLen(1))
			Expect(workspace.rows[0]).To(ContainElement("Completed"))
		})

		It("records stage results and marks the run completed", func() {
			result, err := runner.RunFull(ctx, Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3})
			Expect(err).NotTo(HaveOccurred())

			stageResults, err := runs.GetStageResults(result.RunID)
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0, len(stageResults))
			for _, sr := range stageResults {
				Expect(sr.Status).To(Equal("completed"))
				names = append(names, sr.StageName)
			}
			Expect(names).To(ConsistOf("planner", "lesson_week_1", "lesson_week_2", "assessment", "export"))
		})

		It("passes the configured iteration budgets to the loop", func() {
			_, err := runner.RunFull(ctx, Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3})
			Expect(err).NotTo(HaveOccurred())

			// planner sets max_iterations = 3 in config; lesson and
			// assessment fall back to the default of 2
			Expect(loop.callsFor("planner")[0].max).To(Equal(3))
			Expect(loop.callsFor("lesson")[0].max).To(Equal(2))
			Expect(loop.callsFor("assessment")[0].max).To(Equal(2))
		})

		It("enriches the planner input with reference content for known topics", func() {
			_, err := runner.RunFull(ctx, Request{Grade: "5", Subject: "Mathematics", Topics: "Fractions, Decimals", DurationWeeks: 3})
			Expect(err).NotTo(HaveOccurred())

			plannerInput := loop.callsFor("planner")[0].input
			Expect(plannerInput).To(HaveKey("reference_content"))
		})

		It("omits reference content for unknown topics", func() {
			_, err := runner.RunFull(ctx, Request{Grade: "9", Subject: "History", Topics: "Mughal Empire", DurationWeeks: 3})
			Expect(err).NotTo(HaveOccurred())

			plannerInput := loop.callsFor("planner")[0].input
			Expect(plannerInput).NotTo(HaveKey("reference_content"))
		})

		It("collects loop warnings on the result", func() {
			loop.results["lesson"] = nil
			exhausted := approvedResult(agent.TaskOutput{"title": "Week 1"})
			exhausted.Evaluation.Status = agent.StatusRejected
			exhausted.Warning = "stage 'lesson': max iterations (2) reached without approval"
			loop.queue("lesson", exhausted)
			loop.queue("lesson", approvedResult(agent.TaskOutput{"title": "Week 2"}))

			result, err := runner.RunFull(ctx, Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Warnings).To(ContainElement(ContainSubstring("max iterations")))
		})

		It("degrades materialization failures to warnings", func() {
			workspace.formErr = errors.New("quota exceeded")

			result, err := runner.RunFull(ctx, Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Warnings).To(ContainElement(ContainSubstring("quota exceeded")))
			// Docs were still created
			Expect(workspace.docs).To(HaveLen(3))
		})
	})

	Describe("failure handling", func() {
		It("fails the run when the planner output has no curriculum list", func() {
			loop.queue("planner", approvedResult(agent.TaskOutput{"weeks": "not a list"}))
			runner = newRunner()

			_, err := runner.RunFull(ctx, Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("curriculum"))
		})

		It("fails the run when a stage loop errors", func() {
			loop.queue("planner", approvedResult(threeWeekCurriculum))
			loop.errs["lesson"] = errors.New("stage 'lesson': connection reset")
			runner = newRunner()

			_, err := runner.RunFull(ctx, Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("connection reset"))
		})

		It("fails the run when the export stage errors", func() {
			loop.queue("planner", approvedResult(threeWeekCurriculum))
			loop.queue("lesson", approvedResult(agent.TaskOutput{"title": "Week 1"}))
			loop.queue("lesson", approvedResult(agent.TaskOutput{"title": "Week 2"}))
			loop.queue("assessment", approvedResult(quizContent))
			exec.err = errors.New("stage 'export': gateway timeout")
			runner = newRunner()

			_, err := runner.RunFull(ctx, Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("gateway timeout"))
		})
	})

	Describe("RunPlan", func() {
		It("runs only the planner stage", func() {
			loop.queue("planner", approvedResult(threeWeekCurriculum))
			runner = newRunner()

			result, err := runner.RunPlan(ctx, Request{Grade: "5", Subject: "Mathematics", DurationWeeks: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Curriculum).NotTo(BeNil())
			Expect(result.Lessons).To(BeEmpty())
			Expect(loop.calls).To(HaveLen(1))
			Expect(exec.inputs).To(BeEmpty())
		})
	})

	Describe("RunLesson", func() {
		It("generates one lesson for the given week", func() {
			loop.queue("lesson", approvedResult(agent.TaskOutput{"title": "Week 4: Geometry"}))
			runner = newRunner()

			week := map[string]any{"week": float64(4), "theme": "Geometry"}
			result, err := runner.RunLesson(ctx, Request{Grade: "5", Subject: "Mathematics"}, week, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Lessons).To(HaveLen(1))
			Expect(workspace.docs[0].title).To(Equal("Week 4 Lesson Plan - Mathematics"))
		})
	})
})
