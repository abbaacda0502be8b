package agent_test

import (
	"context"
	"encoding/json"
	"errors"

	"tutobot/agent"
	"tutobot/llm"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const approvedVerdict = `{"evaluation_result": {"status": "APPROVED", "quality_score": 85, "feedback": "Well structured"}}`
const rejectedVerdict = `{"evaluation_result": {"status": "REJECTED", "quality_score": 40, "feedback": "Add learning objectives"}}`

// lastUserPayload decodes the final user turn of a recorded request.
func lastUserPayload(req *llm.ChatRequest) map[string]any {
	var last string
	for _, m := range req.Messages {
		if m.Role == llm.RoleUser {
			last = m.Content
		}
	}
	var decoded map[string]any
	Expect(json.Unmarshal([]byte(last), &decoded)).To(Succeed())
	return decoded
}

var _ = Describe("Loop", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("returns approved content after a single iteration", func() {
		provider := newScriptedProvider(
			scriptStep{content: `{"lesson": {"title": "Fractions", "week": 1}}`},
			scriptStep{content: approvedVerdict},
		)
		exec, _ := newTestExecutor(provider)
		loop := agent.NewLoop(exec, nil)

		input := agent.TaskInput{"curriculum": map[string]any{}, "week_number": 1}
		result, err := loop.RunWithEvaluation(ctx, "lesson", input, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Iterations).To(Equal(1))
		Expect(result.Warning).To(BeEmpty())
		Expect(result.Evaluation.Approved()).To(BeTrue())
		Expect(result.Evaluation.QualityScore).To(Equal(85))
		Expect(result.Content).To(HaveKeyWithValue("title", "Fractions"))

		// Feedback injection only happens after a rejection; the first
		// generator request carries the input untouched
		firstPayload := lastUserPayload(provider.Requests()[0])
		Expect(firstPayload).NotTo(HaveKey("previous_feedback"))
		Expect(firstPayload).To(HaveKey("curriculum"))
	})

	It("feeds rejection feedback into the retry", func() {
		provider := newScriptedProvider(
			scriptStep{content: `{"lesson": {"title": "Draft"}}`},
			scriptStep{content: rejectedVerdict},
			scriptStep{content: `{"lesson": {"title": "Revised"}}`},
			scriptStep{content: approvedVerdict},
		)
		exec, _ := newTestExecutor(provider)
		loop := agent.NewLoop(exec, nil)

		input := agent.TaskInput{"curriculum": map[string]any{}, "week_number": 1}
		result, err := loop.RunWithEvaluation(ctx, "lesson", input, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Iterations).To(Equal(2))
		Expect(result.Content).To(HaveKeyWithValue("title", "Revised"))

		reqs := provider.Requests()
		Expect(reqs).To(HaveLen(4))

		// Second generator call carries the evaluator's feedback next to
		// the original inputs
		retry := lastUserPayload(reqs[2])
		Expect(retry).To(HaveKeyWithValue("previous_feedback", "Add learning objectives"))
		Expect(retry).To(HaveKey("curriculum"))
		Expect(retry).To(HaveKey("week_number"))
	})

	It("hands the evaluator the generator's context", func() {
		provider := newScriptedProvider(
			scriptStep{content: `{"lesson": {"title": "Fractions"}}`},
			scriptStep{content: approvedVerdict},
		)
		exec, _ := newTestExecutor(provider)
		loop := agent.NewLoop(exec, nil)

		input := agent.TaskInput{"curriculum": map[string]any{}, "week_number": 1}
		_, err := loop.RunWithEvaluation(ctx, "lesson", input, 1)
		Expect(err).NotTo(HaveOccurred())

		evalPayload := lastUserPayload(provider.Requests()[1])
		Expect(evalPayload).To(HaveKeyWithValue("generator_name", "lesson"))
		Expect(evalPayload["original_instruction"]).NotTo(BeEmpty())
		Expect(evalPayload["generator_inputs"]).To(HaveKey("week_number"))
		Expect(evalPayload["generator_output"]).To(HaveKey("lesson"))
	})

	It("returns the last attempt with a warning when the budget runs out", func() {
		provider := newScriptedProvider(
			scriptStep{content: `{"lesson": {"title": "Attempt 1"}}`},
			scriptStep{content: rejectedVerdict},
			scriptStep{content: `{"lesson": {"title": "Attempt 2"}}`},
			scriptStep{content: rejectedVerdict},
		)
		exec, _ := newTestExecutor(provider)
		recorder := &eventRecorder{}
		loop := agent.NewLoop(exec, recorder)

		input := agent.TaskInput{"curriculum": map[string]any{}, "week_number": 1}
		result, err := loop.RunWithEvaluation(ctx, "lesson", input, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Warning).To(ContainSubstring("max iterations"))
		Expect(result.Iterations).To(Equal(2))
		Expect(result.Content).To(HaveKeyWithValue("title", "Attempt 2"))
		Expect(result.Evaluation.Approved()).To(BeFalse())
		Expect(recorder.ofType(agent.EventLoopExhausted)).To(HaveLen(1))
	})

	It("fails closed on a malformed verdict", func() {
		provider := newScriptedProvider(
			scriptStep{content: `{"lesson": {"title": "Draft"}}`},
			scriptStep{content: `{"evaluation_result": {"verdict": "looks good"}}`},
		)
		exec, _ := newTestExecutor(provider)
		loop := agent.NewLoop(exec, nil)

		input := agent.TaskInput{"curriculum": map[string]any{}, "week_number": 1}
		result, err := loop.RunWithEvaluation(ctx, "lesson", input, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Evaluation.Status).To(Equal(agent.StatusRejected))
		Expect(result.Evaluation.QualityScore).To(Equal(0))
		Expect(result.Evaluation.Feedback).To(Equal("No feedback provided"))
		Expect(result.Warning).NotTo(BeEmpty())
	})

	It("treats an unwrapped verdict object as the verdict itself", func() {
		provider := newScriptedProvider(
			scriptStep{content: `{"lesson": {"title": "Draft"}}`},
			scriptStep{content: `{"status": "APPROVED", "quality_score": 91, "feedback": "Solid"}`},
		)
		exec, _ := newTestExecutor(provider)
		loop := agent.NewLoop(exec, nil)

		input := agent.TaskInput{"curriculum": map[string]any{}, "week_number": 1}
		result, err := loop.RunWithEvaluation(ctx, "lesson", input, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Evaluation.Approved()).To(BeTrue())
		Expect(result.Evaluation.QualityScore).To(Equal(91))
	})

	It("propagates generator transport errors", func() {
		provider := newScriptedProvider(scriptStep{err: errors.New("gateway timeout")})
		exec, _ := newTestExecutor(provider)
		loop := agent.NewLoop(exec, nil)

		input := agent.TaskInput{"curriculum": map[string]any{}, "week_number": 1}
		_, err := loop.RunWithEvaluation(ctx, "lesson", input, 3)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("gateway timeout"))
	})

	It("propagates evaluator transport errors", func() {
		provider := newScriptedProvider(
			scriptStep{content: `{"lesson": {"title": "Draft"}}`},
			scriptStep{err: errors.New("gateway timeout")},
		)
		exec, _ := newTestExecutor(provider)
		loop := agent.NewLoop(exec, nil)

		input := agent.TaskInput{"curriculum": map[string]any{}, "week_number": 1}
		_, err := loop.RunWithEvaluation(ctx, "lesson", input, 3)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("evaluator"))
	})

	It("keeps list-valued output keys wrapped", func() {
		provider := newScriptedProvider(
			scriptStep{content: `{"curriculum": [{"week": 1}, {"week": 2}]}`},
			scriptStep{content: approvedVerdict},
		)
		exec, _ := newTestExecutor(provider)
		loop := agent.NewLoop(exec, nil)

		result, err := loop.RunWithEvaluation(ctx, "planner", agent.TaskInput{"grade": "6"}, 1)
		Expect(err).NotTo(HaveOccurred())
		// The planner's curriculum is a list, so the envelope survives
		Expect(result.Content).To(HaveKey("curriculum"))
		weeks, ok := result.Content["curriculum"].([]any)
		Expect(ok).To(BeTrue())
		Expect(weeks).To(HaveLen(2))
	})
})
