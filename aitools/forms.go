package aitools

import (
	"context"
	"fmt"

	"google.golang.org/api/forms/v1"
)

// Question types accepted by CreateQuizForm
const (
	QuestionMultipleChoice = "MULTIPLE_CHOICE"
	QuestionShortAnswer    = "SHORT_ANSWER"
)

// QuizQuestion is one auto-graded question on a quiz form
type QuizQuestion struct {
	Question      string   `json:"question"`
	Type          string   `json:"type"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Points        int64    `json:"points"`
}

// CreateQuizForm creates a Google Form in quiz mode with auto-graded
// questions.
func (c *WorkspaceClient) CreateQuizForm(ctx context.Context, title string, questions []QuizQuestion) (*Artifact, error) {
	form := &forms.Form{
		Info: &forms.Info{
			Title:         title,
			DocumentTitle: title,
		},
	}
	created, err := c.Forms.Forms.Create(form).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("creating form '%s': %w", title, err)
	}

	batch := &forms.BatchUpdateFormRequest{
		Requests: quizFormRequests(questions),
	}
	if _, err := c.Forms.Forms.BatchUpdate(created.FormId, batch).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("populating form '%s': %w", title, err)
	}

	return &Artifact{
		Kind:  "form",
		ID:    created.FormId,
		Title: title,
		URL:   fmt.Sprintf("https://docs.google.com/forms/d/%s/edit", created.FormId),
	}, nil
}

// quizFormRequests builds the batch update that flips the form into quiz
// mode and adds one item per question.
func quizFormRequests(questions []QuizQuestion) []*forms.Request {
	requests := []*forms.Request{
		{
			UpdateSettings: &forms.UpdateSettingsRequest{
				Settings: &forms.FormSettings{
					QuizSettings: &forms.QuizSettings{IsQuiz: true},
				},
				UpdateMask: "quizSettings.isQuiz",
			},
		},
	}

	for i, q := range questions {
		points := q.Points
		if points == 0 {
			points = 1
		}

		question := &forms.Question{
			Required: true,
			Grading: &forms.Grading{
				PointValue: points,
				CorrectAnswers: &forms.CorrectAnswers{
					Answers: []*forms.CorrectAnswer{{Value: q.CorrectAnswer}},
				},
			},
		}

		switch q.Type {
		case QuestionShortAnswer:
			question.TextQuestion = &forms.TextQuestion{Paragraph: false}
		default:
			// Multiple choice unless told otherwise
			options := make([]*forms.Option, 0, len(q.Options))
			for _, opt := range q.Options {
				options = append(options, &forms.Option{Value: opt})
			}
			question.ChoiceQuestion = &forms.ChoiceQuestion{
				Type:    "RADIO",
				Options: options,
			}
		}

		requests = append(requests, &forms.Request{
			CreateItem: &forms.CreateItemRequest{
				Item: &forms.Item{
					Title: q.Question,
					QuestionItem: &forms.QuestionItem{
						Question: question,
					},
				},
				// Index 0 must still be serialized or the API rejects the item
			Location: &forms.Location{Index: int64(i), ForceSendFields: []string{"Index"}},
			},
		})
	}

	return requests
}
