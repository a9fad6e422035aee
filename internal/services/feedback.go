package services

import (
	"context"
	"errors"
	"math"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mockly/apiserver/types"
)

// FeedbackInput is the grading payload of an interviewer.
type FeedbackInput struct {
	Feedback  string                    `json:"feedback"`
	Score     *float64                  `json:"score"`
	Result    string                    `json:"result"`
	Questions []types.InterviewQuestion `json:"questions"`
}

var scoreRange = validation.By(func(value any) error {
	score, _ := value.(*float64)
	if score == nil {
		return nil
	}
	if *score != math.Trunc(*score) || *score < 0 || *score > 100 {
		return errors.New("Score must be between 0 and 100")
	}
	return nil
})

func (in *FeedbackInput) Validate() error {
	in.Feedback = strings.TrimSpace(in.Feedback)
	in.Result = strings.TrimSpace(in.Result)
	return validationFailure(validation.ValidateStruct(in,
		validation.Field(&in.Feedback, validation.Required.Error("Feedback is required")),
		validation.Field(&in.Score, validation.NotNil.Error("Score is required"), scoreRange),
		validation.Field(&in.Result,
			validation.Required.Error("Result is required"),
			validation.In(stringValues(types.InterviewResults)...).Error("Invalid result"),
		),
	))
}

// RecordFeedback grades any interview and forces it to completed. The
// question list is replaced only when the payload carries one.
func (s *InterviewService) RecordFeedback(ctx context.Context, grader types.Account, id string, in FeedbackInput) (types.Interview, error) {
	if err := in.Validate(); err != nil {
		return types.Interview{}, err
	}

	interview, err := s.load(ctx, id)
	if err != nil {
		return types.Interview{}, err
	}

	feedback := in.Feedback
	score := int(*in.Score)
	interview.Feedback = &feedback
	interview.Score = &score
	interview.Result = types.InterviewResult(in.Result)
	interview.Status = types.StatusCompleted
	if in.Questions != nil {
		interview.Questions = in.Questions
	}
	if grader.ID != "" && grader.HasRole(types.RoleInterviewer) {
		graderID := grader.ID
		interview.InterviewerID = &graderID
	}

	updated, err := s.repo.Update(ctx, interview)
	if err != nil {
		return types.Interview{}, translateNotFound(err)
	}
	s.publish(ctx, types.EventFeedbackRecorded, updated, grader.ID)
	return updated, nil
}
