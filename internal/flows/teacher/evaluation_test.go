package teacher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall-ai/orchestrator/internal/executor"
	"github.com/studyhall-ai/orchestrator/internal/memory"
)

func evaluationRegistry(subRoute string) *stubRegistry {
	reg := routed(RouteEvaluationActivity)
	reg.structured(executor.EvaluationIntent, executor.SubRouteResult{SubRoute: subRoute})
	return reg
}

func sampleFeedback() []memory.EvaluationFeedback {
	return []memory.EvaluationFeedback{
		{Question: "Define inertia.", AnswerKey: "Resistance to change in motion.", StudentAnswer: "Objects keep moving.", TotalMark: 5, IndividualMark: 4, SimilarityScore: 82, Feedback: "Mostly correct."},
		{Question: "State Newton's second law.", AnswerKey: "F = ma.", StudentAnswer: "Force equals mass times acceleration.", TotalMark: 3, IndividualMark: 3, SimilarityScore: 95, Feedback: "Correct."},
	}
}

func TestEvaluationDetailsUpdatesFieldsIndependently(t *testing.T) {
	reg := evaluationRegistry(SubRouteEvaluationDetails)
	reg.structured(executor.EvaluationDetail, executor.EvaluationDetailResult{
		EvaluationExam:    "midterm",
		EvaluationClass:   "",
		EvaluationSubject: "Physics",
		Response:          "Which class is this midterm for?",
	})
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	mem.Metadata.LastClass = "9"

	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Equal(t, "Which class is this midterm for?", reply)
	assert.Equal(t, "midterm", mem.Metadata.LastExam)
	assert.Equal(t, "Physics", mem.Metadata.LastSubject)
	// The empty class must not clobber the previously known one.
	assert.Equal(t, "9", mem.Metadata.LastClass)
}

func TestEvaluationFeedbackWithoutStudentIDAsksForIt(t *testing.T) {
	reg := evaluationRegistry(SubRouteEvaluationFeedback)
	reg.structured(executor.EvaluationFeedback, executor.EvaluationFeedbackResult{StudentID: ""})
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Equal(t, studentIDNeededReply, reply)
	assert.Empty(t, mem.Metadata.LastEvaluationFeedback)
	assert.Empty(t, mem.Metadata.LastStudentID)
}

func TestEvaluationFeedbackStoresListAndSection(t *testing.T) {
	reg := evaluationRegistry(SubRouteEvaluationFeedback)
	reg.structured(executor.EvaluationFeedback, executor.EvaluationFeedbackResult{
		StudentID:                       "st-9",
		SuggestedEvaluationFeedbackList: sampleFeedback(),
	})
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Contains(t, reply, "Following is the suggested evaluation for the student:")
	assert.Contains(t, reply, "Question 1: Define inertia.")
	assert.Contains(t, reply, "Would you like to proceed with the above suggested evaluation ?")
	assert.Equal(t, "st-9", mem.Metadata.LastStudentID)
	assert.Len(t, mem.Metadata.LastEvaluationFeedback, 2)
	assert.NotEmpty(t, mem.Metadata.LastEvaluationSection)
}

func TestApproveFeedbackPersistsAndClears(t *testing.T) {
	reg := evaluationRegistry(SubRouteApproveFeedback)
	reg.structured(executor.ApproveEvaluationFeedback, executor.SubmitResult{
		Response: "Evaluation feedback submitted.",
		Resolved: true,
	})
	flow, records := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	mem.Metadata.LastExam = "midterm"
	mem.Metadata.LastClass = "10"
	mem.Metadata.LastSubject = "Physics"
	mem.Metadata.LastStudentID = "st-9"
	mem.Metadata.LastEvaluationFeedback = sampleFeedback()
	mem.Metadata.LastEvaluationSection = "rendered"
	mem.Metadata.LastQuestionDiscussed = 2

	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Equal(t, "Evaluation feedback submitted.", reply)
	require.Len(t, records.evaluations, 1)
	saved := records.evaluations[0]
	assert.Equal(t, "st-9", saved.StudentID)
	assert.Equal(t, "midterm", saved.ExamType)
	assert.Len(t, saved.Feedback, 2)

	md := mem.Metadata
	assert.Empty(t, md.LastEvaluationFeedback)
	assert.Empty(t, md.LastEvaluationSection)
	assert.Empty(t, md.LastStudentID)
	assert.Zero(t, md.LastQuestionDiscussed)
	// Exam parameters survive an approval; only the feedback set clears.
	assert.Equal(t, "midterm", md.LastExam)
}

func TestApproveFeedbackIdempotentOnEmptySticky(t *testing.T) {
	reg := evaluationRegistry(SubRouteApproveFeedback)
	reg.structured(executor.ApproveEvaluationFeedback, executor.SubmitResult{
		Response: "There is no pending evaluation to submit.",
		Resolved: true,
	})
	flow, records := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Equal(t, "There is no pending evaluation to submit.", reply)
	require.Len(t, records.evaluations, 1)
	assert.Empty(t, records.evaluations[0].StudentID)
}

func TestFixFeedbackWithoutNumberAsksAndLeavesIndexZero(t *testing.T) {
	reg := evaluationRegistry(SubRouteFixFeedback)
	reg.structured(executor.FetchQuestionNumber, executor.QuestionNumberResult{QuestionNumber: 0})
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	mem.Metadata.LastEvaluationFeedback = sampleFeedback()

	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Equal(t, questionNumberNeededReply, reply)
	assert.Zero(t, mem.Metadata.LastQuestionDiscussed)
	assert.Equal(t, SubRouteFixFeedback, mem.Metadata.LastSubRoute)
}

func TestFixFeedbackUpdatesEntryAndRerenders(t *testing.T) {
	reg := evaluationRegistry(SubRouteFixFeedback)
	reg.structured(executor.FetchQuestionNumber, executor.QuestionNumberResult{QuestionNumber: 1})
	fix := reg.structured(executor.FixEvaluationFeedback, executor.FeedbackFixResult{
		IndividualMark:  5,
		SimilarityScore: 90,
		Feedback:        "Full marks after review.",
	})
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	mem.Metadata.LastEvaluationFeedback = sampleFeedback()

	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Contains(t, reply, "Following is the updated evaluation for the student:")
	assert.Contains(t, reply, "Full marks after review.")

	updated := mem.Metadata.LastEvaluationFeedback[0]
	assert.Equal(t, 5, updated.IndividualMark)
	assert.Equal(t, 90, updated.SimilarityScore)
	assert.Equal(t, "Full marks after review.", updated.Feedback)
	// The untouched entry stays as it was.
	assert.Equal(t, "Correct.", mem.Metadata.LastEvaluationFeedback[1].Feedback)
	assert.Equal(t, 1, mem.Metadata.LastQuestionDiscussed)

	require.Len(t, fix.calls, 1)
	assert.Equal(t, 4, fix.calls[0]["individual_mark"])
}

func TestFixFeedbackReusesStoredIndex(t *testing.T) {
	reg := evaluationRegistry(SubRouteFixFeedback)
	// No FetchQuestionNumber registered: the stored index must be used
	// without re-extraction.
	reg.structured(executor.FixEvaluationFeedback, executor.FeedbackFixResult{
		IndividualMark:  2,
		SimilarityScore: 60,
		Feedback:        "Partially correct.",
	})
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	mem.Metadata.LastEvaluationFeedback = sampleFeedback()
	mem.Metadata.LastQuestionDiscussed = 2

	_, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Equal(t, "Partially correct.", mem.Metadata.LastEvaluationFeedback[1].Feedback)
}

func TestFixFeedbackOutOfRangeIndexResets(t *testing.T) {
	reg := evaluationRegistry(SubRouteFixFeedback)
	reg.structured(executor.FetchQuestionNumber, executor.QuestionNumberResult{QuestionNumber: 9})
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	mem.Metadata.LastEvaluationFeedback = sampleFeedback()

	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Equal(t, questionNumberNeededReply, reply)
	assert.Zero(t, mem.Metadata.LastQuestionDiscussed)
}
