package teacher

import (
	"context"
	"fmt"
	"strings"

	"github.com/studyhall-ai/orchestrator/internal/executor"
	"github.com/studyhall-ai/orchestrator/internal/flows"
	"github.com/studyhall-ai/orchestrator/internal/memory"
	"github.com/studyhall-ai/orchestrator/internal/metrics"
	"github.com/studyhall-ai/orchestrator/internal/store"
)

// Evaluation activity sub-routes.
const (
	SubRouteEvaluationDetails  = "evaluation_details"
	SubRouteEvaluationFeedback = "evaluation_feedback"
	SubRouteApproveFeedback    = "approve_feedback"
	SubRouteFixFeedback        = "fix_feedback"
)

const (
	evaluationDetailFailedReply   = "I'm unable to fetch student's answer records. Please try again later or contact admin."
	evaluationFeedbackFailedReply = "I'm unable to evaluate the student's answers right now. Please try again later or contact admin."
	evaluationApproveFailedReply  = "I'm unable to submit student's evaluation feedback records. Please try again later or contact admin."
	evaluationFixFailedReply      = "I'm unable to update the evaluation feedback with your changes. Please try again later or contact admin."
	studentIDNeededReply          = "Could you please share the student id for whom you want to evaluate ?"
	questionNumberNeededReply     = "Could you please mention the Question No. for which the changes are required ?"
)

func (f *Flow) handleEvaluation(ctx context.Context, q Query, mem *memory.TeacherMemory, decision executor.TeacherRoutingResult) (string, error) {
	md := &mem.Metadata
	intentMetadata := struct {
		LastSubRoute string `json:"last_sub_route"`
	}{md.LastSubRoute}

	subRoute := f.classifySubRoute(ctx, executor.EvaluationIntent, map[string]interface{}{
		"user_input":           q.Message,
		"conversation_history": flows.ConversationJSON(mem.Conversation),
		"metadata":             flows.JSONField(intentMetadata),
	})
	metrics.SubRoutesHandled.WithLabelValues("evaluation", subRoute).Inc()

	var botMsg string
	switch subRoute {
	case SubRouteEvaluationDetails:
		payload := map[string]interface{}{
			"user_query":         q.Message,
			"exam":               md.LastExam,
			"class":              md.LastClass,
			"subject":            md.LastSubject,
			"available_subjects": strings.Join(q.Subjects, ", "),
		}
		var out executor.EvaluationDetailResult
		if !f.invoker.Typed(ctx, executor.EvaluationDetail, payload, &out) {
			botMsg = evaluationDetailFailedReply
			break
		}
		botMsg = out.Response
		if botMsg == "" {
			botMsg = evaluationDetailFailedReply
		}
		if out.EvaluationExam != "" {
			md.LastExam = out.EvaluationExam
		}
		if out.EvaluationClass != "" {
			md.LastClass = out.EvaluationClass
		}
		if out.EvaluationSubject != "" {
			md.LastSubject = out.EvaluationSubject
		}

	case SubRouteEvaluationFeedback:
		payload := map[string]interface{}{
			"user_query": q.Message,
			"exam":       md.LastExam,
			"class":      md.LastClass,
			"subject":    md.LastSubject,
			"student_id": md.LastStudentID,
		}
		var out executor.EvaluationFeedbackResult
		if !f.invoker.Typed(ctx, executor.EvaluationFeedback, payload, &out) {
			botMsg = evaluationFeedbackFailedReply
			break
		}
		if out.StudentID == "" {
			botMsg = studentIDNeededReply
			break
		}
		section := flows.RenderEvaluationFeedback(out.SuggestedEvaluationFeedbackList)
		botMsg = fmt.Sprintf("Following is the suggested evaluation for the student: \n\n %s Would you like to proceed with the above suggested evaluation ?", section)
		md.LastEvaluationFeedback = out.SuggestedEvaluationFeedbackList
		md.LastEvaluationSection = section
		md.LastStudentID = out.StudentID

	case SubRouteApproveFeedback:
		payload := map[string]interface{}{
			"exam":       md.LastExam,
			"class":      md.LastClass,
			"subject":    md.LastSubject,
			"student_id": md.LastStudentID,
		}
		var out executor.SubmitResult
		if !f.invoker.Typed(ctx, executor.ApproveEvaluationFeedback, payload, &out) {
			botMsg = evaluationApproveFailedReply
			break
		}
		botMsg = out.Response
		if botMsg == "" {
			botMsg = evaluationApproveFailedReply
		}
		if out.Resolved {
			err := f.records.SubmitEvaluationFeedback(ctx, store.EvaluationSubmission{
				StudentID:  md.LastStudentID,
				Grade:      md.LastClass,
				ExamType:   md.LastExam,
				CourseName: md.LastSubject,
				Feedback:   md.LastEvaluationFeedback,
			})
			if err != nil {
				return "", fmt.Errorf("persist evaluation feedback: %w", err)
			}
			md.LastEvaluationFeedback = nil
			md.LastEvaluationSection = ""
			md.LastStudentID = ""
			md.LastQuestionDiscussed = 0
		}

	case SubRouteFixFeedback:
		botMsg = f.fixEvaluationFeedback(ctx, q, md)

	default:
		botMsg = rephraseReply
	}

	md.LastSubRoute = subRoute
	mem.AppendBot(botMsg, decision.Route, decision.Reason, subRoute)
	return botMsg, nil
}

// fixEvaluationFeedback runs the numbered-edit protocol against the sticky
// feedback list: resolve which question the teacher means, then apply the
// correction to that entry and re-render.
func (f *Flow) fixEvaluationFeedback(ctx context.Context, q Query, md *memory.TeacherMetadata) string {
	if md.LastQuestionDiscussed == 0 {
		var qn executor.QuestionNumberResult
		if !f.invoker.Typed(ctx, executor.FetchQuestionNumber, map[string]interface{}{"user_query": q.Message}, &qn) || qn.QuestionNumber == 0 {
			return questionNumberNeededReply
		}
		md.LastQuestionDiscussed = qn.QuestionNumber
	}

	idx := md.LastQuestionDiscussed
	if idx < 1 || idx > len(md.LastEvaluationFeedback) {
		md.LastQuestionDiscussed = 0
		return questionNumberNeededReply
	}

	target := md.LastEvaluationFeedback[idx-1]
	payload := map[string]interface{}{
		"user_input":       q.Message,
		"individual_mark":  target.IndividualMark,
		"similarity_score": target.SimilarityScore,
		"feedback":         target.Feedback,
	}
	var fix executor.FeedbackFixResult
	if !f.invoker.Typed(ctx, executor.FixEvaluationFeedback, payload, &fix) {
		return evaluationFixFailedReply
	}

	updated := make([]memory.EvaluationFeedback, len(md.LastEvaluationFeedback))
	copy(updated, md.LastEvaluationFeedback)
	updated[idx-1].IndividualMark = fix.IndividualMark
	updated[idx-1].SimilarityScore = fix.SimilarityScore
	updated[idx-1].Feedback = fix.Feedback

	md.LastEvaluationFeedback = updated
	section := flows.RenderEvaluationFeedback(updated)
	md.LastEvaluationSection = section
	return fmt.Sprintf("Following is the updated evaluation for the student: \n\n %s Would you like to proceed with the above suggested evaluation ?", section)
}
