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

// Answer key activity sub-routes.
const (
	SubRouteAnswerKeyDetails = "answer_key_details"
	SubRouteApproveAnswerKey = "approve_answer_key"
	SubRouteFixAnswerKey     = "fix_answer_key"
)

const (
	answerKeyDetailFailedReply  = "I'm unable to fetch answer keys for the exam. Please try again later or contact admin."
	answerKeyApproveFailedReply = "I'm unable to submit the generated answer key. Please try again later or contact admin."
	answerKeyFixFailedReply     = "I'm unable to update the answer key with your changes. Please try again later or contact admin."
)

func (f *Flow) handleAnswerKey(ctx context.Context, q Query, mem *memory.TeacherMemory, decision executor.TeacherRoutingResult) (string, error) {
	md := &mem.Metadata
	intentMetadata := struct {
		LastSubRoute string `json:"last_sub_route"`
	}{md.LastSubRoute}

	subRoute := f.classifySubRoute(ctx, executor.AnswerKeyIntent, map[string]interface{}{
		"user_input":           q.Message,
		"conversation_history": flows.ConversationJSON(mem.Conversation),
		"metadata":             flows.JSONField(intentMetadata),
	})
	metrics.SubRoutesHandled.WithLabelValues("answer_key", subRoute).Inc()

	var botMsg string
	switch subRoute {
	case SubRouteAnswerKeyDetails:
		payload := map[string]interface{}{
			"user_query":         q.Message,
			"exam":               md.LastExam,
			"class":              md.LastClass,
			"subject":            md.LastSubject,
			"available_subjects": strings.Join(q.Subjects, ", "),
		}
		var out executor.AnswerKeyDetailResult
		if !f.invoker.Typed(ctx, executor.AnswerKeyDetail, payload, &out) {
			botMsg = answerKeyDetailFailedReply
			break
		}
		rendered := flows.RenderAnswerKey(out.GeneratedAnswerKeyList)
		if out.Response != "" {
			botMsg = out.Response
		} else {
			botMsg = fmt.Sprintf("Following is the suggested answer key: \n\n %s Would you like to proceed with the above generated answer key ?", rendered)
		}

		// The generated key sticks only once exam, class and subject are
		// all known; the three parameters stick one by one.
		if out.AnswerKeyExam != "" && out.AnswerKeyClass != "" && out.AnswerKeySubject != "" {
			md.LastGeneratedAnswerKey = rendered
			md.GeneratedAnswerKeyList = out.GeneratedAnswerKeyList
		}
		if out.AnswerKeyExam != "" {
			md.LastExam = out.AnswerKeyExam
		}
		if out.AnswerKeyClass != "" {
			md.LastClass = out.AnswerKeyClass
		}
		if out.AnswerKeySubject != "" {
			md.LastSubject = out.AnswerKeySubject
		}

	case SubRouteApproveAnswerKey:
		payload := map[string]interface{}{
			"exam":    md.LastExam,
			"class":   md.LastClass,
			"subject": md.LastSubject,
		}
		var out executor.SubmitResult
		if !f.invoker.Typed(ctx, executor.ApproveAnswerKey, payload, &out) {
			botMsg = answerKeyApproveFailedReply
			break
		}
		botMsg = out.Response
		if botMsg == "" {
			botMsg = answerKeyApproveFailedReply
		}
		if out.Resolved {
			err := f.records.ReplaceAnswerKey(ctx, store.AnswerKeyReplacement{
				Grade:      md.LastClass,
				ExamType:   md.LastExam,
				CourseName: md.LastSubject,
				Questions:  md.GeneratedAnswerKeyList,
			})
			if err != nil {
				return "", fmt.Errorf("persist answer key: %w", err)
			}
			md.LastGeneratedAnswerKey = ""
			md.GeneratedAnswerKeyList = nil
			md.LastQuestionDiscussed = 0
		}

	case SubRouteFixAnswerKey:
		botMsg = f.fixAnswerKey(ctx, q, md)

	default:
		botMsg = rephraseReply
	}

	md.LastSubRoute = subRoute
	mem.AppendBot(botMsg, decision.Route, decision.Reason, subRoute)
	return botMsg, nil
}

// fixAnswerKey runs the numbered-edit protocol against the sticky generated
// answer key list.
func (f *Flow) fixAnswerKey(ctx context.Context, q Query, md *memory.TeacherMetadata) string {
	if md.LastQuestionDiscussed == 0 {
		var qn executor.QuestionNumberResult
		if !f.invoker.Typed(ctx, executor.FetchQuestionNumber, map[string]interface{}{"user_query": q.Message}, &qn) || qn.QuestionNumber == 0 {
			return questionNumberNeededReply
		}
		md.LastQuestionDiscussed = qn.QuestionNumber
	}

	idx := md.LastQuestionDiscussed
	if idx < 1 || idx > len(md.GeneratedAnswerKeyList) {
		md.LastQuestionDiscussed = 0
		return questionNumberNeededReply
	}

	target := md.GeneratedAnswerKeyList[idx-1]
	payload := map[string]interface{}{
		"user_input": q.Message,
		"answer":     target.Answer,
		"question":   target.Question,
		"marks":      target.TotalMark,
	}
	var fix executor.AnswerFixResult
	if !f.invoker.Typed(ctx, executor.FixAnswerKey, payload, &fix) {
		return answerKeyFixFailedReply
	}

	updated := make([]memory.QuestionAnswer, len(md.GeneratedAnswerKeyList))
	copy(updated, md.GeneratedAnswerKeyList)
	updated[idx-1].Answer = fix.UpdatedAnswer

	md.GeneratedAnswerKeyList = updated
	rendered := flows.RenderAnswerKey(updated)
	md.LastGeneratedAnswerKey = rendered
	return fmt.Sprintf("Following is the updated answer key: \n\n %s Would you like to proceed with the above generated answer key ?", rendered)
}
