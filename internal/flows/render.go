// Package flows holds helpers shared by the student and teacher routing
// flows: deterministic renderers for list-shaped executor results and
// serialization of memory fragments into classifier payloads.
package flows

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/studyhall-ai/orchestrator/internal/memory"
)

// RenderAnswerKey formats a generated answer key as repeated question
// blocks, in list order. The output is embedded verbatim in bot replies and
// stored as the sticky rendered key, so the format must stay stable.
func RenderAnswerKey(list []memory.QuestionAnswer) string {
	var b strings.Builder
	for i, qa := range list {
		fmt.Fprintf(&b, "Question %d: %s \n\n", i+1, qa.Question)
		fmt.Fprintf(&b, "Answer: %s \n\n", qa.Answer)
		fmt.Fprintf(&b, "Total Marks: %d \n\n", qa.TotalMark)
	}
	return b.String()
}

// RenderEvaluationFeedback formats per-question evaluation feedback as
// repeated blocks, in list order.
func RenderEvaluationFeedback(list []memory.EvaluationFeedback) string {
	var b strings.Builder
	for i, fb := range list {
		fmt.Fprintf(&b, "Question %d: %s \n\n", i+1, fb.Question)
		fmt.Fprintf(&b, "Answer Key: %s \n\n", fb.AnswerKey)
		fmt.Fprintf(&b, "Student Answer: %s \n\n", fb.StudentAnswer)
		fmt.Fprintf(&b, "Total Marks: %d \n\n", fb.TotalMark)
		fmt.Fprintf(&b, "Individual Mark: %d \n\n", fb.IndividualMark)
		fmt.Fprintf(&b, "Similarity Score: %d \n\n", fb.SimilarityScore)
		fmt.Fprintf(&b, "Feedback: %s \n\n", fb.Feedback)
	}
	return b.String()
}

// ConversationJSON serializes the conversation history for a classifier
// payload.
func ConversationJSON(turns []memory.Turn) string {
	if turns == nil {
		turns = []memory.Turn{}
	}
	doc := struct {
		Conversation []memory.Turn `json:"conversation"`
	}{Conversation: turns}
	raw, err := json.Marshal(doc)
	if err != nil {
		return `{"conversation":[]}`
	}
	return string(raw)
}

// JSONField serializes any memory fragment for a classifier payload. Used
// for metadata slices where a sub-flow exposes only the sticky fields its
// classifier needs.
func JSONField(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
