package executor

import "github.com/studyhall-ai/orchestrator/internal/memory"

// Typed payloads decoded from executor results. Each struct mirrors the
// structured output contract of one executor, so call sites decode into
// exactly the shape they expect instead of poking at raw maps.

// RoutingResult is the student supervisor's decision.
type RoutingResult struct {
	Route    string `json:"route"`
	Reason   string `json:"reason"`
	Response string `json:"response"`
}

// TeacherRoutingResult is the teacher supervisor's decision.
type TeacherRoutingResult struct {
	Route    string `json:"route"`
	Reason   string `json:"reason"`
	Response string `json:"response"`
}

// SupportIntentResult classifies a student support query.
type SupportIntentResult struct {
	Intent string `json:"intent"`
}

// SubRouteResult classifies a teacher query inside a domain flow. All four
// intent executors share the shape.
type SubRouteResult struct {
	SubRoute string `json:"sub_route"`
}

// CourseAnswerResult is the subjective answering executor's output.
type CourseAnswerResult struct {
	Context            string   `json:"context"`
	Source             []string `json:"source"`
	ContentFromHistory string   `json:"content_from_history"`
	Response           string   `json:"response"`
	LastSubject        []string `json:"last_subject"`
}

// RaiseTicketResult reports a freshly created support ticket.
type RaiseTicketResult struct {
	Response        string `json:"response"`
	SupportTicketID string `json:"support_ticket_id"`
}

// TicketDetailResult carries a looked-up ticket and its formatted summary.
type TicketDetailResult struct {
	Response        string `json:"response"`
	SupportTicketID string `json:"support_ticket_id"`
}

// SuggestedReplyResult is a drafted assignee reply for a ticket.
type SuggestedReplyResult struct {
	SupportTicketID string `json:"support_ticket_id"`
	SuggestedReply  string `json:"suggested_reply"`
	Response        string `json:"response"`
}

// ApproveSuggestionResult reports whether an approved reply closed a ticket.
type ApproveSuggestionResult struct {
	Response        string `json:"response"`
	SupportTicketID string `json:"support_ticket_id"`
	Resolved        bool   `json:"resolved"`
}

// FixSuggestionResult is a revised assignee reply after teacher corrections.
type FixSuggestionResult struct {
	SuggestedReply string `json:"suggested_reply"`
	Response       string `json:"response"`
}

// AnnouncementDetailResult carries a fetched announcement.
type AnnouncementDetailResult struct {
	AnnouncementID string `json:"announcement_id"`
	Response       string `json:"response"`
}

// AnnouncementDraftResult is a drafted announcement plus the fields the
// drafter managed to extract. Empty fields mean the user has not supplied
// them yet.
type AnnouncementDraftResult struct {
	AnnouncementClass     string `json:"announcement_class"`
	AnnouncementSummary   string `json:"announcement_summary"`
	AnnouncementEventDate string `json:"announcement_event_date"`
	AnnouncementTitle     string `json:"announcement_title"`
	DraftAnnouncement     string `json:"draft_announcement"`
	Response              string `json:"response"`
}

// AnnouncementPublishResult reports a published announcement.
type AnnouncementPublishResult struct {
	Response       string `json:"response"`
	AnnouncementID string `json:"announcement_id"`
	Resolved       bool   `json:"resolved"`
}

// EvaluationDetailResult carries extracted evaluation parameters. Empty
// fields mean the user has not supplied them yet.
type EvaluationDetailResult struct {
	EvaluationExam    string `json:"evaluation_exam"`
	EvaluationClass   string `json:"evaluation_class"`
	EvaluationSubject string `json:"evaluation_subject"`
	Response          string `json:"response"`
}

// EvaluationFeedbackResult is the generated per-question feedback for one
// student's submission.
type EvaluationFeedbackResult struct {
	StudentID                        string                      `json:"student_id"`
	SuggestedEvaluationFeedbackList  []memory.EvaluationFeedback `json:"suggested_evaluation_feedback_list"`
	SuggestedEvaluationFeedbackBlock string                      `json:"suggested_evaluation_feedback_section"`
}

// SubmitResult reports a terminal submit operation (evaluation feedback or
// answer key) and whether it resolved the working draft.
type SubmitResult struct {
	Response string `json:"response"`
	Resolved bool   `json:"resolved"`
}

// FeedbackFixResult is a single corrected feedback entry.
type FeedbackFixResult struct {
	IndividualMark  int    `json:"individual_mark"`
	SimilarityScore int    `json:"similarity_score"`
	Feedback        string `json:"feedback"`
}

// AnswerKeyDetailResult carries extracted answer key parameters. Empty
// fields mean the user has not supplied them yet. Response is set when the
// executor is still gathering parameters instead of generating a key.
type AnswerKeyDetailResult struct {
	AnswerKeyExam          string                  `json:"answer_key_exam"`
	AnswerKeyClass         string                  `json:"answer_key_class"`
	AnswerKeySubject       string                  `json:"answer_key_subject"`
	GeneratedAnswerKeyList []memory.QuestionAnswer `json:"generated_answer_key_list"`
	Response               string                  `json:"response,omitempty"`
}

// QuestionNumberResult extracts which question a correction refers to.
// Zero means no question number was found in the message.
type QuestionNumberResult struct {
	QuestionNumber int `json:"question_number"`
}

// AnswerFixResult is a rewritten answer for a single question.
type AnswerFixResult struct {
	UpdatedAnswer string `json:"updated_answer"`
}

// PerformanceResult is the student performance report.
type PerformanceResult struct {
	Response string `json:"response"`
}

// AdministrativeAnswerResult answers an administrative question.
type AdministrativeAnswerResult struct {
	Response string `json:"response"`
}

// CourseReplyResult is a drafted reply to a course-type support issue.
type CourseReplyResult struct {
	Response string `json:"response"`
}
