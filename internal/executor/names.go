package executor

// Executor names as registered with the crew service. Every flow resolves
// its executors through these constants so a rename stays a one-line change.
const (
	// Student side
	StudentSupervisor   = "student_supervisor"
	CourseAnswer        = "course_answer"
	Performance         = "performance_report"
	SupportIntent       = "support_intent"
	SupportTicketPrompt = "support_ticket_prompt"
	RaiseTicket         = "raise_ticket"
	FetchTicket         = "fetch_ticket"
	AdministrativeQuery = "administrative_query"
	ResolveCourseQuery  = "resolve_course_query"

	// Teacher side
	TeacherSupervisor        = "teacher_supervisor"
	TicketIntent             = "ticket_handler_intent"
	SupportTicketDetail      = "support_ticket_detail"
	ResolveTicket            = "resolve_ticket"
	ApproveTicketSuggestion  = "approve_ticket_suggestion"
	FixTicketSuggestion      = "fix_ticket_suggestion"
	AnnouncementIntent       = "announcement_intent"
	AnnouncementDetail       = "announcement_detail"
	AnnouncementCreator      = "announcement_creator"
	AnnouncementApprove      = "announcement_approve"
	AnnouncementFix          = "announcement_fix"
	EvaluationIntent         = "evaluation_intent"
	EvaluationDetail         = "evaluation_detail"
	EvaluationFeedback       = "evaluation_feedback"
	ApproveEvaluationFeedback = "approve_evaluation_feedback"
	FixEvaluationFeedback    = "fix_evaluation_feedback"
	AnswerKeyIntent          = "answer_key_intent"
	AnswerKeyDetail          = "answer_key_detail"
	ApproveAnswerKey         = "approve_answer_key"
	FixAnswerKey             = "fix_answer_key"
	FetchQuestionNumber      = "fetch_question_number"
)
