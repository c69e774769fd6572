package memory

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no memory record exists for a session token
	ErrNotFound = errors.New("session memory not found")
)

// Turn senders
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Turn is one entry in a session's conversation history. Route, Reason and
// SubRoute are set only on teacher bot turns produced by a completed routing
// decision; student turns carry sender, message and timestamp only.
type Turn struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Route     string    `json:"route,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	SubRoute  string    `json:"sub_route,omitempty"`
}

// StudentMemory is the durable per-session state for a student conversation.
type StudentMemory struct {
	Conversation []Turn   `json:"conversation"`
	LastRoute    string   `json:"last_route,omitempty"`
	LastReason   string   `json:"last_reason,omitempty"`
	LastSubject  []string `json:"last_subject,omitempty"`
}

// AppendUser records a user turn.
func (m *StudentMemory) AppendUser(message string) {
	m.Conversation = append(m.Conversation, Turn{
		Sender:    SenderUser,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// AppendBot records a bot turn.
func (m *StudentMemory) AppendBot(message string) {
	m.Conversation = append(m.Conversation, Turn{
		Sender:    SenderBot,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// QuestionAnswer is one generated answer-key entry.
type QuestionAnswer struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	TotalMark int    `json:"total_mark"`
}

// EvaluationFeedback is one per-question evaluation entry for a student's
// exam answer.
type EvaluationFeedback struct {
	Question        string `json:"question"`
	AnswerKey       string `json:"answer_key"`
	StudentAnswer   string `json:"student_answer"`
	TotalMark       int    `json:"total_mark"`
	IndividualMark  int    `json:"individual_mark"`
	SimilarityScore int    `json:"similarity_score"`
	Feedback        string `json:"feedback"`
}

// TeacherMetadata is the teacher session's sticky scratch area. Each field is
// written by exactly one sub-flow's handlers and seeds the next turn's
// payloads.
type TeacherMetadata struct {
	LastSupportTicket         string               `json:"last_support_ticket"`
	AssigneeReply             string               `json:"assignee_reply"`
	LastAnnouncementID        string               `json:"last_announcement_id"`
	LastAnnouncementClass     string               `json:"last_announcement_class"`
	LastAnnouncementSummary   string               `json:"last_announcement_summary"`
	LastAnnouncementEventDate string               `json:"last_announcement_event_date"`
	LastAnnouncementTitle     string               `json:"last_announcement_title"`
	LastDraftAnnouncement     string               `json:"last_draft_announcement"`
	LastExam                  string               `json:"last_exam"`
	LastClass                 string               `json:"last_class"`
	LastSubject               string               `json:"last_subject"`
	LastStudentID             string               `json:"last_student_id"`
	LastEvaluationFeedback    []EvaluationFeedback `json:"last_evaluation_feedback_list"`
	LastEvaluationSection     string               `json:"last_evaluation_feedback_section"`
	LastQuestionDiscussed     int                  `json:"last_question_discussed"`
	LastGeneratedAnswerKey    string               `json:"last_generated_answer_key"`
	GeneratedAnswerKeyList    []QuestionAnswer     `json:"generated_answer_key_list"`
	LastSubRoute              string               `json:"last_sub_route"`
}

// TeacherMemory is the durable per-session state for a teacher conversation.
type TeacherMemory struct {
	Conversation []Turn          `json:"conversation"`
	Metadata     TeacherMetadata `json:"metadata"`
}

// AppendUser records a user turn.
func (m *TeacherMemory) AppendUser(message string) {
	m.Conversation = append(m.Conversation, Turn{
		Sender:    SenderUser,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// AppendBot records a bot turn annotated with the routing decision that
// produced it.
func (m *TeacherMemory) AppendBot(message, route, reason, subRoute string) {
	m.Conversation = append(m.Conversation, Turn{
		Sender:    SenderBot,
		Message:   message,
		Timestamp: time.Now(),
		Route:     route,
		Reason:    reason,
		SubRoute:  subRoute,
	})
}
