package store

import (
	"time"

	"github.com/studyhall-ai/orchestrator/internal/memory"
)

// User is a login identity. Role is "student" or "teacher".
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	Grade        string    `db:"grade"`
	CreatedAt    time.Time `db:"created_at"`
}

// SupportTicket is one raised support request. Type is "course" or
// "administrative"; it selects which executor drafts the suggested reply.
type SupportTicket struct {
	ID             string    `db:"id"`
	StudentID      string    `db:"student_id"`
	Type           string    `db:"support_type"`
	Content        string    `db:"support_content"`
	SuggestedReply string    `db:"suggested_reply"`
	Resolved       bool      `db:"resolved"`
	CreatedAt      time.Time `db:"created_at"`
}

// StudentProfile is the public view of a student used when drafting replies.
type StudentProfile struct {
	StudentID   string   `db:"student_id"`
	Grade       string   `db:"grade"`
	CourseNames []string `db:"-"`
}

// Announcement is a published class announcement.
type Announcement struct {
	ID              string    `db:"id"`
	Class           string    `db:"class"`
	Title           string    `db:"title"`
	Content         string    `db:"content"`
	EventDate       string    `db:"event_date"`
	InstructorEmail string    `db:"instructor_email"`
	CreatedAt       time.Time `db:"created_at"`
}

// AnswerKeyReplacement replaces the full question/answer list for one exam.
type AnswerKeyReplacement struct {
	Grade      string
	ExamType   string
	CourseName string
	Questions  []memory.QuestionAnswer
}

// EvaluationSubmission records approved per-question feedback for one
// student's exam.
type EvaluationSubmission struct {
	StudentID  string
	Grade      string
	ExamType   string
	CourseName string
	Feedback   []memory.EvaluationFeedback
}
