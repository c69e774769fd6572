// Package store persists the platform records the routing engine touches:
// users, support tickets, announcements, answer keys and evaluation
// feedback. All access goes through the circuit-breaker database wrapper.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/studyhall-ai/orchestrator/internal/circuitbreaker"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Store is the Postgres-backed record store.
type Store struct {
	db     *circuitbreaker.DatabaseWrapper
	logger *zap.Logger
}

// New connects to Postgres and verifies the connection.
func New(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	wrapped := circuitbreaker.NewDatabaseWrapper(db, circuitbreaker.DefaultConfig(), logger)
	return &Store{db: wrapped, logger: logger}, nil
}

// NewWithDB wraps an existing connection. Used by tests with sqlmock.
func NewWithDB(db *sqlx.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     circuitbreaker.NewDatabaseWrapper(db, circuitbreaker.DefaultConfig(), logger),
		logger: logger,
	}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// UserByEmail fetches a login identity.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u,
		`SELECT id, email, password_hash, role, grade, created_at FROM users WHERE email = $1`,
		email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	return &u, nil
}

// SubjectsForUser lists the course names the user is enrolled in or teaches.
func (s *Store) SubjectsForUser(ctx context.Context, userID string) ([]string, error) {
	var subjects []string
	err := s.db.SelectContext(ctx, &subjects,
		`SELECT course_name FROM user_courses WHERE user_id = $1 ORDER BY course_name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("fetch subjects: %w", err)
	}
	return subjects, nil
}

// TicketByID fetches a support ticket.
func (s *Store) TicketByID(ctx context.Context, id string) (*SupportTicket, error) {
	var t SupportTicket
	err := s.db.GetContext(ctx, &t,
		`SELECT id, student_id, support_type, support_content, suggested_reply, resolved, created_at
		 FROM support_tickets WHERE id = $1`,
		id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch ticket %s: %w", id, err)
	}
	return &t, nil
}

// UpdateSuggestedReply stores the drafted assignee reply on a ticket.
func (s *Store) UpdateSuggestedReply(ctx context.Context, ticketID, reply string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE support_tickets SET suggested_reply = $2 WHERE id = $1`,
		ticketID, reply)
	if err != nil {
		return fmt.Errorf("update suggested reply for %s: %w", ticketID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ResolveTicket marks a ticket resolved with its final reply.
func (s *Store) ResolveTicket(ctx context.Context, ticketID, reply string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE support_tickets SET resolved = TRUE, suggested_reply = $2 WHERE id = $1`,
		ticketID, reply)
	if err != nil {
		return fmt.Errorf("resolve ticket %s: %w", ticketID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// StudentProfile fetches a student's grade and enrolled course names.
func (s *Store) StudentProfile(ctx context.Context, studentID string) (*StudentProfile, error) {
	row := struct {
		StudentID string         `db:"student_id"`
		Grade     string         `db:"grade"`
		Courses   pq.StringArray `db:"courses"`
	}{}
	err := s.db.GetContext(ctx, &row,
		`SELECT s.student_id, s.grade,
		        COALESCE(ARRAY_AGG(uc.course_name) FILTER (WHERE uc.course_name IS NOT NULL), '{}') AS courses
		 FROM students s
		 LEFT JOIN user_courses uc ON uc.user_id = s.student_id
		 WHERE s.student_id = $1
		 GROUP BY s.student_id, s.grade`,
		studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch student %s: %w", studentID, err)
	}
	return &StudentProfile{
		StudentID:   row.StudentID,
		Grade:       row.Grade,
		CourseNames: []string(row.Courses),
	}, nil
}

// CreateAnnouncement inserts a published announcement.
func (s *Store) CreateAnnouncement(ctx context.Context, a Announcement) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO announcements (id, class, title, content, event_date, instructor_email, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		a.ID, a.Class, a.Title, a.Content, a.EventDate, a.InstructorEmail)
	if err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// ReplaceAnswerKey swaps in the full question/answer list for one exam.
func (s *Store) ReplaceAnswerKey(ctx context.Context, req AnswerKeyReplacement) error {
	questions, err := json.Marshal(req.Questions)
	if err != nil {
		return fmt.Errorf("marshal answer key: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO answer_keys (grade, exam_type, course_name, questions, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (grade, exam_type, course_name)
		 DO UPDATE SET questions = EXCLUDED.questions, updated_at = NOW()`,
		req.Grade, req.ExamType, req.CourseName, questions)
	if err != nil {
		return fmt.Errorf("replace answer key: %w", err)
	}
	return nil
}

// SubmitEvaluationFeedback upserts approved feedback for one student's exam.
func (s *Store) SubmitEvaluationFeedback(ctx context.Context, req EvaluationSubmission) error {
	feedback, err := json.Marshal(req.Feedback)
	if err != nil {
		return fmt.Errorf("marshal evaluation feedback: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluation_feedback (student_id, grade, exam_type, course_name, feedback, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (student_id, grade, exam_type, course_name)
		 DO UPDATE SET feedback = EXCLUDED.feedback, updated_at = NOW()`,
		req.StudentID, req.Grade, req.ExamType, req.CourseName, feedback)
	if err != nil {
		return fmt.Errorf("submit evaluation feedback: %w", err)
	}
	return nil
}
