// Package orchestrator drives one routing pass per request: load the
// session memory for the token, run the role's flow, write the mutated
// memory back, return the reply. The write-back happens once, only after a
// successful pass.
package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/studyhall-ai/orchestrator/internal/flows/student"
	"github.com/studyhall-ai/orchestrator/internal/flows/teacher"
	"github.com/studyhall-ai/orchestrator/internal/memory"
)

// StudentQuery is one student request.
type StudentQuery struct {
	SessionToken string
	StudentID    string
	Grade        string
	Message      string
	Subjects     []string
}

// TeacherQuery is one instructor request.
type TeacherQuery struct {
	SessionToken    string
	InstructorID    string
	InstructorEmail string
	Message         string
	Subjects        []string
}

// Orchestrator owns the per-request routing passes.
type Orchestrator struct {
	sessions *memory.Store
	student  *student.Flow
	teacher  *teacher.Flow
	logger   *zap.Logger
}

// New builds the orchestrator over the session store and the two role flows.
func New(sessions *memory.Store, studentFlow *student.Flow, teacherFlow *teacher.Flow, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		student:  studentFlow,
		teacher:  teacherFlow,
		logger:   logger,
	}
}

// HandleStudent runs a student routing pass.
func (o *Orchestrator) HandleStudent(ctx context.Context, q StudentQuery) (string, error) {
	mem, err := o.sessions.GetStudent(ctx, q.SessionToken)
	if err != nil {
		return "", fmt.Errorf("load student session: %w", err)
	}

	reply, err := o.student.Handle(ctx, student.Query{
		StudentID: q.StudentID,
		Grade:     q.Grade,
		Message:   q.Message,
		Subjects:  q.Subjects,
	}, mem)
	if err != nil {
		o.logger.Error("Student routing pass failed",
			zap.String("student_id", q.StudentID),
			zap.Error(err))
		return "", err
	}

	if err := o.sessions.UpdateStudent(ctx, q.SessionToken, mem); err != nil {
		return "", fmt.Errorf("persist student session: %w", err)
	}
	return reply, nil
}

// HandleTeacher runs an instructor routing pass.
func (o *Orchestrator) HandleTeacher(ctx context.Context, q TeacherQuery) (string, error) {
	mem, err := o.sessions.GetTeacher(ctx, q.SessionToken)
	if err != nil {
		return "", fmt.Errorf("load teacher session: %w", err)
	}

	reply, err := o.teacher.Handle(ctx, teacher.Query{
		InstructorID:    q.InstructorID,
		InstructorEmail: q.InstructorEmail,
		Message:         q.Message,
		Subjects:        q.Subjects,
	}, mem)
	if err != nil {
		o.logger.Error("Teacher routing pass failed",
			zap.String("instructor_id", q.InstructorID),
			zap.Error(err))
		return "", err
	}

	if err := o.sessions.UpdateTeacher(ctx, q.SessionToken, mem); err != nil {
		return "", fmt.Errorf("persist teacher session: %w", err)
	}
	return reply, nil
}
