package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studyhall-ai/orchestrator/internal/background"
	"github.com/studyhall-ai/orchestrator/internal/executor"
	"github.com/studyhall-ai/orchestrator/internal/flows/student"
	"github.com/studyhall-ai/orchestrator/internal/flows/teacher"
	"github.com/studyhall-ai/orchestrator/internal/memory"
	"github.com/studyhall-ai/orchestrator/internal/store"
)

type stubExecutor struct {
	name       string
	structured interface{}
}

func (e *stubExecutor) Name() string { return e.name }

func (e *stubExecutor) Run(ctx context.Context, payload map[string]interface{}) (*executor.Result, error) {
	data, err := json.Marshal(e.structured)
	if err != nil {
		return nil, err
	}
	return &executor.Result{Raw: string(data), Structured: data}, nil
}

type stubRegistry struct {
	executors map[string]executor.Executor
}

func (r *stubRegistry) Executor(name string) executor.Executor {
	if e, ok := r.executors[name]; ok {
		return e
	}
	return &stubExecutor{name: name, structured: map[string]string{}}
}

type noopRecords struct{}

func (noopRecords) TicketByID(ctx context.Context, id string) (*store.SupportTicket, error) {
	return nil, store.ErrNotFound
}
func (noopRecords) StudentProfile(ctx context.Context, studentID string) (*store.StudentProfile, error) {
	return nil, store.ErrNotFound
}
func (noopRecords) UpdateSuggestedReply(ctx context.Context, ticketID, reply string) error {
	return nil
}
func (noopRecords) CreateAnnouncement(ctx context.Context, a store.Announcement) error { return nil }
func (noopRecords) ReplaceAnswerKey(ctx context.Context, req store.AnswerKeyReplacement) error {
	return nil
}
func (noopRecords) SubmitEvaluationFeedback(ctx context.Context, req store.EvaluationSubmission) error {
	return nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *memory.Store) {
	t.Helper()
	mr := miniredis.RunT(t)

	logger := zap.NewNop()
	sessions, err := memory.NewStore(mr.Addr(), "", 0, 0, logger)
	require.NoError(t, err)
	t.Cleanup(func() { sessions.Close() })

	reg := &stubRegistry{executors: map[string]executor.Executor{
		executor.StudentSupervisor: &stubExecutor{
			name: executor.StudentSupervisor,
			structured: executor.RoutingResult{
				Route:    student.RouteOutOfScope,
				Reason:   "greeting",
				Response: "Hello! Ask me about your courses.",
			},
		},
		executor.TeacherSupervisor: &stubExecutor{
			name: executor.TeacherSupervisor,
			structured: executor.TeacherRoutingResult{
				Route:    teacher.RouteOutOfScope,
				Reason:   "greeting",
				Response: "Hello! How can I help with your class?",
			},
		},
	}}
	invoker := executor.NewInvoker(reg, logger)

	studentFlow := student.New(invoker, dropSpawner{}, noopRecords{}, logger)
	teacherFlow := teacher.New(invoker, noopRecords{}, logger)
	return New(sessions, studentFlow, teacherFlow, logger), sessions
}

type dropSpawner struct{}

func (dropSpawner) Spawn(job background.Job) bool { return true }

func TestHandleStudentRoundTrip(t *testing.T) {
	o, sessions := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := sessions.CreateStudent(ctx, "tok-1")
	require.NoError(t, err)

	reply, err := o.HandleStudent(ctx, StudentQuery{
		SessionToken: "tok-1",
		StudentID:    "st-1",
		Grade:        "10",
		Message:      "hi there",
		Subjects:     []string{"Physics"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello! Ask me about your courses.", reply)

	mem, err := sessions.GetStudent(ctx, "tok-1")
	require.NoError(t, err)
	require.Len(t, mem.Conversation, 2)
	assert.Equal(t, memory.SenderUser, mem.Conversation[0].Sender)
	assert.Equal(t, "hi there", mem.Conversation[0].Message)
	assert.Equal(t, memory.SenderBot, mem.Conversation[1].Sender)
}

func TestHandleStudentMissingSession(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	_, err := o.HandleStudent(context.Background(), StudentQuery{
		SessionToken: "no-such-token",
		Message:      "hi",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, memory.ErrNotFound)
}

func TestHandleTeacherRoundTrip(t *testing.T) {
	o, sessions := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := sessions.CreateTeacher(ctx, "tok-t")
	require.NoError(t, err)

	reply, err := o.HandleTeacher(ctx, TeacherQuery{
		SessionToken:    "tok-t",
		InstructorID:    "in-1",
		InstructorEmail: "ada@school.edu",
		Message:         "good morning",
		Subjects:        []string{"Physics"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help with your class?", reply)

	mem, err := sessions.GetTeacher(ctx, "tok-t")
	require.NoError(t, err)
	require.Len(t, mem.Conversation, 2)
	assert.Equal(t, teacher.RouteOutOfScope, mem.Conversation[1].Route)
}

func TestConversationGrowsAcrossRequests(t *testing.T) {
	o, sessions := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := sessions.CreateStudent(ctx, "tok-g")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := o.HandleStudent(ctx, StudentQuery{
			SessionToken: "tok-g",
			StudentID:    "st-1",
			Message:      "hello again",
		})
		require.NoError(t, err)
	}

	mem, err := sessions.GetStudent(ctx, "tok-g")
	require.NoError(t, err)
	assert.Len(t, mem.Conversation, 6)
}
