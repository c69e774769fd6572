package teacher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/studyhall-ai/orchestrator/internal/executor"
	"github.com/studyhall-ai/orchestrator/internal/store"
)

type stubExecutor struct {
	name   string
	result *executor.Result
	err    error
	calls  []map[string]interface{}
}

func (s *stubExecutor) Name() string { return s.name }

func (s *stubExecutor) Run(ctx context.Context, payload map[string]interface{}) (*executor.Result, error) {
	s.calls = append(s.calls, payload)
	return s.result, s.err
}

type stubRegistry struct {
	executors map[string]*stubExecutor
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{executors: make(map[string]*stubExecutor)}
}

func (r *stubRegistry) Executor(name string) executor.Executor {
	e, ok := r.executors[name]
	if !ok {
		return nil
	}
	return e
}

func (r *stubRegistry) structured(name string, v interface{}) *stubExecutor {
	raw, _ := json.Marshal(v)
	e := &stubExecutor{name: name, result: &executor.Result{Structured: raw}}
	r.executors[name] = e
	return e
}

func (r *stubRegistry) failing(name string) *stubExecutor {
	e := &stubExecutor{name: name, err: errors.New("crew unavailable")}
	r.executors[name] = e
	return e
}

type stubRecords struct {
	announcements []store.Announcement
	answerKeys    []store.AnswerKeyReplacement
	evaluations   []store.EvaluationSubmission
	err           error
}

func (s *stubRecords) CreateAnnouncement(ctx context.Context, a store.Announcement) error {
	if s.err != nil {
		return s.err
	}
	s.announcements = append(s.announcements, a)
	return nil
}

func (s *stubRecords) ReplaceAnswerKey(ctx context.Context, req store.AnswerKeyReplacement) error {
	if s.err != nil {
		return s.err
	}
	s.answerKeys = append(s.answerKeys, req)
	return nil
}

func (s *stubRecords) SubmitEvaluationFeedback(ctx context.Context, req store.EvaluationSubmission) error {
	if s.err != nil {
		return s.err
	}
	s.evaluations = append(s.evaluations, req)
	return nil
}

func newTestFlow(t *testing.T, reg *stubRegistry) (*Flow, *stubRecords) {
	t.Helper()
	records := &stubRecords{}
	inv := executor.NewInvoker(reg, zap.NewNop())
	return New(inv, records, zap.NewNop()), records
}

func testQuery() Query {
	return Query{
		InstructorID:    "in-3",
		InstructorEmail: "ada@school.edu",
		Message:         "hello",
		Subjects:        []string{"Physics", "History"},
	}
}

// routed returns a registry whose top-level classifier picks the given route.
func routed(route string) *stubRegistry {
	reg := newStubRegistry()
	reg.structured(executor.TeacherSupervisor, executor.TeacherRoutingResult{Route: route, Reason: "new_query"})
	return reg
}
