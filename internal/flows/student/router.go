// Package student implements the student-side routing flow: top-level
// intent classification into course, support, performance or out_of_scope,
// plus the nested support sub-flow.
package student

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/studyhall-ai/orchestrator/internal/executor"
	"github.com/studyhall-ai/orchestrator/internal/flows"
	"github.com/studyhall-ai/orchestrator/internal/memory"
	"github.com/studyhall-ai/orchestrator/internal/metrics"
)

// Top-level routes.
const (
	RouteCourse      = "course"
	RouteSupport     = "support"
	RoutePerformance = "performance"
	RouteOutOfScope  = "out_of_scope"
)

const (
	courseUnavailableReply      = "Sorry, I couldn't process your course question right now."
	performanceUnavailableReply = "Sorry, I couldn't retrieve your performance details right now."
	unknownRouteReply           = "I'm still learning. Could you rephrase?"
)

// Query is one student message plus the role context the flows need.
type Query struct {
	StudentID string
	Grade     string
	Message   string
	Subjects  []string
}

// Flow routes student turns. Construct once and share; all state lives in
// the per-session memory passed to Handle.
type Flow struct {
	invoker *executor.Invoker
	support *supportFlow
	logger  *zap.Logger
}

// New builds the student flow. records and spawner feed the support
// sub-flow's deferred suggested-reply job.
func New(invoker *executor.Invoker, spawner TaskSpawner, records TicketRecords, logger *zap.Logger) *Flow {
	return &Flow{
		invoker: invoker,
		support: newSupportFlow(invoker, spawner, records, logger),
		logger:  logger,
	}
}

// Handle runs one routing pass: classify, record the user turn, dispatch.
// The returned reply has already been appended to the conversation as a bot
// turn, either here or by the support sub-flow.
func (f *Flow) Handle(ctx context.Context, q Query, mem *memory.StudentMemory) (string, error) {
	decision := f.classify(ctx, q, mem)
	mem.LastRoute = decision.Route
	mem.LastReason = decision.Reason

	mem.AppendUser(q.Message)
	metrics.TurnsRouted.WithLabelValues("student", decision.Route).Inc()
	f.logger.Info("Routing student turn",
		zap.String("student_id", q.StudentID),
		zap.String("route", decision.Route),
		zap.String("reason", decision.Reason))

	switch decision.Route {
	case RouteSupport:
		return f.support.Handle(ctx, q, mem)
	case RouteCourse:
		return f.handleCourse(ctx, q, mem, decision), nil
	case RoutePerformance:
		return f.handlePerformance(ctx, q, mem), nil
	case RouteOutOfScope:
		mem.AppendBot(decision.Response)
		return decision.Response, nil
	default:
		mem.AppendBot(unknownRouteReply)
		return unknownRouteReply, nil
	}
}

func (f *Flow) classify(ctx context.Context, q Query, mem *memory.StudentMemory) executor.RoutingResult {
	payload := map[string]interface{}{
		"user_input":           q.Message,
		"available_subjects":   strings.Join(q.Subjects, ", "),
		"conversation_history": flows.ConversationJSON(mem.Conversation),
		"last_route":           mem.LastRoute,
		"last_reason":          mem.LastReason,
		"last_subject":         mem.LastSubject,
	}

	var decision executor.RoutingResult
	if !f.invoker.Typed(ctx, executor.StudentSupervisor, payload, &decision) {
		metrics.RoutingFallbacks.WithLabelValues("student", "route").Inc()
		return executor.RoutingResult{Route: RouteSupport, Reason: "escalation"}
	}
	return decision
}

func (f *Flow) handleCourse(ctx context.Context, q Query, mem *memory.StudentMemory, decision executor.RoutingResult) string {
	payload := map[string]interface{}{
		"user_input":           q.Message,
		"available_subjects":   strings.Join(q.Subjects, ", "),
		"conversation_history": flows.ConversationJSON(mem.Conversation),
		"last_subject":         mem.LastSubject,
		"supervisor_output":    flows.JSONField(decision),
		"grade":                q.Grade,
	}

	var out executor.CourseAnswerResult
	if !f.invoker.Typed(ctx, executor.CourseAnswer, payload, &out) {
		mem.AppendBot(courseUnavailableReply)
		return courseUnavailableReply
	}

	answer := out.Response
	if len(out.Source) > 0 {
		bullets := make([]string, len(out.Source))
		for i, src := range out.Source {
			bullets[i] = fmt.Sprintf("- %s", src)
		}
		answer += fmt.Sprintf("\n\nSources:\n%s", strings.Join(bullets, "\n"))
	}

	mem.AppendBot(answer)
	if len(out.LastSubject) > 0 {
		mem.LastSubject = out.LastSubject
	}
	return answer
}

func (f *Flow) handlePerformance(ctx context.Context, q Query, mem *memory.StudentMemory) string {
	payload := map[string]interface{}{
		"student_query":        q.Message,
		"allowed_courses":      strings.Join(q.Subjects, ", "),
		"conversation_history": flows.ConversationJSON(mem.Conversation),
		"grade":                q.Grade,
		"student_id":           q.StudentID,
	}

	var out executor.PerformanceResult
	if !f.invoker.Typed(ctx, executor.Performance, payload, &out) || out.Response == "" {
		mem.AppendBot(performanceUnavailableReply)
		return performanceUnavailableReply
	}

	mem.AppendBot(out.Response)
	return out.Response
}
