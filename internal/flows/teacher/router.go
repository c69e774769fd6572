// Package teacher implements the instructor-side routing flow: top-level
// classification into the four activity domains, each owning its own
// sub-intent classification, handler table and sticky-field policy.
package teacher

import (
	"context"

	"go.uber.org/zap"

	"github.com/studyhall-ai/orchestrator/internal/executor"
	"github.com/studyhall-ai/orchestrator/internal/flows"
	"github.com/studyhall-ai/orchestrator/internal/memory"
	"github.com/studyhall-ai/orchestrator/internal/metrics"
	"github.com/studyhall-ai/orchestrator/internal/store"
)

// Top-level routes.
const (
	RouteTicketActivity       = "ticket_activity"
	RouteAnnouncementActivity = "announcement_activity"
	RouteEvaluationActivity   = "evaluation_activity"
	RouteAnswerKeyActivity    = "answer_key_generation_activity"
	RouteOutOfScope           = "out_of_scope"

	// RouteFallback is substituted when the top-level classifier fails; it
	// matches no sub-flow and lands on the generic apology.
	RouteFallback = "fallback"

	// SubRouteFallback is substituted when a domain classifier fails.
	SubRouteFallback = "fallback"
)

const (
	genericFailureReply = "Sorry, I'm facing some issues while processing your request. Please try again later."
	rephraseReply       = "I'm not sure how to help with that—could you rephrase?"
)

// Records is the slice of the record store the teacher sub-flows persist
// through when an approval resolves.
type Records interface {
	CreateAnnouncement(ctx context.Context, a store.Announcement) error
	ReplaceAnswerKey(ctx context.Context, req store.AnswerKeyReplacement) error
	SubmitEvaluationFeedback(ctx context.Context, req store.EvaluationSubmission) error
}

// Query is one instructor message plus role context.
type Query struct {
	InstructorID    string
	InstructorEmail string
	Message         string
	Subjects        []string
}

// Flow routes instructor turns.
type Flow struct {
	invoker *executor.Invoker
	records Records
	logger  *zap.Logger
}

// New builds the teacher flow.
func New(invoker *executor.Invoker, records Records, logger *zap.Logger) *Flow {
	return &Flow{invoker: invoker, records: records, logger: logger}
}

// Handle runs one routing pass. The user turn is appended exactly once
// before dispatch; the terminal bot turn is appended by the sub-flow, or
// here for out_of_scope and unmatched routes.
func (f *Flow) Handle(ctx context.Context, q Query, mem *memory.TeacherMemory) (string, error) {
	decision := f.classify(ctx, q, mem)
	mem.AppendUser(q.Message)
	metrics.TurnsRouted.WithLabelValues("teacher", decision.Route).Inc()
	f.logger.Info("Routing teacher turn",
		zap.String("instructor_id", q.InstructorID),
		zap.String("route", decision.Route),
		zap.String("reason", decision.Reason))

	switch decision.Route {
	case RouteTicketActivity:
		return f.handleTicket(ctx, q, mem, decision)
	case RouteAnnouncementActivity:
		return f.handleAnnouncement(ctx, q, mem, decision)
	case RouteEvaluationActivity:
		return f.handleEvaluation(ctx, q, mem, decision)
	case RouteAnswerKeyActivity:
		return f.handleAnswerKey(ctx, q, mem, decision)
	case RouteOutOfScope:
		mem.AppendBot(decision.Response, decision.Route, decision.Reason, "")
		return decision.Response, nil
	default:
		mem.AppendBot(genericFailureReply, decision.Route, decision.Reason, "")
		return genericFailureReply, nil
	}
}

func (f *Flow) classify(ctx context.Context, q Query, mem *memory.TeacherMemory) executor.TeacherRoutingResult {
	payload := map[string]interface{}{
		"user_input":           q.Message,
		"conversation_history": flows.ConversationJSON(mem.Conversation),
	}

	var decision executor.TeacherRoutingResult
	if !f.invoker.Typed(ctx, executor.TeacherSupervisor, payload, &decision) {
		metrics.RoutingFallbacks.WithLabelValues("teacher", "route").Inc()
		return executor.TeacherRoutingResult{Route: RouteFallback}
	}
	return decision
}

// classifySubRoute runs a domain's intent classifier, substituting the
// fallback sub-route on any failure.
func (f *Flow) classifySubRoute(ctx context.Context, name string, payload map[string]interface{}) string {
	var out executor.SubRouteResult
	if !f.invoker.Typed(ctx, name, payload, &out) || out.SubRoute == "" {
		metrics.RoutingFallbacks.WithLabelValues("teacher", "sub_route").Inc()
		return SubRouteFallback
	}
	return out.SubRoute
}
