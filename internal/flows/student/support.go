package student

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/studyhall-ai/orchestrator/internal/background"
	"github.com/studyhall-ai/orchestrator/internal/executor"
	"github.com/studyhall-ai/orchestrator/internal/flows"
	"github.com/studyhall-ai/orchestrator/internal/memory"
	"github.com/studyhall-ai/orchestrator/internal/metrics"
	"github.com/studyhall-ai/orchestrator/internal/store"
)

// Support sub-intents.
const (
	IntentEscalation     = "escalation"
	IntentTicketCreation = "ticket_creation"
	IntentTicketDetails  = "ticket_details"
	IntentAdministrative = "administrative_query"
)

const (
	escalationFallbackReply  = "Would you like me to raise a support ticket for this?"
	ticketCreateFailedReply  = "Failed to create support ticket. Please try again later or contact admin."
	ticketDetailsFailedReply = "Sorry, I couldn't fetch your ticket details right now."
	adminQueryFailedReply    = "Sorry, I couldn't retrieve that information right now."
	unknownIntentReply       = "I'm not sure how to help with that—could you rephrase?"
)

// TicketRecords is the slice of the record store the support sub-flow and
// its background job need.
type TicketRecords interface {
	TicketByID(ctx context.Context, id string) (*store.SupportTicket, error)
	StudentProfile(ctx context.Context, studentID string) (*store.StudentProfile, error)
	UpdateSuggestedReply(ctx context.Context, ticketID, reply string) error
}

// TaskSpawner schedules deferred work after the reply is returned.
type TaskSpawner interface {
	Spawn(job background.Job) bool
}

type supportFlow struct {
	invoker *executor.Invoker
	spawner TaskSpawner
	records TicketRecords
	logger  *zap.Logger
}

func newSupportFlow(invoker *executor.Invoker, spawner TaskSpawner, records TicketRecords, logger *zap.Logger) *supportFlow {
	return &supportFlow{invoker: invoker, spawner: spawner, records: records, logger: logger}
}

// Handle classifies the support sub-intent and runs its handler. The
// sub-flow appends its own terminal bot turn.
func (s *supportFlow) Handle(ctx context.Context, q Query, mem *memory.StudentMemory) (string, error) {
	payload := map[string]interface{}{
		"user_input":           q.Message,
		"conversation_history": flows.ConversationJSON(mem.Conversation),
		"student_id":           q.StudentID,
	}

	var intentOut executor.SupportIntentResult
	if !s.invoker.Typed(ctx, executor.SupportIntent, payload, &intentOut) {
		metrics.RoutingFallbacks.WithLabelValues("student", "sub_route").Inc()
		intentOut.Intent = IntentEscalation
	}
	metrics.SubRoutesHandled.WithLabelValues("support", intentOut.Intent).Inc()

	var botMsg string
	switch intentOut.Intent {
	case IntentEscalation:
		botMsg = s.invoker.Raw(ctx, executor.SupportTicketPrompt, payload)
		if botMsg == "" {
			botMsg = escalationFallbackReply
		}

	case IntentTicketCreation:
		botMsg = s.handleTicketCreation(ctx, q, payload)

	case IntentTicketDetails:
		botMsg = s.invoker.Raw(ctx, executor.FetchTicket, payload)
		if botMsg == "" {
			botMsg = ticketDetailsFailedReply
		}

	case IntentAdministrative:
		var out executor.AdministrativeAnswerResult
		if s.invoker.Typed(ctx, executor.AdministrativeQuery, payload, &out) && out.Response != "" {
			botMsg = out.Response
		} else {
			botMsg = adminQueryFailedReply
		}

	default:
		botMsg = unknownIntentReply
	}

	mem.AppendBot(botMsg)
	return botMsg, nil
}

func (s *supportFlow) handleTicketCreation(ctx context.Context, q Query, payload map[string]interface{}) string {
	var out executor.RaiseTicketResult
	if !s.invoker.Typed(ctx, executor.RaiseTicket, payload, &out) || out.Response == "" {
		return ticketCreateFailedReply
	}

	if out.SupportTicketID != "" {
		s.spawnSuggestedReply(out.SupportTicketID, q.StudentID)
	}
	return out.Response
}

// spawnSuggestedReply defers drafting an assignee reply for the new ticket.
// The reply is computed by a course or administrative executor depending on
// the ticket's type and persisted on the ticket record, all after the
// creation confirmation has been returned to the student.
func (s *supportFlow) spawnSuggestedReply(ticketID, studentID string) {
	s.spawner.Spawn(background.Job{
		Key:  ticketID,
		Name: "suggested-reply",
		Run: func(ctx context.Context) error {
			ticket, err := s.records.TicketByID(ctx, ticketID)
			if err != nil {
				return fmt.Errorf("load ticket: %w", err)
			}

			var reply string
			if ticket.Type == "course" {
				profile, err := s.records.StudentProfile(ctx, studentID)
				if err != nil {
					return fmt.Errorf("load student profile: %w", err)
				}
				payload := map[string]interface{}{
					"support_ticket_issue": ticket.Content,
					"available_subjects":   profile.CourseNames,
					"grade":                profile.Grade,
				}
				var out executor.CourseReplyResult
				if !s.invoker.Typed(ctx, executor.ResolveCourseQuery, payload, &out) {
					return fmt.Errorf("draft course reply for ticket %s: executor unavailable", ticketID)
				}
				reply = out.Response
			} else {
				payload := map[string]interface{}{"user_input": ticket.Content}
				var out executor.AdministrativeAnswerResult
				if !s.invoker.Typed(ctx, executor.AdministrativeQuery, payload, &out) {
					return fmt.Errorf("draft administrative reply for ticket %s: executor unavailable", ticketID)
				}
				reply = out.Response
			}

			return s.records.UpdateSuggestedReply(ctx, ticketID, reply)
		},
	})
}
