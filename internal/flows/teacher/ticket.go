package teacher

import (
	"context"

	"github.com/studyhall-ai/orchestrator/internal/executor"
	"github.com/studyhall-ai/orchestrator/internal/flows"
	"github.com/studyhall-ai/orchestrator/internal/memory"
	"github.com/studyhall-ai/orchestrator/internal/metrics"
)

// Ticket activity sub-routes.
const (
	SubRouteTicketDetail      = "support_ticket_detail"
	SubRouteResolveTicket     = "resolve_ticket"
	SubRouteApproveSuggestion = "approve_suggestion"
	SubRouteFixSuggestion     = "fix_suggestion"
)

const (
	ticketDetailFailedReply  = "I'm unable to fetch your support ticket records. Please try again later or contact admin."
	ticketResolveFailedReply = "I'm unable to work on your ticket right now. Please try again later or contact admin."
	ticketApproveFailedReply = "I'm unable to resolve your ticket right now. Please try again later or contact admin."
	ticketFixFailedReply     = "I'm unable to update the suggested reply with your suggestion. Please try again later or contact admin."
	ticketIDNeededReply      = "Could you please provide the support ticket id which you would like to resolve?"
)

func (f *Flow) handleTicket(ctx context.Context, q Query, mem *memory.TeacherMemory, decision executor.TeacherRoutingResult) (string, error) {
	md := &mem.Metadata
	subRoute := f.classifySubRoute(ctx, executor.TicketIntent, map[string]interface{}{
		"user_input":           q.Message,
		"conversation_history": flows.ConversationJSON(mem.Conversation),
		"metadata":             flows.JSONField(md),
	})
	metrics.SubRoutesHandled.WithLabelValues("ticket", subRoute).Inc()

	var botMsg string
	switch subRoute {
	case SubRouteTicketDetail:
		payload := map[string]interface{}{
			"user_query":       q.Message,
			"metadata":         flows.JSONField(md),
			"instructor_id":    q.InstructorID,
			"instructor_email": q.InstructorEmail,
		}
		var out executor.TicketDetailResult
		if !f.invoker.Typed(ctx, executor.SupportTicketDetail, payload, &out) {
			botMsg = ticketDetailFailedReply
			break
		}
		botMsg = out.Response
		if botMsg == "" {
			botMsg = ticketDetailFailedReply
		}
		if out.SupportTicketID != "" {
			md.LastSupportTicket = out.SupportTicketID
		}

	case SubRouteResolveTicket:
		payload := map[string]interface{}{
			"user_query":             q.Message,
			"last_support_ticket_id": md.LastSupportTicket,
			"support_ticket_id":      md.LastSupportTicket,
		}
		var out executor.SuggestedReplyResult
		if !f.invoker.Typed(ctx, executor.ResolveTicket, payload, &out) {
			botMsg = ticketResolveFailedReply
			break
		}
		if out.SupportTicketID == "" {
			botMsg = ticketIDNeededReply
			break
		}
		botMsg = out.Response
		if botMsg == "" {
			botMsg = ticketResolveFailedReply
		}
		md.LastSupportTicket = out.SupportTicketID
		md.AssigneeReply = out.SuggestedReply

	case SubRouteApproveSuggestion:
		payload := map[string]interface{}{
			"support_ticket_id":    md.LastSupportTicket,
			"support_ticket_reply": md.AssigneeReply,
		}
		var out executor.ApproveSuggestionResult
		if !f.invoker.Typed(ctx, executor.ApproveTicketSuggestion, payload, &out) {
			botMsg = ticketApproveFailedReply
			break
		}
		botMsg = out.Response
		if botMsg == "" {
			botMsg = ticketApproveFailedReply
		}
		if out.Resolved {
			md.LastSupportTicket = ""
			md.AssigneeReply = ""
		}

	case SubRouteFixSuggestion:
		payload := map[string]interface{}{
			"user_input":      q.Message,
			"suggested_reply": md.AssigneeReply,
		}
		var out executor.FixSuggestionResult
		if !f.invoker.Typed(ctx, executor.FixTicketSuggestion, payload, &out) {
			botMsg = ticketFixFailedReply
			break
		}
		botMsg = out.Response
		if botMsg == "" {
			botMsg = ticketFixFailedReply
		}
		if out.SuggestedReply != "" {
			md.AssigneeReply = out.SuggestedReply
		}

	default:
		botMsg = rephraseReply
	}

	md.LastSubRoute = subRoute
	mem.AppendBot(botMsg, decision.Route, decision.Reason, subRoute)
	return botMsg, nil
}
