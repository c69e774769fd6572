package teacher

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/studyhall-ai/orchestrator/internal/executor"
	"github.com/studyhall-ai/orchestrator/internal/flows"
	"github.com/studyhall-ai/orchestrator/internal/memory"
	"github.com/studyhall-ai/orchestrator/internal/metrics"
	"github.com/studyhall-ai/orchestrator/internal/store"
)

// Announcement activity sub-routes.
const (
	SubRouteAnnouncementDetail   = "announcement_detail"
	SubRouteAnnouncementCreator  = "announcement_creator"
	SubRouteAnnouncementApproved = "announcement_approved"
	SubRouteAnnouncementFix      = "announcement_fix"
)

const (
	announcementDetailFailedReply = "I'm unable to fetch your announcement records. Please try again later or contact admin."
	announcementCreateFailedReply = "I'm facing difficulties in creating announcement. Please try again later or contact admin."
	announcementFixFailedReply    = "I'm unable to fix your announcement. Please try again later or contact admin."
)

func (f *Flow) handleAnnouncement(ctx context.Context, q Query, mem *memory.TeacherMemory, decision executor.TeacherRoutingResult) (string, error) {
	md := &mem.Metadata
	intentMetadata := struct {
		LastAnnouncementID string `json:"last_announcement_id"`
		LastSubRoute       string `json:"last_sub_route"`
	}{md.LastAnnouncementID, md.LastSubRoute}

	subRoute := f.classifySubRoute(ctx, executor.AnnouncementIntent, map[string]interface{}{
		"user_input":           q.Message,
		"conversation_history": flows.ConversationJSON(mem.Conversation),
		"metadata":             flows.JSONField(intentMetadata),
	})
	metrics.SubRoutesHandled.WithLabelValues("announcement", subRoute).Inc()

	var botMsg string
	switch subRoute {
	case SubRouteAnnouncementDetail:
		payload := map[string]interface{}{
			"user_query":       q.Message,
			"metadata":         flows.JSONField(intentMetadata),
			"instructor_email": q.InstructorEmail,
		}
		var out executor.AnnouncementDetailResult
		if !f.invoker.Typed(ctx, executor.AnnouncementDetail, payload, &out) {
			botMsg = announcementDetailFailedReply
			break
		}
		botMsg = out.Response
		if botMsg == "" {
			botMsg = announcementDetailFailedReply
		}
		if out.AnnouncementID != "" {
			md.LastAnnouncementID = out.AnnouncementID
		}

	case SubRouteAnnouncementCreator:
		payload := map[string]interface{}{
			"user_query":                   q.Message,
			"last_announcement_class":      md.LastAnnouncementClass,
			"last_announcement_summary":    md.LastAnnouncementSummary,
			"last_announcement_event_date": md.LastAnnouncementEventDate,
		}
		var out executor.AnnouncementDraftResult
		if !f.invoker.Typed(ctx, executor.AnnouncementCreator, payload, &out) {
			botMsg = announcementCreateFailedReply
			break
		}
		if out.Response != "" {
			botMsg = out.Response
		} else {
			botMsg = fmt.Sprintf("I hope you find this draft suitable for your announcement. \n\nTitle of Announcement: %s \n\nAnnouncement Class: %s \n\nAnnouncement Body: %s \n\nEvent Date: %s \n\nWould you like to publish this suggested draft?",
				out.AnnouncementTitle, out.AnnouncementClass, out.DraftAnnouncement, out.AnnouncementEventDate)
		}

		// A draft only exists once all three parameters are known; the
		// parameters themselves stick one by one as they come in.
		if out.AnnouncementClass != "" && out.AnnouncementSummary != "" && out.AnnouncementEventDate != "" {
			md.LastDraftAnnouncement = out.DraftAnnouncement
			md.LastAnnouncementTitle = out.AnnouncementTitle
		}
		if out.AnnouncementClass != "" {
			md.LastAnnouncementClass = out.AnnouncementClass
		}
		if out.AnnouncementSummary != "" {
			md.LastAnnouncementSummary = out.AnnouncementSummary
		}
		if out.AnnouncementEventDate != "" {
			md.LastAnnouncementEventDate = out.AnnouncementEventDate
		}

	case SubRouteAnnouncementApproved:
		payload := map[string]interface{}{
			"announcement_class":      md.LastAnnouncementClass,
			"instructor_email":        q.InstructorEmail,
			"announcement_title":      md.LastAnnouncementTitle,
			"announcement_content":    md.LastDraftAnnouncement,
			"announcement_event_date": md.LastAnnouncementEventDate,
		}
		var out executor.AnnouncementPublishResult
		if !f.invoker.Typed(ctx, executor.AnnouncementApprove, payload, &out) {
			botMsg = announcementCreateFailedReply
			break
		}
		botMsg = out.Response
		if botMsg == "" {
			botMsg = announcementCreateFailedReply
		}
		if out.Resolved {
			id := out.AnnouncementID
			if id == "" {
				id = uuid.NewString()
			}
			err := f.records.CreateAnnouncement(ctx, store.Announcement{
				ID:              id,
				Class:           md.LastAnnouncementClass,
				Title:           md.LastAnnouncementTitle,
				Content:         md.LastDraftAnnouncement,
				EventDate:       md.LastAnnouncementEventDate,
				InstructorEmail: q.InstructorEmail,
			})
			if err != nil {
				return "", fmt.Errorf("persist announcement: %w", err)
			}
			md.LastAnnouncementID = id
			md.LastAnnouncementClass = ""
			md.LastAnnouncementEventDate = ""
			md.LastAnnouncementSummary = ""
			md.LastDraftAnnouncement = ""
			md.LastAnnouncementTitle = ""
		}

	case SubRouteAnnouncementFix:
		payload := map[string]interface{}{
			"user_input":              q.Message,
			"announcement_title":      md.LastAnnouncementTitle,
			"announcement_class":      md.LastAnnouncementClass,
			"announcement_summary":    md.LastAnnouncementSummary,
			"announcement_event_date": md.LastAnnouncementEventDate,
			"draft_announcement":      md.LastDraftAnnouncement,
		}
		var out executor.AnnouncementDraftResult
		if !f.invoker.Typed(ctx, executor.AnnouncementFix, payload, &out) {
			botMsg = announcementFixFailedReply
			break
		}
		if out.Response != "" {
			botMsg = out.Response
		} else {
			botMsg = fmt.Sprintf("The suggested draft announcement has been updated based on your inputs. \n\nUpdated Draft Announcement \n\nTitle of Announcement: %s \n\nAnnouncement Class: %s \n\nAnnouncement Body: %s \n\nEvent Date: %s \n\nDo you want to publish this updated draft announcement?",
				out.AnnouncementTitle, out.AnnouncementClass, out.DraftAnnouncement, out.AnnouncementEventDate)
		}
		md.LastAnnouncementTitle = out.AnnouncementTitle
		md.LastAnnouncementClass = out.AnnouncementClass
		md.LastAnnouncementSummary = out.AnnouncementSummary
		md.LastAnnouncementEventDate = out.AnnouncementEventDate
		md.LastDraftAnnouncement = out.DraftAnnouncement

	default:
		botMsg = rephraseReply
	}

	md.LastSubRoute = subRoute
	mem.AppendBot(botMsg, decision.Route, decision.Reason, subRoute)
	return botMsg, nil
}
