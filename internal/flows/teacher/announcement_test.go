package teacher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall-ai/orchestrator/internal/executor"
	"github.com/studyhall-ai/orchestrator/internal/memory"
)

func announcementRegistry(subRoute string) *stubRegistry {
	reg := routed(RouteAnnouncementActivity)
	reg.structured(executor.AnnouncementIntent, executor.SubRouteResult{SubRoute: subRoute})
	return reg
}

func TestAnnouncementIntentFallback(t *testing.T) {
	reg := routed(RouteAnnouncementActivity)
	reg.failing(executor.AnnouncementIntent)
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Equal(t, rephraseReply, reply)
	assert.Equal(t, SubRouteFallback, mem.Metadata.LastSubRoute)
	// One user turn from the router, one bot turn from the sub-flow.
	require.Len(t, mem.Conversation, 2)
	assert.Equal(t, SubRouteFallback, mem.Conversation[1].SubRoute)
}

func TestAnnouncementCreatorPartialParameters(t *testing.T) {
	reg := announcementRegistry(SubRouteAnnouncementCreator)
	reg.structured(executor.AnnouncementCreator, executor.AnnouncementDraftResult{
		AnnouncementClass: "10",
		Response:          "What should the announcement say, and when is the event?",
	})
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	mem.Metadata.LastAnnouncementSummary = "existing summary"

	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Equal(t, "What should the announcement say, and when is the event?", reply)
	// The known parameter sticks; the missing ones keep prior values.
	assert.Equal(t, "10", mem.Metadata.LastAnnouncementClass)
	assert.Equal(t, "existing summary", mem.Metadata.LastAnnouncementSummary)
	// No draft without all three parameters.
	assert.Empty(t, mem.Metadata.LastDraftAnnouncement)
	assert.Empty(t, mem.Metadata.LastAnnouncementTitle)
}

func TestAnnouncementCreatorFullDraft(t *testing.T) {
	reg := announcementRegistry(SubRouteAnnouncementCreator)
	reg.structured(executor.AnnouncementCreator, executor.AnnouncementDraftResult{
		AnnouncementClass:     "10",
		AnnouncementSummary:   "sports day",
		AnnouncementEventDate: "2026-09-12",
		AnnouncementTitle:     "Sports Day",
		DraftAnnouncement:     "Sports day will be held on Friday.",
	})
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Contains(t, reply, "Title of Announcement: Sports Day")
	assert.Contains(t, reply, "Would you like to publish this suggested draft?")
	assert.Equal(t, "Sports day will be held on Friday.", mem.Metadata.LastDraftAnnouncement)
	assert.Equal(t, "Sports Day", mem.Metadata.LastAnnouncementTitle)
	assert.Equal(t, "10", mem.Metadata.LastAnnouncementClass)
	assert.Equal(t, "sports day", mem.Metadata.LastAnnouncementSummary)
	assert.Equal(t, "2026-09-12", mem.Metadata.LastAnnouncementEventDate)
}

func TestAnnouncementApprovedPersistsAndClears(t *testing.T) {
	reg := announcementRegistry(SubRouteAnnouncementApproved)
	reg.structured(executor.AnnouncementApprove, executor.AnnouncementPublishResult{
		Response:       "Announcement published.",
		AnnouncementID: "ann-7",
		Resolved:       true,
	})
	flow, records := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	mem.Metadata.LastAnnouncementClass = "10"
	mem.Metadata.LastAnnouncementTitle = "Sports Day"
	mem.Metadata.LastDraftAnnouncement = "Sports day on Friday."
	mem.Metadata.LastAnnouncementEventDate = "2026-09-12"
	mem.Metadata.LastAnnouncementSummary = "sports day"

	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Equal(t, "Announcement published.", reply)
	require.Len(t, records.announcements, 1)
	saved := records.announcements[0]
	assert.Equal(t, "ann-7", saved.ID)
	assert.Equal(t, "Sports Day", saved.Title)
	assert.Equal(t, "ada@school.edu", saved.InstructorEmail)

	md := mem.Metadata
	assert.Equal(t, "ann-7", md.LastAnnouncementID)
	assert.Empty(t, md.LastAnnouncementClass)
	assert.Empty(t, md.LastAnnouncementSummary)
	assert.Empty(t, md.LastAnnouncementEventDate)
	assert.Empty(t, md.LastDraftAnnouncement)
	assert.Empty(t, md.LastAnnouncementTitle)
}

func TestAnnouncementApprovedNotResolvedKeepsDraft(t *testing.T) {
	reg := announcementRegistry(SubRouteAnnouncementApproved)
	reg.structured(executor.AnnouncementApprove, executor.AnnouncementPublishResult{
		Response: "I could not publish the announcement, the class is unknown.",
		Resolved: false,
	})
	flow, records := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	mem.Metadata.LastDraftAnnouncement = "Sports day on Friday."

	_, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Empty(t, records.announcements)
	assert.Equal(t, "Sports day on Friday.", mem.Metadata.LastDraftAnnouncement)
}

func TestAnnouncementApprovedStoreFailureIsFatal(t *testing.T) {
	reg := announcementRegistry(SubRouteAnnouncementApproved)
	reg.structured(executor.AnnouncementApprove, executor.AnnouncementPublishResult{
		Response: "Announcement published.",
		Resolved: true,
	})
	flow, records := newTestFlow(t, reg)
	records.err = assert.AnError

	mem := &memory.TeacherMemory{}
	_, err := flow.Handle(context.Background(), testQuery(), mem)
	assert.Error(t, err)
}

func TestAnnouncementFixOverwritesDraftFields(t *testing.T) {
	reg := announcementRegistry(SubRouteAnnouncementFix)
	reg.structured(executor.AnnouncementFix, executor.AnnouncementDraftResult{
		AnnouncementClass:     "10",
		AnnouncementSummary:   "sports day moved",
		AnnouncementEventDate: "2026-09-19",
		AnnouncementTitle:     "Sports Day (rescheduled)",
		DraftAnnouncement:     "Sports day moved to the following Friday.",
	})
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	mem.Metadata.LastAnnouncementEventDate = "2026-09-12"

	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Contains(t, reply, "Do you want to publish this updated draft announcement?")
	assert.Equal(t, "2026-09-19", mem.Metadata.LastAnnouncementEventDate)
	assert.Equal(t, "Sports Day (rescheduled)", mem.Metadata.LastAnnouncementTitle)
	assert.Equal(t, "Sports day moved to the following Friday.", mem.Metadata.LastDraftAnnouncement)
}

func TestAnnouncementFixFailureKeepsDraft(t *testing.T) {
	reg := announcementRegistry(SubRouteAnnouncementFix)
	reg.failing(executor.AnnouncementFix)
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	mem.Metadata.LastDraftAnnouncement = "original draft"

	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Equal(t, announcementFixFailedReply, reply)
	assert.Equal(t, "original draft", mem.Metadata.LastDraftAnnouncement)
	assert.Equal(t, SubRouteAnnouncementFix, mem.Metadata.LastSubRoute)
}
