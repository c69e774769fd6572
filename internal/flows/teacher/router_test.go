package teacher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall-ai/orchestrator/internal/executor"
	"github.com/studyhall-ai/orchestrator/internal/memory"
)

func TestClassifierFailureYieldsGenericReply(t *testing.T) {
	reg := newStubRegistry()
	reg.failing(executor.TeacherSupervisor)
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Equal(t, genericFailureReply, reply)
	require.Len(t, mem.Conversation, 2)
	assert.Equal(t, memory.SenderUser, mem.Conversation[0].Sender)

	bot := mem.Conversation[1]
	assert.Equal(t, memory.SenderBot, bot.Sender)
	assert.Equal(t, RouteFallback, bot.Route)
}

func TestOutOfScopeUsesClassifierResponse(t *testing.T) {
	reg := newStubRegistry()
	reg.structured(executor.TeacherSupervisor, executor.TeacherRoutingResult{
		Route:    RouteOutOfScope,
		Reason:   "new_query",
		Response: "I can help with tickets, announcements, evaluations and answer keys.",
	})
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	reply, err := flow.Handle(context.Background(), testQuery(), mem)
	require.NoError(t, err)

	assert.Equal(t, "I can help with tickets, announcements, evaluations and answer keys.", reply)
	require.Len(t, mem.Conversation, 2)
	bot := mem.Conversation[1]
	assert.Equal(t, RouteOutOfScope, bot.Route)
	assert.Equal(t, "new_query", bot.Reason)
	assert.Empty(t, bot.SubRoute)
}

func TestConversationLengthGrowsEachPass(t *testing.T) {
	reg := newStubRegistry()
	reg.failing(executor.TeacherSupervisor)
	flow, _ := newTestFlow(t, reg)

	mem := &memory.TeacherMemory{}
	prev := 0
	for i := 0; i < 3; i++ {
		_, err := flow.Handle(context.Background(), testQuery(), mem)
		require.NoError(t, err)
		assert.Greater(t, len(mem.Conversation), prev)
		prev = len(mem.Conversation)
	}
}
