package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fathima-sithara/realtime-service/internal/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTypingExcludesSenderConnection(t *testing.T) {
	f := newFixture(t)
	relay := NewTypingRelay(f.hub, f.hub, zap.NewNop().Sugar())

	relay.Start(context.Background(), f.a1, "c1")

	assert.Empty(t, f.a1.types())
	// a second tab of the same user still sees it
	assert.Equal(t, []string{hub.EventUserTyping}, f.a2.types())
	assert.Equal(t, []string{hub.EventUserTyping}, f.b.types())
	assert.Empty(t, f.c.types())

	var p map[string]string
	require.NoError(t, json.Unmarshal(f.b.payloads(hub.EventUserTyping)[0], &p))
	assert.Equal(t, map[string]string{"userId": "alice", "username": "alice", "conversationId": "c1"}, p)
}

func TestTypingStop(t *testing.T) {
	f := newFixture(t)
	relay := NewTypingRelay(f.hub, f.hub, zap.NewNop().Sugar())

	relay.Stop(context.Background(), f.b, "c1")

	var p map[string]string
	require.Len(t, f.a1.payloads(hub.EventUserStoppedTyping), 1)
	require.NoError(t, json.Unmarshal(f.a1.payloads(hub.EventUserStoppedTyping)[0], &p))
	assert.Equal(t, map[string]string{"userId": "bob", "conversationId": "c1"}, p)
}

func TestTypingIgnoredOutsideRoom(t *testing.T) {
	f := newFixture(t)
	relay := NewTypingRelay(f.hub, f.hub, zap.NewNop().Sugar())

	relay.Start(context.Background(), f.c, "c1")
	assert.Empty(t, f.a1.types())
	assert.Empty(t, f.b.types())
}
