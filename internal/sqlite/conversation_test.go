package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rpggio/benefits-portal/internal/domain/conversation"
	"github.com/rpggio/benefits-portal/internal/repository"
	"github.com/stretchr/testify/require"
)

func newTurn(id, sessionID string, role conversation.Role, text string) *conversation.Turn {
	return &conversation.Turn{
		ID:        id,
		SessionID: sessionID,
		TenantID:  "42",
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

func TestConversationRepository_AppendList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	seedMember(t, db, "m1", "42")
	require.NoError(t, NewSessionRepository(db).Create(ctx, newSession("s1", time.Now().Add(time.Hour)), "h1"))

	repo := NewConversationRepository(db)
	for i := range 5 {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		turn := newTurn(fmt.Sprintf("t%d", i), "s1", role, fmt.Sprintf("turn %d", i))
		if role == conversation.RoleAssistant {
			turn.Kind = "scalar"
			turn.Payload = []byte(`{"value":1}`)
		}
		require.NoError(t, repo.Append(ctx, turn))
	}

	all, err := repo.List(ctx, "s1", conversation.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	require.Equal(t, "turn 0", all[0].Text)
	require.Equal(t, "turn 4", all[4].Text)
	require.JSONEq(t, `{"value":1}`, string(all[1].Payload))
	require.Nil(t, all[0].Payload)

	recent, err := repo.List(ctx, "s1", conversation.ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "turn 3", recent[0].Text)
	require.Equal(t, "turn 4", recent[1].Text)
}

func TestConversationRepository_ClearAndCascade(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	seedMember(t, db, "m1", "42")
	sessions := NewSessionRepository(db)
	require.NoError(t, sessions.Create(ctx, newSession("s1", time.Now().Add(time.Hour)), "h1"))
	require.NoError(t, sessions.Create(ctx, newSession("s2", time.Now().Add(time.Hour)), "h2"))

	repo := NewConversationRepository(db)
	require.NoError(t, repo.Append(ctx, newTurn("a", "s1", conversation.RoleUser, "hi")))
	require.NoError(t, repo.Append(ctx, newTurn("b", "s2", conversation.RoleUser, "hello")))

	require.NoError(t, repo.Clear(ctx, "s1"))
	turns, err := repo.List(ctx, "s1", conversation.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, turns)

	require.NoError(t, sessions.Delete(ctx, "s2"))
	turns, err = repo.List(ctx, "s2", conversation.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, turns)
}

func TestConversationRepository_UnknownSession(t *testing.T) {
	db := NewTestDB(t)
	repo := NewConversationRepository(db)

	err := repo.Append(context.Background(), newTurn("a", "missing", conversation.RoleUser, "hi"))
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}
