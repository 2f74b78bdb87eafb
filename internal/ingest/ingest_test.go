package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseassist/internal/domain"
	"caseassist/internal/embedding/hashing"
)

func msg(contact string, n int, userType, text string) Message {
	return Message{
		ContactID:     contact,
		Text:          text,
		UserType:      userType,
		MessageNumber: n,
		StartDate:     "2024-08-14T09:00:00+10:00",
		EndDate:       "2024-08-14T09:05:30+10:00",
	}
}

func TestGroupConversationsByContactID(t *testing.T) {
	convs := GroupConversations([]Message{
		msg("c1", 1, "customer", "my bill is too high"),
		msg("c2", 1, "customer", "internet is slow"),
		msg("c1", 2, "agent", "let me check your account"),
		msg("c2", 2, "agent", "restarting your connection"),
	})
	require.Len(t, convs, 2)
	assert.Equal(t, "c1", convs[0].ID)
	assert.Equal(t, "c2", convs[1].ID)
	assert.Equal(t, 2, convs[0].MessageCount)
	assert.Equal(t, []string{"my bill is too high"}, convs[0].CustomerMessages)
	assert.Equal(t, []string{"let me check your account"}, convs[0].AgentMessages)
}

func TestGroupConversationsOrdersByMessageNumber(t *testing.T) {
	convs := GroupConversations([]Message{
		msg("c1", 3, "customer", "third"),
		msg("c1", 1, "customer", "first"),
		msg("c1", 2, "customer", "second"),
	})
	require.Len(t, convs, 1)
	assert.Equal(t, []string{"first", "second", "third"}, convs[0].CustomerMessages)
}

func TestGroupConversationsDuration(t *testing.T) {
	convs := GroupConversations([]Message{msg("c1", 1, "customer", "hello")})
	require.Len(t, convs, 1)
	assert.InDelta(t, 330, convs[0].DurationSecs, 0.001)
	assert.False(t, convs[0].Start.IsZero())
}

func TestGroupConversationsGeneratesIDForBlankContact(t *testing.T) {
	convs := GroupConversations([]Message{
		{Text: "orphan message", UserType: "customer", MessageNumber: 1},
	})
	require.Len(t, convs, 1)
	assert.NotEmpty(t, convs[0].ID)
}

func TestDetectOutcomeResolved(t *testing.T) {
	convs := GroupConversations([]Message{
		msg("c1", 1, "customer", "my bill is wrong"),
		msg("c1", 2, "agent", "I have adjusted it"),
		msg("c1", 3, "customer", "perfect, thank you"),
	})
	assert.Equal(t, domain.OutcomeResolved, convs[0].Outcome)
}

func TestDetectOutcomeEscalated(t *testing.T) {
	// escalation wins even when the conversation ends with thanks
	convs := GroupConversations([]Message{
		msg("c1", 1, "customer", "I want to speak to a supervisor"),
		msg("c1", 2, "agent", "transferring you now"),
		msg("c1", 3, "customer", "thanks"),
	})
	assert.Equal(t, domain.OutcomeEscalated, convs[0].Outcome)
}

func TestDetectOutcomeUnresolved(t *testing.T) {
	convs := GroupConversations([]Message{
		msg("c1", 1, "customer", "my phone keeps dropping calls"),
		msg("c1", 2, "agent", "I cannot reproduce it"),
	})
	assert.Equal(t, domain.OutcomeUnresolved, convs[0].Outcome)
}

func TestDetectTopic(t *testing.T) {
	cases := map[string]string{
		"there is a wrong charge on my bill": "billing",
		"the app is not working":             "technical",
		"I forgot my password":               "account",
		"I want to cancel my plan":           "service",
		"using my phone overseas":            "roaming",
		"my internet is very slow":           "data",
		"hello there":                        "other",
	}
	for text, topic := range cases {
		convs := GroupConversations([]Message{msg("c1", 1, "customer", text)})
		assert.Equal(t, topic, convs[0].Topic, "text %q", text)
	}
}

func TestRepresentativeTextTakesOpeningMessages(t *testing.T) {
	conv := Conversation{
		CustomerMessages: []string{"one", "two", "three", "four"},
		AgentMessages:    []string{"a", "b", "c", "d"},
	}
	assert.Equal(t, "Customer: one two three Agent: a b c", conv.RepresentativeText())
}

func TestBuildStoreEmbedsAllConversations(t *testing.T) {
	emb := hashing.New(64)
	convs := GroupConversations([]Message{
		msg("c1", 1, "customer", "billing charge is wrong"),
		msg("c1", 2, "agent", "refunded, thanks for waiting"),
		msg("c2", 1, "customer", "slow internet connection"),
		msg("c2", 2, "agent", "restarted the line"),
	})
	st, err := BuildStore(context.Background(), emb, convs)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, 64, st.Dimension())

	rec, err := st.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, "billing", rec.Topic)
	assert.Equal(t, 2, rec.MessageCount)
	assert.Len(t, rec.Embedding, 64)
}

func TestBuildStoreRejectsEmptyInput(t *testing.T) {
	_, err := BuildStore(context.Background(), hashing.New(16), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
