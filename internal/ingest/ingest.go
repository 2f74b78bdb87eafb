// Package ingest builds a knowledge base from a raw customer-service
// chat export: it groups messages into conversations, derives outcome
// and topic labels, embeds a representative text per conversation, and
// fills a case store. The retrieval engine itself never creates
// records; this is the only writer.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"caseassist/internal/domain"
	"caseassist/internal/store"
)

// Message is one row of the chat export JSON.
type Message struct {
	ContactID     string `json:"contact_id"`
	Text          string `json:"chat_text"`
	UserType      string `json:"chat_user_type"`
	TimeShift     int    `json:"chat_time_shift"`
	MessageNumber int    `json:"message_number"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
}

// Conversation is a fully grouped chat session ready for embedding.
type Conversation struct {
	ID               string
	CustomerMessages []string
	AgentMessages    []string
	Outcome          domain.Outcome
	Topic            string
	Start            time.Time
	DurationSecs     float64
	MessageCount     int
}

const representativeMessages = 3

// resolution and escalation indicator keyword sets; escalation wins
// when both appear, since a handoff ends the conversation regardless
// of pleasantries at the end.
var (
	resolutionIndicators = []string{
		"resolved", "fixed", "sorted", "done", "complete",
		"thank you", "thanks", "perfect", "great", "excellent",
	}
	escalationIndicators = []string{
		"escalate", "escalated", "supervisor", "manager", "complaint",
	}
)

// topicKeywords categorizes a conversation by its opening customer
// message. First match wins; unmatched conversations get "other".
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"billing", []string{"bill", "charge", "payment", "cost", "price", "fee"}},
	{"technical", []string{"not working", "broken", "issue", "problem", "error", "bug"}},
	{"account", []string{"account", "login", "password", "access", "profile"}},
	{"service", []string{"cancel", "upgrade", "downgrade", "change", "plan"}},
	{"roaming", []string{"roaming", "overseas", "international", "abroad"}},
	{"data", []string{"data", "internet", "wifi", "connection", "slow"}},
}

// LoadExport reads and parses a chat export file.
func LoadExport(path string) ([]Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("parse chat export: %w", err)
	}
	return msgs, nil
}

// GroupConversations groups export messages by contact id and derives
// per-conversation metadata. Messages with a blank contact id are
// grouped under a generated id so they are not silently dropped.
func GroupConversations(msgs []Message) []Conversation {
	type working struct {
		conv Conversation
		msgs []Message
	}
	byContact := make(map[string]*working)
	var order []string
	fallbackID := ""
	for _, m := range msgs {
		id := m.ContactID
		if id == "" {
			if fallbackID == "" {
				fallbackID = uuid.NewString()
			}
			id = fallbackID
		}
		w, ok := byContact[id]
		if !ok {
			w = &working{conv: Conversation{ID: id}}
			byContact[id] = w
			order = append(order, id)
		}
		w.msgs = append(w.msgs, m)
	}

	out := make([]Conversation, 0, len(order))
	for _, id := range order {
		w := byContact[id]
		sort.SliceStable(w.msgs, func(i, j int) bool {
			return w.msgs[i].MessageNumber < w.msgs[j].MessageNumber
		})
		conv := w.conv
		conv.MessageCount = len(w.msgs)
		for _, m := range w.msgs {
			if strings.EqualFold(m.UserType, "customer") {
				conv.CustomerMessages = append(conv.CustomerMessages, m.Text)
			} else {
				conv.AgentMessages = append(conv.AgentMessages, m.Text)
			}
		}
		first := w.msgs[0]
		if start, err := parseExportTime(first.StartDate); err == nil {
			conv.Start = start
			if end, err := parseExportTime(first.EndDate); err == nil && end.After(start) {
				conv.DurationSecs = end.Sub(start).Seconds()
			}
		}
		conv.Outcome = detectOutcome(w.msgs)
		conv.Topic = detectTopic(conv.CustomerMessages)
		out = append(out, conv)
	}
	return out
}

// RepresentativeText joins the opening customer and agent messages into
// the text that gets embedded for the conversation.
func (c Conversation) RepresentativeText() string {
	customer := c.CustomerMessages
	if len(customer) > representativeMessages {
		customer = customer[:representativeMessages]
	}
	agent := c.AgentMessages
	if len(agent) > representativeMessages {
		agent = agent[:representativeMessages]
	}
	return fmt.Sprintf("Customer: %s Agent: %s",
		strings.Join(customer, " "), strings.Join(agent, " "))
}

// BuildStore embeds every conversation and upserts the resulting case
// records into a fresh store sized by the embedder's dimension.
func BuildStore(ctx context.Context, embedder domain.Embedder, convs []Conversation) (*store.Store, error) {
	if len(convs) == 0 {
		return nil, fmt.Errorf("%w: no conversations to ingest", domain.ErrInvalidArgument)
	}
	var st *store.Store
	for _, conv := range convs {
		vec, err := embedder.Embed(ctx, conv.RepresentativeText())
		if err != nil {
			return nil, fmt.Errorf("embed conversation %s: %w", conv.ID, err)
		}
		normalize(vec)
		if st == nil {
			// remote embedders only learn their dimension on first use
			st, err = store.New(len(vec))
			if err != nil {
				return nil, err
			}
		}
		rec := domain.CaseRecord{
			ID:           conv.ID,
			Text:         conv.RepresentativeText(),
			Embedding:    vec,
			Outcome:      conv.Outcome,
			Topic:        conv.Topic,
			Timestamp:    conv.Start,
			DurationSecs: conv.DurationSecs,
			MessageCount: conv.MessageCount,
		}
		if err := st.Upsert(rec); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func detectOutcome(msgs []Message) domain.Outcome {
	var all strings.Builder
	for _, m := range msgs {
		all.WriteString(strings.ToLower(m.Text))
		all.WriteString(" ")
	}
	full := all.String()
	for _, kw := range escalationIndicators {
		if strings.Contains(full, kw) {
			return domain.OutcomeEscalated
		}
	}
	tail := msgs
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	var last strings.Builder
	for _, m := range tail {
		last.WriteString(strings.ToLower(m.Text))
		last.WriteString(" ")
	}
	for _, kw := range resolutionIndicators {
		if strings.Contains(last.String(), kw) {
			return domain.OutcomeResolved
		}
	}
	return domain.OutcomeUnresolved
}

func detectTopic(customerMessages []string) string {
	if len(customerMessages) == 0 {
		return "other"
	}
	first := strings.ToLower(customerMessages[0])
	for _, cat := range topicKeywords {
		for _, kw := range cat.keywords {
			if strings.Contains(first, kw) {
				return cat.topic
			}
		}
	}
	return "other"
}

// normalize scales vec to unit length in place so that cosine
// similarity reduces to a dot product at query time. The zero vector
// is left untouched.
func normalize(vec []float64) {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
}

func parseExportTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
