package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseassist/internal/domain"
)

func TestByTopicAggregates(t *testing.T) {
	records := []domain.CaseRecord{
		{ID: "1", Topic: "billing", Outcome: domain.OutcomeResolved, DurationSecs: 100, Text: "refund refund charge"},
		{ID: "2", Topic: "billing", Outcome: domain.OutcomeUnresolved, DurationSecs: 300, Text: "invoice charge dispute"},
		{ID: "3", Topic: "billing", Outcome: domain.OutcomeEscalated, DurationSecs: 200, Text: "charge complaint"},
		{ID: "4", Topic: "data", Outcome: domain.OutcomeResolved, DurationSecs: 50, Text: "slow internet"},
	}
	reports := ByTopic(records, 2)
	require.Len(t, reports, 2)

	billing := reports[0]
	assert.Equal(t, "billing", billing.Topic)
	assert.Equal(t, 3, billing.TotalCases)
	assert.Equal(t, 1, billing.ResolvedCases)
	assert.Equal(t, 1, billing.EscalatedCases)
	assert.InDelta(t, 1.0/3.0, billing.ResolutionRate, 1e-9)
	assert.InDelta(t, 200, billing.AvgDurationSec, 1e-9)
	// "charge" appears in all three billing cases
	require.NotEmpty(t, billing.CommonTerms)
	assert.Equal(t, "charge", billing.CommonTerms[0])
	assert.LessOrEqual(t, len(billing.CommonTerms), 2)

	assert.Equal(t, "data", reports[1].Topic)
	assert.InDelta(t, 1.0, reports[1].ResolutionRate, 1e-9)
}

func TestByTopicBlankTopicFallsBackToOther(t *testing.T) {
	reports := ByTopic([]domain.CaseRecord{{ID: "1", Outcome: domain.OutcomeResolved}}, 5)
	require.Len(t, reports, 1)
	assert.Equal(t, "other", reports[0].Topic)
}

func TestConfidenceEmptyResultsIsZero(t *testing.T) {
	assert.Zero(t, Confidence(nil))
	assert.Zero(t, Confidence([]domain.CaseSummary{}))
}

func TestConfidenceRewardsResolvedOutcomes(t *testing.T) {
	resolved := []domain.CaseSummary{{Score: 0.8, Outcome: domain.OutcomeResolved}}
	unresolved := []domain.CaseSummary{{Score: 0.8, Outcome: domain.OutcomeUnresolved}}
	assert.Greater(t, Confidence(resolved), Confidence(unresolved))
}

func TestConfidenceIsClamped(t *testing.T) {
	res := []domain.CaseSummary{
		{Score: 0.99, Outcome: domain.OutcomeResolved},
		{Score: 0.98, Outcome: domain.OutcomeResolved},
	}
	c := Confidence(res)
	assert.Greater(t, c, 0.9)
	assert.LessOrEqual(t, c, 1.0)
}
