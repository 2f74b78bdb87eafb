// Package insights computes per-topic statistics over a knowledge base
// and a confidence score for a retrieval result set.
package insights

import (
	"regexp"
	"sort"
	"strings"

	"caseassist/internal/domain"
)

// TopicReport aggregates the cases filed under one topic.
type TopicReport struct {
	Topic          string
	TotalCases     int
	ResolvedCases  int
	EscalatedCases int
	ResolutionRate float64
	AvgDurationSec float64
	CommonTerms    []string
}

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// ByTopic groups records by topic and computes per-topic aggregates,
// sorted by descending case count, ties by topic name ascending.
func ByTopic(records []domain.CaseRecord, topTerms int) []TopicReport {
	byTopic := make(map[string][]domain.CaseRecord)
	for _, rec := range records {
		topic := rec.Topic
		if topic == "" {
			topic = "other"
		}
		byTopic[topic] = append(byTopic[topic], rec)
	}
	reports := make([]TopicReport, 0, len(byTopic))
	for topic, recs := range byTopic {
		r := TopicReport{Topic: topic, TotalCases: len(recs)}
		totalDuration := 0.0
		var texts []string
		for _, rec := range recs {
			switch rec.Outcome {
			case domain.OutcomeResolved:
				r.ResolvedCases++
			case domain.OutcomeEscalated:
				r.EscalatedCases++
			}
			totalDuration += rec.DurationSecs
			texts = append(texts, rec.Text)
		}
		r.ResolutionRate = float64(r.ResolvedCases) / float64(r.TotalCases)
		r.AvgDurationSec = totalDuration / float64(r.TotalCases)
		r.CommonTerms = commonTerms(texts, topTerms)
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].TotalCases != reports[j].TotalCases {
			return reports[i].TotalCases > reports[j].TotalCases
		}
		return reports[i].Topic < reports[j].Topic
	})
	return reports
}

// Confidence scores a retrieval result set: a similarity-weighted mean
// with a bonus for resolved outcomes, clamped to 1. An empty result
// set has zero confidence.
func Confidence(summaries []domain.CaseSummary) float64 {
	if len(summaries) == 0 {
		return 0
	}
	totalScore := 0.0
	weightSum := 0.0
	for _, s := range summaries {
		bonus := 0.0
		if s.Outcome == domain.OutcomeResolved {
			bonus = 0.2
		}
		totalScore += (s.Score + bonus) * s.Score
		weightSum += s.Score
	}
	if weightSum <= 0 {
		return 0
	}
	c := totalScore / weightSum
	if c > 1 {
		c = 1
	}
	return c
}

// commonTerms returns the most frequent non-stopword terms across the
// given texts, most frequent first, ties by term ascending.
func commonTerms(texts []string, topK int) []string {
	if topK <= 0 {
		return nil
	}
	freq := make(map[string]int)
	for _, text := range texts {
		for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
			if len(tok) <= 3 {
				continue
			}
			if _, isStop := stopwords[tok]; isStop {
				continue
			}
			freq[tok]++
		}
	}
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if topK > len(terms) {
		topK = len(terms)
	}
	return terms[:topK]
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"that", "this", "with", "will", "just", "have", "your", "from",
		"about", "been", "being", "were", "them", "then", "than", "what",
		"when", "where", "which", "customer", "agent",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
