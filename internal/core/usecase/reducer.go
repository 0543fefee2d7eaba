package usecase

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

const defaultAnalysisError = "Analysis failed"

// ApplyStreamEvent merges one stream event into state. It returns the new
// state and whether the event was applied. Terminal states never change,
// and every event touches only its own field.
func ApplyStreamEvent(state domain.StreamingState, event domain.StreamEvent) (domain.StreamingState, bool) {
	if state.IsTerminal() {
		return state, false
	}

	next := state.Clone()
	switch event.Type {
	case domain.EventAnalysisStarted:
		id := strings.TrimSpace(event.AnalysisID)
		if id == "" {
			return state, false
		}
		next.AnalysisID = id
		return next, true

	case domain.EventSectionComplete:
		if !mergeSection(&next, event.Section, event.Data) {
			slog.Warn("stream_event_dropped",
				"reason", "malformed_or_unknown_section",
				"section", event.Section,
			)
			return state, false
		}
		return next, true

	case domain.EventAnalysisComplete:
		next.IsComplete = true
		return next, true

	case domain.EventError:
		msg := strings.TrimSpace(event.Message)
		if msg == "" {
			msg = defaultAnalysisError
		}
		next.Error = msg
		return next, true

	default:
		slog.Warn("stream_event_dropped", "reason", "unknown_type", "type", string(event.Type))
		return state, false
	}
}

// ReplayAnalysis feeds a finalized analysis through the reducer as the
// section events a stream would have produced, followed by completion.
func ReplayAnalysis(state domain.StreamingState, analysis domain.Analysis) domain.StreamingState {
	for _, event := range AnalysisEvents(analysis) {
		state, _ = ApplyStreamEvent(state, event)
	}
	return state
}

// AnalysisEvents converts a finalized analysis into section_complete events
// plus a trailing analysis_complete.
func AnalysisEvents(analysis domain.Analysis) []domain.StreamEvent {
	sections := []struct {
		name    string
		payload any
	}{
		{domain.SectionSummary, map[string]any{"summary": analysis.Summary, "overall_score": analysis.OverallScore}},
		{domain.SectionStrengths, map[string]any{"strengths": nonNil(analysis.Strengths)}},
		{domain.SectionResearchAreas, map[string]any{"weaknesses": nonNil(analysis.Weaknesses)}},
		{domain.SectionHiddenRisks, map[string]any{"hidden_risks": nonNil(analysis.HiddenRisks)}},
		{domain.SectionQuestions, map[string]any{"questions": nonNil(analysis.Questions)}},
	}

	events := make([]domain.StreamEvent, 0, len(sections)+1)
	for _, section := range sections {
		raw, err := json.Marshal(section.payload)
		if err != nil {
			continue
		}
		events = append(events, domain.StreamEvent{
			Type:    domain.EventSectionComplete,
			Section: section.name,
			Data:    raw,
		})
	}
	return append(events, domain.StreamEvent{Type: domain.EventAnalysisComplete})
}

func mergeSection(state *domain.StreamingState, section string, data json.RawMessage) bool {
	var fields map[string]json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &fields) != nil || fields == nil {
		return false
	}

	switch section {
	case domain.SectionSummary:
		summary, ok := decodeSummary(fields)
		if !ok {
			return false
		}
		state.Summary = &summary
	case domain.SectionStrengths:
		return assignList(&state.Strengths, fields, "strengths")
	case domain.SectionResearchAreas:
		return assignList(&state.Weaknesses, fields, "weaknesses")
	case domain.SectionHiddenRisks:
		return assignList(&state.HiddenRisks, fields, "hidden_risks")
	case domain.SectionQuestions:
		return assignList(&state.Questions, fields, "questions")
	default:
		return false
	}
	return true
}

func decodeSummary(fields map[string]json.RawMessage) (domain.SummarySection, bool) {
	var out domain.SummarySection
	rawSummary, ok := fields["summary"]
	if !ok || isNull(rawSummary) || json.Unmarshal(rawSummary, &out.Summary) != nil {
		return domain.SummarySection{}, false
	}
	rawScore, ok := fields["overall_score"]
	if !ok || isNull(rawScore) || json.Unmarshal(rawScore, &out.OverallScore) != nil {
		return domain.SummarySection{}, false
	}
	return out, true
}

// assignList keeps only string items; a missing key or a non-array value
// leaves the field untouched.
func assignList(target *[]string, fields map[string]json.RawMessage, key string) bool {
	raw, ok := fields[key]
	if !ok {
		return false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return false
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		var value string
		if isNull(item) {
			continue
		}
		if err := json.Unmarshal(item, &value); err != nil {
			continue
		}
		out = append(out, value)
	}
	*target = out
	return true
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
