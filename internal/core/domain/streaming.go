package domain

import "encoding/json"

type StreamEventType string

const (
	EventAnalysisStarted  StreamEventType = "analysis_started"
	EventSectionComplete  StreamEventType = "section_complete"
	EventAnalysisComplete StreamEventType = "analysis_complete"
	EventError            StreamEventType = "error"
)

const (
	SectionSummary       = "summary"
	SectionStrengths     = "strengths"
	SectionResearchAreas = "research_areas"
	SectionHiddenRisks   = "hidden_risks"
	SectionQuestions     = "questions"
)

// StreamEvent is one decoded `data: {...}` frame of the analysis stream.
// Data is kept raw so that each section can be type-checked on merge.
type StreamEvent struct {
	Type       StreamEventType `json:"type"`
	AnalysisID string          `json:"analysis_id,omitempty"`
	Section    string          `json:"section,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Message    string          `json:"message,omitempty"`
}

type SummarySection struct {
	Summary      string  `json:"summary"`
	OverallScore float64 `json:"overall_score"`
}

// StreamingState accumulates an in-progress analysis. It only fills in
// until IsComplete or Error is set and never changes after that.
type StreamingState struct {
	AnalysisID  string          `json:"analysisId"`
	Summary     *SummarySection `json:"summary"`
	Strengths   []string        `json:"strengths"`
	Weaknesses  []string        `json:"weaknesses"`
	HiddenRisks []string        `json:"hiddenRisks"`
	Questions   []string        `json:"questions"`
	IsComplete  bool            `json:"isComplete"`
	Error       string          `json:"error"`
}

func NewStreamingState() StreamingState {
	return StreamingState{
		Strengths:   []string{},
		Weaknesses:  []string{},
		HiddenRisks: []string{},
		Questions:   []string{},
	}
}

func (s StreamingState) IsTerminal() bool {
	return s.IsComplete || s.Error != ""
}

// HasContent reports whether any section or the analysis id has arrived.
func (s StreamingState) HasContent() bool {
	return s.AnalysisID != "" || s.Summary != nil ||
		len(s.Strengths) > 0 || len(s.Weaknesses) > 0 ||
		len(s.HiddenRisks) > 0 || len(s.Questions) > 0
}

// Clone returns a deep copy so snapshots handed to callers never alias the
// accumulator.
func (s StreamingState) Clone() StreamingState {
	out := s
	if s.Summary != nil {
		summary := *s.Summary
		out.Summary = &summary
	}
	out.Strengths = cloneStrings(s.Strengths)
	out.Weaknesses = cloneStrings(s.Weaknesses)
	out.HiddenRisks = cloneStrings(s.HiddenRisks)
	out.Questions = cloneStrings(s.Questions)
	return out
}

// ToAnalysis converts a completed state into the canonical report.
func (s StreamingState) ToAnalysis() Analysis {
	out := Analysis{
		Strengths:   cloneStrings(s.Strengths),
		Weaknesses:  cloneStrings(s.Weaknesses),
		HiddenRisks: cloneStrings(s.HiddenRisks),
		Questions:   cloneStrings(s.Questions),
	}
	if s.Summary != nil {
		out.Summary = s.Summary.Summary
		out.OverallScore = s.Summary.OverallScore
	}
	return out
}

// CachedAnalysis is the resume cache entry: the last submitted input and the
// state it produced.
type CachedAnalysis struct {
	Request AnalysisRequest `json:"request"`
	State   StreamingState  `json:"state"`
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
