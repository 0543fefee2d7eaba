package domain

import (
	"errors"
	"strings"
	"time"
)

type ManualPropertyData struct {
	Price              *float64 `json:"price,omitempty"`
	Bedrooms           *int     `json:"bedrooms,omitempty"`
	Bathrooms          *float64 `json:"bathrooms,omitempty"`
	SquareFeet         *int     `json:"square_feet,omitempty"`
	LotSize            *float64 `json:"lot_size,omitempty"`
	YearBuilt          *int     `json:"year_built,omitempty"`
	PropertyType       string   `json:"property_type,omitempty"`
	HOAFees            *float64 `json:"hoa_fees,omitempty"`
	ListingDescription string   `json:"listing_description,omitempty"`
	AdditionalNotes    string   `json:"additional_notes,omitempty"`
}

// AnalysisRequest is the body sent to the analysis backend for both the
// streaming and the one-shot endpoints.
type AnalysisRequest struct {
	PropertyAddress string              `json:"property_address"`
	PropertyTitle   string              `json:"property_title"`
	ManualData      *ManualPropertyData `json:"manual_data,omitempty"`
}

// Normalize trims the request and defaults the title to the address.
func (r AnalysisRequest) Normalize() (AnalysisRequest, error) {
	out := r
	out.PropertyAddress = strings.TrimSpace(out.PropertyAddress)
	out.PropertyTitle = strings.TrimSpace(out.PropertyTitle)
	if out.PropertyAddress == "" {
		return AnalysisRequest{}, WrapError(ErrInvalidInput, "analysis request", errors.New("property address is required"))
	}
	if out.PropertyTitle == "" {
		out.PropertyTitle = out.PropertyAddress
	}
	return out, nil
}

// Analysis is the canonical finalized report. Scores are on a 0-100 scale.
type Analysis struct {
	Summary      string     `json:"summary"`
	OverallScore float64    `json:"overall_score"`
	Strengths    []string   `json:"strengths"`
	Weaknesses   []string   `json:"weaknesses"`
	HiddenRisks  []string   `json:"hidden_risks"`
	Questions    []string   `json:"questions"`
	GeneratedAt  *time.Time `json:"generated_at,omitempty"`
}

type SavedAnalysisKey struct {
	UserID        string `json:"user_id"`
	PropertyInput string `json:"property_input"`
	PropertyTitle string `json:"property_title"`
}

type SavedAnalysis struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	PropertyInput string    `json:"property_input"`
	PropertyTitle string    `json:"property_title"`
	Analysis      Analysis  `json:"analysis"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s SavedAnalysis) Key() SavedAnalysisKey {
	return SavedAnalysisKey{
		UserID:        s.UserID,
		PropertyInput: s.PropertyInput,
		PropertyTitle: s.PropertyTitle,
	}
}

// HighScoreThreshold is the lowest overall score counted as a high score.
const HighScoreThreshold = 80

type SavedAnalysisStats struct {
	Total          int     `json:"total"`
	ThisWeek       int     `json:"this_week"`
	AverageScore   float64 `json:"average_score"`
	HighScoreCount int     `json:"high_score_count"`
}

// ModelInfo describes the model behind the analysis backend.
type ModelInfo struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	Environment   string `json:"environment"`
	IsProduction  bool   `json:"is_production,omitempty"`
	IsDevelopment bool   `json:"is_development,omitempty"`
}

// UnknownModelInfo is reported when the backend cannot be asked.
func UnknownModelInfo(environment string) ModelInfo {
	return ModelInfo{Provider: "unknown", Model: "unknown", Environment: environment}
}
