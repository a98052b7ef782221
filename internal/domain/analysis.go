package domain

// FallbackCaption is the caption used when the analyzer cannot produce a
// usable result. The fallback triple is part of the analyzer contract, not
// an error path.
const FallbackCaption = "When the meme doesn't work as expected"

// Style is an optional visual-style record returned by the analyzer.
type Style struct {
	Mood          string   `json:"mood,omitempty"`
	VisualEffects []string `json:"visual_effects,omitempty"`
	Composition   string   `json:"composition,omitempty"`
}

// AnalysisResult is the structured decomposition of a meme request.
// Invariant: after Reconcile, the three lists have equal length, giving a
// 1:1 correspondence between subject, search query and caption at every
// index. Produced once by the analyzer, consumed once, never mutated.
type AnalysisResult struct {
	Subjects      []string `json:"subjects"`
	SearchQueries []string `json:"search_queries"`
	Captions      []string `json:"captions"`
	Style         *Style   `json:"style,omitempty"`

	// Fallback marks a result substituted after an analyzer failure.
	Fallback bool `json:"-"`
}

// Reconcile truncates all lists to the shortest list's length.
func (r *AnalysisResult) Reconcile() {
	n := len(r.Subjects)
	if len(r.SearchQueries) < n {
		n = len(r.SearchQueries)
	}
	if len(r.Captions) < n {
		n = len(r.Captions)
	}
	r.Subjects = r.Subjects[:n]
	r.SearchQueries = r.SearchQueries[:n]
	r.Captions = r.Captions[:n]
}

// Complete reports whether every required list is non-empty.
func (r *AnalysisResult) Complete() bool {
	return len(r.Subjects) > 0 && len(r.SearchQueries) > 0 && len(r.Captions) > 0
}

// FallbackAnalysis returns the fixed substitute result for a prompt whose
// analysis failed: the original prompt becomes the search query.
func FallbackAnalysis(prompt string) *AnalysisResult {
	return &AnalysisResult{
		Subjects:      []string{"meme"},
		SearchQueries: []string{prompt},
		Captions:      []string{FallbackCaption},
		Fallback:      true,
	}
}
