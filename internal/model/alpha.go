package model

// DataField identifies a named input time series available to alpha
// expressions. Only ID is spliced into templates; everything else is
// passthrough metadata from the platform catalog.
type DataField struct {
	ID          string                 `json:"id"`
	Description string                 `json:"description,omitempty"`
	Dataset     string                 `json:"dataset,omitempty"`
	Type        string                 `json:"type,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"` // opaque catalog metadata
}

// Operator describes an expression-building function exposed by the
// platform. Grouping by Category is advisory: templates hard-code their
// operator vocabulary, the catalog documents what is available.
type Operator struct {
	Name       string                 `json:"name"`
	Category   string                 `json:"category"` // e.g. "Time Series", "Cross Sectional", "Arithmetic"
	Definition string                 `json:"definition,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

// CheckOutcome is the response of the external syntax/semantic check
// capability for a single expression.
type CheckOutcome struct {
	Status  string                 `json:"status"` // "valid" or anything else
	Error   string                 `json:"error,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CheckStatusValid is the only CheckOutcome status treated as acceptance.
const CheckStatusValid = "valid"

// ValidationResult is the authoritative record of whether an expression
// was accepted.
type ValidationResult struct {
	Expression string                 `json:"expression"`
	IsValid    bool                   `json:"is_valid"`
	Error      string                 `json:"error,omitempty"`
	Details    map[string]interface{} `json:"details"`
}

// GroupOperatorsByCategory buckets catalog operators by their category.
func GroupOperatorsByCategory(operators []Operator) map[string][]Operator {
	grouped := make(map[string][]Operator)
	for _, op := range operators {
		category := op.Category
		if category == "" {
			category = "Other"
		}
		grouped[category] = append(grouped[category], op)
	}
	return grouped
}
