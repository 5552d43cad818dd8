package pdf

// FieldDescriptor names a form field that can carry a calculation.
type FieldDescriptor struct {
	Name string `json:"name"`
}

// ValidateRequest represents a request to check a PDF sheet for compatibility
type ValidateRequest struct {
	Path string `json:"path"`
}

// ValidateResult represents the outcome of a compatibility check
type ValidateResult struct {
	Valid   bool   `json:"valid"`
	Path    string `json:"path"`
	Kind    string `json:"kind,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// ListFieldsResult represents the calculable fields of a sheet
type ListFieldsResult struct {
	Path   string            `json:"path"`
	Fields []FieldDescriptor `json:"fields"`
	Count  int               `json:"count"`
}
