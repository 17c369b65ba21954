package dto

// ResolveResponse is the canonical envelope returned by resolution endpoints.
// Source tags which tier produced the data.
type ResolveResponse struct {
	Source string      `json:"source"`
	Data   interface{} `json:"data"`
	Note   string      `json:"note,omitempty"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Error    string      `json:"error"`
	Code     string      `json:"code"`
	Details  interface{} `json:"details,omitempty"`
	Required []string    `json:"required,omitempty"`
}
