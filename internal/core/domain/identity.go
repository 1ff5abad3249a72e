package domain

// Identity is the acting staff member of a request, as asserted by the bearer token.
type Identity struct {
	UserID   string `json:"userID"`
	SchoolID string `json:"schoolID"`
	FullName string `json:"fullName,omitempty"`
}
