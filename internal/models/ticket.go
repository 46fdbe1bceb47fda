package models

// Ticket timestamps are RFC3339 strings, matching what the store persists.
type Ticket struct {
	ID               string          `json:"id,omitempty"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	Category         string          `json:"category,omitempty"`
	Priority         string          `json:"priority"`
	Status           string          `json:"status,omitempty"`
	UserID           string          `json:"userId"`
	CreatedAt        string          `json:"createdAt,omitempty"`
	UpdatedAt        string          `json:"updatedAt,omitempty"`
	Timeline         []TimelineEntry `json:"timeline"`
	InternalComments []TimelineEntry `json:"internalComments"`
}

// TimelineEntry is a public ticket update; the same shape serves staff-only
// internal comments. Entries are immutable once appended.
type TimelineEntry struct {
	ID        string `json:"id"`
	UserName  string `json:"userName"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}
