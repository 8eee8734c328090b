package model

// Broadcast is an operator announcement shown to everyone while active.
type Broadcast struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
	Active    bool   `json:"active"`
}
