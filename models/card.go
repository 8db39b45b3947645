package models

// Card kinds.
const (
	CardKindMessage      = "message"
	CardKindSummary      = "summary"
	CardKindConfirmation = "confirmation"
)

// Card is a compact, dashboard-renderable summary unit derived from a
// normalized message or an action outcome.
type Card struct {
	ID           string   `json:"id"`
	Kind         string   `json:"kind"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	Ref          string   `json:"ref,omitempty"` // message/thread id the card summarizes
	Tags         []string `json:"tags"`
	OriginIntent string   `json:"origin_intent"`
}
