package dto

// SuggestionResponse carries the comment templates proposed for a
// client/type pair.
type SuggestionResponse struct {
	ClientID    string   `json:"clientId"`
	TypeID      string   `json:"typeId"`
	Suggestions []string `json:"suggestions"`
}
