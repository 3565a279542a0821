package models

// GameAction is an action request as received from a client.
//
// Payload keys by action type:
//
//	play_card, remove_chip: "cardId", "row", "col"
//	discard_dead_card:      "cardId"
//	pass_turn:              none
type GameAction struct {
	ActionType string                 `json:"actionType"`
	Payload    map[string]interface{} `json:"payload"`
}
