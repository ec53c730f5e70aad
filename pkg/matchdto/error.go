package matchdto

// Error codes surfaced to callers. Provider and persistence failures are
// absorbed inside the core and never appear here.
const (
	CodeSlotTaken           = "slot_taken"
	CodeRobotAlreadyPresent = "robot_already_present"
	CodeInvalidSeat         = "invalid_seat"
	CodeNotAuthorized       = "not_authorized"
	CodeNotYourTurn         = "not_your_turn"
	CodeGameNotActive       = "game_not_active"
	CodeEmptySquare         = "empty_square"
	CodeInvalidSquare       = "invalid_square"
	CodeIllegalMove         = "illegal_move"
	CodeNotFound            = "not_found"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "match service error"
}
