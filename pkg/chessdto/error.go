package chessdto

// Error codes shared by the REST API and the event stream.
const (
	CodeMalformed     = "malformed_request"
	CodeNotFound      = "session_not_found"
	CodeFull          = "session_full"
	CodeNotActive     = "session_not_active"
	CodeWrongTurn     = "not_your_turn"
	CodeNotInGame     = "not_in_game"
	CodeAlreadyLive   = "already_connected"
	CodeCapacity      = "capacity_reached"
	CodeInternal      = "internal_error"
	CodeRouteNotFound = "route_not_found"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess service error"
}
