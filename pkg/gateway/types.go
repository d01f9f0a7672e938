package gateway

import "encoding/json"

// Event names on the websocket channel.
const (
	EventJoin           = "join"
	EventHistoryRequest = "history_request"
	EventHistory        = "history"
	EventNewComment     = "new_comment"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRequest binds a connection to a room.
type JoinRequest struct {
	Session string `json:"session"`
}

// HistoryRequest asks for a room's full ordered history.
type HistoryRequest struct {
	Session string `json:"session"`
}

// CommentRequest is a client submission. Time is accepted for wire
// compatibility but ignored: the server assigns its own timestamp.
type CommentRequest struct {
	Name     string `json:"name"`
	RealName string `json:"real_name"`
	Text     string `json:"text"`
	Stamp    string `json:"stamp"`
	Session  string `json:"session"`
	Time     string `json:"time"`
}

func marshalEvent(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
