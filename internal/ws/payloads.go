package ws

import "encoding/json"

// Message is the envelope for every frame on the observer stream.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// client → server
type inbound struct {
	Type string `json:"type"`
}

// server → client
type ReadyPayload struct {
	Operator int64 `json:"operator"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func encode(typ string, payload any) ([]byte, error) {
	msg := Message{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}
