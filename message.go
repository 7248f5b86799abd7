package robolab

import "encoding/json"

// Command is one inbound unit of work from the transport. Name maps 1:1 to a
// lifecycle trigger, except for the passthrough commands ("gui", "status")
// which never touch the machine.
type Command struct {
	ID   string          `json:"id,omitempty"`
	Name string          `json:"command"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message is an outbound frame to the control client. ID correlates a reply
// to the command that produced it; broadcast messages (state-changed, update)
// leave it empty.
type Message struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command"`
	Data    any    `json:"data,omitempty"`
}

// Ack builds the generic success reply for a processed command.
func (c Command) Ack(data any) Message {
	return Message{ID: c.ID, Command: "ack", Data: data}
}

// ErrorMessage builds the error reply for a failed command.
func (c Command) ErrorMessage(err error) Message {
	return Message{ID: c.ID, Command: "error", Data: map[string]string{"message": err.Error()}}
}

// Introspection is the session information sent on connect.
type Introspection struct {
	BackendVersion    string `json:"backend_version"`
	MiddlewareVersion string `json:"middleware_version"`
	GPUAvailable      bool   `json:"gpu_available"`
}
