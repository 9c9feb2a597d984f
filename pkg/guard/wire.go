package guard

import "encoding/json"

// Message types exchanged between supervisor and worker. Messages are
// newline-delimited JSON over the worker's stdin/stdout pipes.
type messageType string

const (
	msgWorkload messageType = "workload"
	msgRequest  messageType = "request"
	msgResponse messageType = "response"
	msgStop     messageType = "stop"
)

// envelope is the wire frame for every message in either direction.
type envelope struct {
	Type     messageType `json:"type"`
	Workload *workload   `json:"workload,omitempty"`
	Request  *request    `json:"request,omitempty"`
	Response *response   `json:"response,omitempty"`
}

// workload identifies the guarded task. It is produced once at guard
// construction and replayed to every (re)started worker as its first
// message, so the task's identity survives restarts.
type workload struct {
	Task string `json:"task"`
}

// request carries the arguments for one invocation.
type request struct {
	Args map[string]interface{} `json:"args"`
}

// response is the tagged outcome of one invocation: either a value or the
// task's own error, never both.
type response struct {
	OK    bool            `json:"ok"`
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}
