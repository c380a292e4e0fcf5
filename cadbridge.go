// Package cadbridge defines the wire protocol and command data model shared by
// the in-host bridge server and the out-of-process client. Messages are
// JSON-encoded and sent over a TCP connection, one per line.
package cadbridge

import (
	"encoding/json"
	"fmt"
	"time"
)

// Request is one frame sent from the bridge client to the transport server.
type Request struct {
	// ID is a per-connection incrementing identifier assigned by the client.
	// The server echoes it back in the response for pairing.
	ID int64 `json:"id"`
	// Method is the structured command name, e.g. "create_primitive".
	Method string `json:"method"`
	// Params is the method-specific argument object.
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is one frame sent from the transport server back to the client.
type Response struct {
	// ID is echoed from the request.
	ID int64 `json:"id"`
	// Result is the method-specific result object. Null when Error is set.
	Result json.RawMessage `json:"result"`
	// Error is set when the command could not be completed.
	Error *Error `json:"error"`
}

// Error kinds. These are stable strings: clients match on them.
const (
	KindProtocolError    = "ProtocolError"
	KindUnknownMethod    = "UnknownMethod"
	KindInvalidArguments = "InvalidArguments"
	KindNoActiveContext  = "NoActiveContext"
	KindExecutionError   = "ExecutionError"
	KindShutdownError    = "ShutdownError"
	KindBridgeClosed     = "BridgeClosed"
	KindTimeout          = "Timeout"
	KindConnectionLost   = "ConnectionLost"
)

// Error describes a bridge-side failure returned to the client.
type Error struct {
	// Kind is a machine-readable error identifier (e.g. "UnknownMethod").
	Kind string `json:"kind"`
	// Message is a human-readable error description.
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Kind + ": " + e.Message
}

// Errorf builds an Error with a formatted message.
func Errorf(kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// CommandKind distinguishes named operations from free-form code payloads.
type CommandKind int

const (
	// Structured is a named operation with typed arguments.
	Structured CommandKind = iota
	// Code is a free-form source payload executed in the session namespace.
	Code
)

// Command is one unit of work bound for the host UI thread. It is immutable
// once enqueued.
type Command struct {
	// ID is the request identifier this command was built from.
	ID int64
	// Kind is Structured or Code.
	Kind CommandKind
	// Method is the operation name ("execute_code" for Code commands).
	Method string
	// Params is the raw argument object.
	Params json.RawMessage
	// IssuedAt is when the transport server accepted the request.
	IssuedAt time.Time
}

// Result is the uniform outcome envelope produced by the command executor.
type Result struct {
	// CommandID matches Command.ID.
	CommandID int64
	// Value is the JSON-encoded result, nil on error or when the command
	// produced no value.
	Value json.RawMessage
	// Stdout is text the command printed while executing, captured
	// regardless of success or failure.
	Stdout string
	// Err is set when the command failed.
	Err *Error
}

// OK reports whether the command completed without error.
func (r Result) OK() bool {
	return r.Err == nil
}

// ResponseFor converts a Result into the wire response for the given request ID.
func ResponseFor(id int64, r Result) Response {
	return Response{ID: id, Result: r.Value, Error: r.Err}
}
