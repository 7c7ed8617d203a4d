package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Protocol version written into every envelope.
const Version = 1

// Identifies the operation an envelope carries.
type Command string

const (
	CmdInstanceCreate  Command = "instance.create"  // Launch an instance. Payload: [CreateRequest].
	CmdInstanceDelete  Command = "instance.delete"  // Remove an instance. Payload: [DeleteRequest].
	CmdInstanceReset   Command = "instance.reset"   // Replace an instance. Payload: [ResetRequest].
	CmdInstanceList    Command = "instance.list"    // List a team's instances. Payload: [ListRequest].
	CmdInstanceExpired Command = "instance.expired" // List expired instances. No payload.
	CmdImageRegister   Command = "image.register"   // Publish a challenge image. Payload: [RegisterImageRequest].
	CmdStatus          Command = "status"           // Query daemon status. No payload.
	CmdShutdown        Command = "shutdown"         // Stop the daemon. No payload.
	CmdOK              Command = "ok"               // Successful response.
	CmdError           Command = "error"            // Failed response. Payload: [ErrorResult].
)

// Wraps every message on the wire.
type Envelope struct {
	Version int             `json:"version"`           // Protocol version.
	Command Command         `json:"command"`           // Operation or response kind.
	Payload json.RawMessage `json:"payload,omitempty"` // Command-specific body.
}

// Encodes a command and its payload as a JSON envelope.
//
// A nil payload is omitted. The result carries no trailing newline.
func Encode(cmd Command, payload any) ([]byte, error) {
	env := Envelope{Version: Version, Command: cmd}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		env.Payload = raw
	}

	return json.Marshal(env)
}

// Decodes a JSON envelope, returning it along with its raw payload.
func Decode(data []byte) (*Envelope, json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: empty message", ErrMalformed)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if env.Version != Version {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	if env.Command == "" {
		return nil, nil, fmt.Errorf("%w: missing command", ErrMalformed)
	}

	return &env, env.Payload, nil
}

// Decodes a raw payload into a value of type T.
//
// Unknown fields are rejected so that a client built against a different
// protocol revision fails loudly. An empty payload decodes to the zero value.
func DecodePayload[T any](payload json.RawMessage) (*T, error) {
	v := new(T)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return v, nil
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return v, nil
}
