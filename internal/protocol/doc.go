// Defines the wire protocol between the instanced daemon and its clients.
//
// Each message is a single line of JSON holding an [Envelope]: a protocol
// version, a [Command], and a command-specific payload. A connection carries
// exactly one request and one response. Responses use [CmdOK] with the
// command's result payload, or [CmdError] with an [ErrorResult] when the
// request could not be processed at all.
//
// Lifecycle commands report expected rejections (quota reached, instance
// already running, bad reference) as an unsuccessful result with a user
// message, not as [CmdError].
//
// Example usage:
//
//	data, err := protocol.Encode(protocol.CmdInstanceCreate, &protocol.CreateRequest{
//	    Team:  "team1",
//	    Image: "sha256:4f2a...",
//	})
//
//	env, payload, err := protocol.Decode(line)
//	req, err := protocol.DecodePayload[protocol.CreateRequest](payload)
package protocol
