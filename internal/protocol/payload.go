package protocol

import "github.com/ctfkit/instanced/internal/instance"

// Asks for a new instance of the challenge published under Image.
type CreateRequest struct {
	Team  string `json:"team"`
	Image string `json:"image"` // Image digest, with or without the "sha256:" prefix.
}

// Asks for an instance to be removed.
type DeleteRequest struct {
	ID string `json:"id"` // Full runtime ID.
}

// Asks for an instance to be removed and launched again.
type ResetRequest struct {
	Team  string `json:"team"`
	ID    string `json:"id"`    // Runtime ID of the instance to replace.
	Image string `json:"image"` // Image to launch in its place.
}

// Asks for a team's instances.
type ListRequest struct {
	Team string `json:"team"`
	Live bool   `json:"live"` // Reconcile with the runtime instead of reading records only.
}

// Publishes a challenge image.
type RegisterImageRequest struct {
	Digest      string            `json:"digest"`
	ChallengeID string            `json:"challenge_id"`
	Metadata    map[string]string `json:"metadata,omitempty"` // OCI annotation keys.
}

// Answers create and reset requests.
type InstanceResult struct {
	Success  bool               `json:"success"`
	Message  string             `json:"message"`
	Instance *instance.Instance `json:"instance,omitempty"` // Set on success.
}

// Answers delete requests.
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Answers list and expired requests.
type ListResult struct {
	Instances []instance.Instance `json:"instances"`
}

// Answers status requests.
type StatusResult struct {
	Running  bool   `json:"running"`
	Version  string `json:"version"`
	Pid      int    `json:"pid"`
	Uptime   string `json:"uptime"`
	Requests int    `json:"requests"` // Lifecycle requests handled since start.
}

// Describes a request that could not be processed.
type ErrorResult struct {
	Message string `json:"message"`
}
