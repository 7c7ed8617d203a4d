package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/ctfkit/instanced/internal"
	"github.com/ctfkit/instanced/internal/instance"
	"github.com/ctfkit/instanced/internal/protocol"
	"github.com/opencontainers/go-digest"
)

// User-facing messages for lifecycle outcomes. Daemon detail never reaches
// the client; it is logged instead.
var messages = []struct {
	err error
	msg string
}{
	{instance.ErrInvalidReference, "Invalid image digest"},
	{instance.ErrUnknownImage, "Unknown challenge image"},
	{instance.ErrInvalidTeam, "Invalid team"},
	{instance.ErrInvalidID, "Invalid instance id"},
	{instance.ErrNotFound, "Instance not found"},
	{instance.ErrQuotaExceeded, "Instance limit reached, stop a running challenge first"},
	{instance.ErrAlreadyRunning, "Challenge already running"},
	{instance.ErrRuntimeUnavailable, "Challenge service unavailable"},
	{instance.ErrCreateFailed, "Error creating container"},
	{instance.ErrDeleteFailed, "Error removing container"},
}

// Maps an engine error to the message shown to the user and logs it at a
// level matching its kind.
func userMessage(cmd protocol.Command, err error) string {
	if instance.IsPolicy(err) {
		slog.Info("request rejected", "command", cmd, "reason", err)
	} else {
		slog.Error("request failed", "command", cmd, "error", err)
	}

	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Internal error"
}

// Counts a processed lifecycle request.
func (s *Server) count() {
	s.mu.Lock()
	s.requests++
	s.mu.Unlock()
}

// Handles an instance.create command.
func (s *Server) handleCreate(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.CreateRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.count()

	inst, err := s.engine.Create(ctx, req.Team, req.Image)
	if err != nil {
		s.respond(conn, protocol.CmdOK, &protocol.InstanceResult{
			Message: userMessage(protocol.CmdInstanceCreate, err),
		})
		return
	}

	s.respond(conn, protocol.CmdOK, &protocol.InstanceResult{
		Success:  true,
		Message:  "Challenge started",
		Instance: &inst,
	})
}

// Handles an instance.delete command.
func (s *Server) handleDelete(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.DeleteRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.count()

	if err := s.engine.Delete(ctx, req.ID); err != nil {
		s.respond(conn, protocol.CmdOK, &protocol.DeleteResult{
			Message: userMessage(protocol.CmdInstanceDelete, err),
		})
		return
	}

	s.respond(conn, protocol.CmdOK, &protocol.DeleteResult{Success: true})
}

// Handles an instance.reset command.
//
// When the old instance is removed but the new one fails to start, the
// failure is reported like a failed create.
func (s *Server) handleReset(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.ResetRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.count()

	inst, err := s.engine.Reset(ctx, req.Team, req.ID, req.Image)
	if err != nil {
		s.respond(conn, protocol.CmdOK, &protocol.InstanceResult{
			Message: userMessage(protocol.CmdInstanceReset, err),
		})
		return
	}

	s.respond(conn, protocol.CmdOK, &protocol.InstanceResult{
		Success:  true,
		Message:  "Challenge reset",
		Instance: &inst,
	})
}

// Handles an instance.list command.
func (s *Server) handleList(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.ListRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	list := s.engine.ListCached
	if req.Live {
		list = s.engine.ListLive
	}

	insts, err := list(ctx, req.Team)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{
			Message: userMessage(protocol.CmdInstanceList, err),
		})
		return
	}

	s.respond(conn, protocol.CmdOK, &protocol.ListResult{Instances: nonNil(insts)})
}

// Handles an instance.expired command.
func (s *Server) handleExpired(ctx context.Context, conn net.Conn) {
	insts, err := s.engine.Expired(ctx)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{
			Message: userMessage(protocol.CmdInstanceExpired, err),
		})
		return
	}

	s.respond(conn, protocol.CmdOK, &protocol.ListResult{Instances: nonNil(insts)})
}

// Handles an image.register command.
func (s *Server) handleImageRegister(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	if s.registry == nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: "image registration is disabled"})
		return
	}

	req, err := protocol.DecodePayload[protocol.RegisterImageRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	img := instance.ChallengeImage{
		Digest:      digest.Digest(req.Digest),
		ChallengeID: req.ChallengeID,
		Metadata:    req.Metadata,
	}
	if err := s.registry.Register(ctx, img); err != nil {
		slog.Warn("image registration failed", "digest", req.Digest, "challenge", req.ChallengeID, "error", err)
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	slog.Info("image registered", "digest", req.Digest, "challenge", req.ChallengeID)
	s.respond(conn, protocol.CmdOK, nil)
}

// Handles a status command.
func (s *Server) handleStatus(conn net.Conn) {
	s.mu.Lock()
	requests := s.requests
	s.mu.Unlock()

	uptime := time.Since(s.startedAt).Truncate(time.Second)

	s.respond(conn, protocol.CmdOK, &protocol.StatusResult{
		Running:  true,
		Version:  internal.VersionString(),
		Pid:      os.Getpid(),
		Uptime:   uptime.String(),
		Requests: requests,
	})
}

// Handles a shutdown command.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}

// Returns insts, or an empty slice so that lists encode as [] rather than null.
func nonNil(insts []instance.Instance) []instance.Instance {
	if insts == nil {
		return []instance.Instance{}
	}
	return insts
}
