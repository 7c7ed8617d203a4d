package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctfkit/instanced/internal/protocol"
)

// Serves a single connection on a temporary socket with the given reply.
func serveOnce(t *testing.T, reply func(env *protocol.Envelope) []byte) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "instanced")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "d.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		line, err := bufio.NewReader(conn).ReadBytes('\n')
		if err != nil {
			return
		}
		env, _, err := protocol.Decode(line)
		if err != nil {
			return
		}
		conn.Write(reply(env))
	}()

	return path
}

func encode(t *testing.T, cmd protocol.Command, payload any) []byte {
	t.Helper()
	data, err := protocol.Encode(cmd, payload)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return append(data, '\n')
}

func TestCall(t *testing.T) {
	got := make(chan protocol.Command, 1)
	path := serveOnce(t, func(env *protocol.Envelope) []byte {
		got <- env.Command
		return encode(t, protocol.CmdOK, &protocol.DeleteResult{Success: true})
	})

	var res protocol.DeleteResult
	err := New(path).Call(context.Background(), protocol.CmdInstanceDelete, &protocol.DeleteRequest{ID: "x"}, &res)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !res.Success {
		t.Fatal("expected success")
	}
	if cmd := <-got; cmd != protocol.CmdInstanceDelete {
		t.Fatalf("server saw %q", cmd)
	}
}

func TestCallDaemonError(t *testing.T) {
	path := serveOnce(t, func(*protocol.Envelope) []byte {
		return encode(t, protocol.CmdError, &protocol.ErrorResult{Message: "unknown command: nope"})
	})

	err := New(path).Call(context.Background(), protocol.Command("nope"), nil, nil)
	if !errors.Is(err, ErrDaemon) {
		t.Fatalf("expected ErrDaemon, got %v", err)
	}
}

func TestCallGarbageResponse(t *testing.T) {
	path := serveOnce(t, func(*protocol.Envelope) []byte {
		return []byte("not json\n")
	})

	err := New(path).Call(context.Background(), protocol.CmdStatus, nil, nil)
	if !errors.Is(err, ErrResponse) {
		t.Fatalf("expected ErrResponse, got %v", err)
	}
}

func TestCallUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sock")

	err := New(path).Call(context.Background(), protocol.CmdStatus, nil, nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
