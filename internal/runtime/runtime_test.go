package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ctfkit/instanced/internal/instance"
	"github.com/docker/docker/client"
)

const (
	testID    = "4f2a9c1e7b3d5f608a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f6071"
	createdID = "9b8a7c6d5e4f30211f2e3d4c5b6a79888f7e6d5c4b3a29180f1e2d3c4b5a6978"
)

// Minimal Docker Engine API double.
type fakeDaemon struct {
	mu       sync.Mutex
	exists   map[string]bool
	created  []map[string]any
	startErr bool
}

func (f *fakeDaemon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v1.47")
	w.Header().Set("Api-Version", "1.47")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case path == "/_ping":
		w.Write([]byte("OK"))

	case r.Method == http.MethodPost && path == "/containers/create":
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body)
		f.exists[testID] = true
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"Id": testID, "Warnings": []string{}})

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/start"):
		if f.startErr {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"message": "port allocation failed"})
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodGet && path == "/containers/"+testID+"/json":
		json.NewEncoder(w).Encode(map[string]any{
			"Id":      testID,
			"Created": "2026-10-19T10:00:00.123456789Z",
			"State":   map[string]any{"Status": "running", "Running": true},
			"Image":   "sha256:" + strings.Repeat("a", 64),
			"Config": map[string]any{
				"Labels": map[string]string{"owner": "team1", "challenge": "web-1", "delete_at": "1791115200"},
			},
			"NetworkSettings": map[string]any{
				"Ports": map[string]any{
					"80/tcp":   []map[string]string{{"HostIp": "0.0.0.0", "HostPort": "32768"}},
					"9999/udp": nil,
				},
			},
		})

	case r.Method == http.MethodGet && path == "/containers/json":
		list := []map[string]any{{
			"Id":      testID,
			"ImageID": "sha256:" + strings.Repeat("a", 64),
			"Created": 1791114000,
			"State":   "running",
			"Labels":  map[string]string{"owner": "team1", "challenge": "web-1", "delete_at": "1791115200"},
			"Ports": []map[string]any{
				{"IP": "0.0.0.0", "PrivatePort": 80, "PublicPort": 32768, "Type": "tcp"},
				{"IP": "::", "PrivatePort": 80, "PublicPort": 32768, "Type": "tcp"},
				{"PrivatePort": 9999, "Type": "udp"},
			},
		}}
		if r.URL.Query().Get("all") == "1" {
			list = append(list, map[string]any{
				"Id":      createdID,
				"ImageID": "sha256:" + strings.Repeat("a", 64),
				"Created": 1791114060,
				"State":   "created",
				"Labels":  map[string]string{"owner": "team1", "challenge": "pwn-2", "delete_at": "1791115260"},
			})
		}
		json.NewEncoder(w).Encode(list)

	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/containers/"):
		id := strings.TrimPrefix(path, "/containers/")
		if !f.exists[id] {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "No such container: " + id})
			return
		}
		delete(f.exists, id)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "unexpected " + r.Method + " " + path})
	}
}

func newTestDocker(t *testing.T, f *fakeDaemon) (*Docker, *atomic.Int32) {
	t.Helper()

	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	d, err := New(Config{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var connects atomic.Int32
	d.connect = func(Config) (*client.Client, error) {
		connects.Add(1)
		return client.NewClientWithOpts(
			client.WithHost("tcp://"+srv.Listener.Addr().String()),
			client.WithVersion("1.47"),
			client.WithHTTPClient(srv.Client()),
		)
	}
	t.Cleanup(func() { d.Close() })

	return d, &connects
}

func TestRun(t *testing.T) {
	f := &fakeDaemon{exists: map[string]bool{}}
	d, _ := newTestDocker(t, f)

	expires := time.Unix(1791115200, 0)
	unit, err := d.Run(context.Background(), RunOptions{
		Image:       "sha256:" + strings.Repeat("a", 64),
		Team:        "team1",
		ChallengeID: "web-1",
		ExpiresAt:   expires,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if unit.ID != testID {
		t.Fatalf("ID = %q, want %q", unit.ID, testID)
	}
	if unit.Ports["80/tcp"] != "32768" {
		t.Fatalf("Ports = %v, want 80/tcp->32768", unit.Ports)
	}
	if _, ok := unit.Ports["9999/udp"]; ok {
		t.Fatalf("unpublished port present in %v", unit.Ports)
	}
	if unit.Team != "team1" || unit.ChallengeID != "web-1" {
		t.Fatalf("labels not applied: %+v", unit)
	}
	if !unit.ExpiresAt.Equal(expires) {
		t.Fatalf("ExpiresAt = %v, want %v", unit.ExpiresAt, expires)
	}
	if !unit.Running {
		t.Fatal("started container reported as stopped")
	}

	if len(f.created) != 1 {
		t.Fatalf("created %d containers, want 1", len(f.created))
	}
	host, _ := f.created[0]["HostConfig"].(map[string]any)
	if host["AutoRemove"] != true || host["PublishAllPorts"] != true {
		t.Fatalf("HostConfig = %v, want AutoRemove and PublishAllPorts", host)
	}
	labels, _ := f.created[0]["Labels"].(map[string]any)
	if labels[LabelOwner] != "team1" || labels[LabelDeleteAt] != "1791115200" || labels[LabelManaged] != "true" {
		t.Fatalf("Labels = %v", labels)
	}
}

func TestRunStartFailureDiscardsContainer(t *testing.T) {
	f := &fakeDaemon{exists: map[string]bool{}, startErr: true}
	d, _ := newTestDocker(t, f)

	_, err := d.Run(context.Background(), RunOptions{Image: "sha256:" + strings.Repeat("a", 64), Team: "team1"})
	if !errors.Is(err, instance.ErrCreateFailed) {
		t.Fatalf("err = %v, want ErrCreateFailed", err)
	}
	if f.exists[testID] {
		t.Fatal("container left behind after failed start")
	}
}

func TestList(t *testing.T) {
	d, _ := newTestDocker(t, &fakeDaemon{exists: map[string]bool{}})

	units, err := d.List(context.Background(), "team1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("len(units) = %d, want 2", len(units))
	}

	u := units[0]
	if len(u.Ports) != 1 || u.Ports["80/tcp"] != "32768" {
		t.Fatalf("Ports = %v, want only 80/tcp->32768", u.Ports)
	}
	if !u.CreatedAt.Equal(time.Unix(1791114000, 0)) {
		t.Fatalf("CreatedAt = %v", u.CreatedAt)
	}
	if !u.Running {
		t.Fatal("running container reported as stopped")
	}
}

func TestListIncludesNeverStarted(t *testing.T) {
	d, _ := newTestDocker(t, &fakeDaemon{exists: map[string]bool{}})

	units, err := d.List(context.Background(), "team1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	var found bool
	for _, u := range units {
		if u.ID != createdID {
			continue
		}
		found = true
		if u.Running {
			t.Fatal("created container reported as running")
		}
		if u.Team != "team1" || u.ChallengeID != "pwn-2" {
			t.Fatalf("labels not applied: %+v", u)
		}
	}
	if !found {
		t.Fatalf("never-started container missing from %d units", len(units))
	}
}

func TestRemoveNotFound(t *testing.T) {
	f := &fakeDaemon{exists: map[string]bool{testID: true}}
	d, _ := newTestDocker(t, f)

	if err := d.Remove(context.Background(), testID); err != nil {
		t.Fatalf("first Remove: %v", err)
	}

	err := d.Remove(context.Background(), testID)
	if !errors.Is(err, instance.ErrNotFound) {
		t.Fatalf("second Remove = %v, want ErrNotFound", err)
	}
	if errors.Is(err, instance.ErrDeleteFailed) {
		t.Fatal("not-found removal reported as delete failure")
	}
}

func TestClientConnectsOnce(t *testing.T) {
	d, connects := newTestDocker(t, &fakeDaemon{exists: map[string]bool{}})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.client(context.Background()); err != nil {
				t.Errorf("client: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := connects.Load(); n != 1 {
		t.Fatalf("connect called %d times, want 1", n)
	}
}

func TestClientUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.Listener.Addr().String()
	srv.Close()

	d, err := New(Config{Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.connect = func(Config) (*client.Client, error) {
		return client.NewClientWithOpts(client.WithHost("tcp://"+addr), client.WithVersion("1.47"))
	}

	_, err = d.List(context.Background(), "team1")
	if !errors.Is(err, instance.ErrRuntimeUnavailable) {
		t.Fatalf("err = %v, want ErrRuntimeUnavailable", err)
	}
	if d.cli.Load() != nil {
		t.Fatal("failed connection was cached")
	}
}

func TestNewInvalidPlatform(t *testing.T) {
	if _, err := New(Config{Platform: "not a/platform/at/all"}); !errors.Is(err, ErrInvalidPlatform) {
		t.Fatalf("err = %v, want ErrInvalidPlatform", err)
	}

	d, err := New(Config{Platform: "linux/arm64"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.platform == nil || d.platform.Architecture != "arm64" {
		t.Fatalf("platform = %+v, want linux/arm64", d.platform)
	}
}

func TestConfigRemote(t *testing.T) {
	full := Config{Host: "tcp://10.0.0.5:2376", CACert: "ca.pem", ClientCert: "cert.pem", ClientKey: "key.pem"}
	if !full.Remote() {
		t.Fatal("fully configured remote not detected")
	}
	partial := full
	partial.ClientKey = ""
	if partial.Remote() {
		t.Fatal("partial remote configuration treated as remote")
	}
}
