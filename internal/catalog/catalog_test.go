package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ctfkit/instanced/internal/instance"
	"github.com/ctfkit/instanced/internal/store"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

type fakeSource struct {
	images   map[digest.Digest]instance.ChallengeImage
	resolves int
}

func (f *fakeSource) ResolveImage(_ context.Context, d digest.Digest) (instance.ChallengeImage, error) {
	f.resolves++
	img, ok := f.images[d]
	if !ok {
		return instance.ChallengeImage{}, store.ErrNotFound
	}
	return img, nil
}

func (f *fakeSource) RegisterImage(_ context.Context, img instance.ChallengeImage) error {
	f.images[img.Digest] = img
	return nil
}

var hex64 = strings.Repeat("0123456789abcdef", 4)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "canonical digest", ref: "sha256:" + hex64, want: "sha256:" + hex64},
		{name: "bare hex", ref: hex64, want: "sha256:" + hex64},
		{name: "bare uppercase hex", ref: strings.ToUpper(hex64), want: "sha256:" + hex64},
		{name: "empty", ref: "", wantErr: true},
		{name: "shell injection", ref: "sha256:abc; rm -rf /", wantErr: true},
		{name: "tag reference", ref: "nginx:latest", wantErr: true},
		{name: "short hex", ref: hex64[:12], wantErr: true},
		{name: "uppercase digest", ref: "sha256:" + strings.ToUpper(hex64), wantErr: true},
		{name: "unknown algorithm", ref: "sha:" + hex64, wantErr: true},
		{name: "sha384 digest", ref: "sha384:" + hex64 + hex64[:32], wantErr: true},
		{name: "too long", ref: strings.Repeat("a", 200), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.ref)
			if tt.wantErr {
				if !errors.Is(err, instance.ErrInvalidReference) {
					t.Fatalf("err = %v, want ErrInvalidReference", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Fatalf("Normalize = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	d := digest.Digest("sha256:" + hex64)
	src := &fakeSource{images: map[digest.Digest]instance.ChallengeImage{
		d: {Digest: d, ChallengeID: "web-1"},
	}}
	c := New(src)
	ctx := context.Background()

	img, err := c.Lookup(ctx, hex64)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if img.ChallengeID != "web-1" {
		t.Fatalf("ChallengeID = %q, want web-1", img.ChallengeID)
	}

	if _, err := c.Lookup(ctx, "sha256:"+strings.Repeat("f", 64)); !errors.Is(err, instance.ErrUnknownImage) {
		t.Fatalf("unknown digest = %v, want ErrUnknownImage", err)
	}

	before := src.resolves
	if _, err := c.Lookup(ctx, `"; rm -rf`); !errors.Is(err, instance.ErrInvalidReference) {
		t.Fatalf("malformed = %v, want ErrInvalidReference", err)
	}
	if src.resolves != before {
		t.Fatal("malformed reference reached the source")
	}
}

func TestRegister(t *testing.T) {
	src := &fakeSource{images: map[digest.Digest]instance.ChallengeImage{}}
	c := New(src)
	ctx := context.Background()

	err := c.Register(ctx, instance.ChallengeImage{
		Digest:      digest.Digest(strings.ToUpper(hex64)),
		ChallengeID: "web-1",
		Metadata:    Metadata("Web 1", "abc123", ""),
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	img, ok := src.images[digest.Digest("sha256:"+hex64)]
	if !ok {
		t.Fatal("image not registered under canonical digest")
	}
	if img.Metadata[ocispec.AnnotationTitle] != "Web 1" {
		t.Fatalf("Metadata = %v", img.Metadata)
	}
	if _, ok := img.Metadata[ocispec.AnnotationCreated]; ok {
		t.Fatal("empty metadata value stored")
	}

	if err := c.Register(ctx, instance.ChallengeImage{Digest: digest.Digest(hex64)}); !errors.Is(err, ErrMissingChallenge) {
		t.Fatalf("missing challenge = %v, want ErrMissingChallenge", err)
	}

	err = c.Register(ctx, instance.ChallengeImage{
		Digest:      digest.Digest(hex64),
		ChallengeID: "web-1",
		Metadata:    map[string]string{"problem": "web-1"},
	})
	if !errors.Is(err, ErrMetadataKey) {
		t.Fatalf("foreign metadata key = %v, want ErrMetadataKey", err)
	}
}
