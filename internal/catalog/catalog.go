package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ctfkit/instanced/internal/instance"
	"github.com/ctfkit/instanced/internal/store"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Longest reference accepted; a sha256 digest with its algorithm prefix is 71.
const maxReferenceLength = 128

// Backing storage for published images.
type Source interface {
	ResolveImage(ctx context.Context, d digest.Digest) (instance.ChallengeImage, error)
	RegisterImage(ctx context.Context, img instance.ChallengeImage) error
}

// Resolves image references against a [Source].
type Catalog struct {
	src Source
}

// Creates a catalog backed by src.
func New(src Source) *Catalog {
	return &Catalog{src: src}
}

// Checks that ref is a well-formed image digest.
//
// Only hexadecimal digits and the characters of "sha:" are accepted. A
// reference containing ':' must be a valid OCI digest; a bare reference must
// be exactly 64 hex digits. No I/O is performed.
func ValidateReference(ref string) error {
	_, err := Normalize(ref)
	return err
}

// Validates ref and returns it as a canonical sha256 digest.
func Normalize(ref string) (digest.Digest, error) {
	if ref == "" || len(ref) > maxReferenceLength {
		return "", fmt.Errorf("%w: length %d", instance.ErrInvalidReference, len(ref))
	}

	for i := 0; i < len(ref); i++ {
		if !allowed(ref[i]) {
			return "", fmt.Errorf("%w: unexpected character at %d", instance.ErrInvalidReference, i)
		}
	}

	if !strings.Contains(ref, ":") {
		ref = digest.Canonical.String() + ":" + strings.ToLower(ref)
	}

	d, err := digest.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %w", instance.ErrInvalidReference, err)
	}
	if d.Algorithm() != digest.SHA256 {
		return "", fmt.Errorf("%w: unsupported algorithm %s", instance.ErrInvalidReference, d.Algorithm())
	}

	return d, nil
}

// Reports whether c is a hex digit or one of "sha:".
func allowed(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		return true
	case c == 's', c == 'h', c == ':':
		return true
	}
	return false
}

// Resolves ref to the challenge image it names.
//
// The reference is validated before the source is consulted. Returns
// [instance.ErrInvalidReference] for malformed references and
// [instance.ErrUnknownImage] when nothing is published under the digest.
func (c *Catalog) Lookup(ctx context.Context, ref string) (instance.ChallengeImage, error) {
	d, err := Normalize(ref)
	if err != nil {
		return instance.ChallengeImage{}, err
	}

	img, err := c.src.ResolveImage(ctx, d)
	if errors.Is(err, store.ErrNotFound) {
		return instance.ChallengeImage{}, fmt.Errorf("%w: %s", instance.ErrUnknownImage, d)
	}
	if err != nil {
		return instance.ChallengeImage{}, err
	}

	return img, nil
}

// Publishes an image under its digest.
//
// Intended for the image-build pipeline once an image has been pushed to the
// daemon. Metadata keys outside the OCI annotation namespace are rejected.
func (c *Catalog) Register(ctx context.Context, img instance.ChallengeImage) error {
	d, err := Normalize(img.Digest.String())
	if err != nil {
		return err
	}
	if strings.TrimSpace(img.ChallengeID) == "" {
		return ErrMissingChallenge
	}
	for k := range img.Metadata {
		if !strings.HasPrefix(k, annotationPrefix) {
			return fmt.Errorf("%w: %q", ErrMetadataKey, k)
		}
	}

	img.Digest = d
	return c.src.RegisterImage(ctx, img)
}

// Namespace shared by the OCI pre-defined annotation keys.
var annotationPrefix = strings.TrimSuffix(ocispec.AnnotationTitle, "title")

// Returns build metadata keyed by OCI annotations, omitting empty values.
func Metadata(title, revision, created string) map[string]string {
	m := map[string]string{}
	for k, v := range map[string]string{
		ocispec.AnnotationTitle:    title,
		ocispec.AnnotationRevision: revision,
		ocispec.AnnotationCreated:  created,
	} {
		if v != "" {
			m[k] = v
		}
	}
	return m
}
