package cli

import (
	"context"
	"fmt"

	"github.com/ctfkit/instanced/internal/catalog"
	"github.com/ctfkit/instanced/internal/protocol"
)

// Represents the 'instanced image' command group.
type ImageCmd struct {
	Register ImageRegisterCmd `cmd:"" help:"Publish a built image as a challenge."`
}

// Represents the 'instanced image register' command.
type ImageRegisterCmd struct {
	Digest    string `arg:"" help:"Image digest (sha256:<hex>)."`
	Challenge string `arg:"" help:"Challenge the image instantiates."`
	Title     string `help:"Human-readable image title." placeholder:"TITLE"`
	Revision  string `help:"Source revision the image was built from." placeholder:"REV"`
	Created   string `help:"Build time, RFC 3339." placeholder:"TIME"`
}

// Executes the image register command.
//
// The digest is validated locally before the daemon is contacted.
func (c *ImageRegisterCmd) Run(ctx context.Context) error {
	d, err := catalog.Normalize(c.Digest)
	if err != nil {
		return err
	}

	req := &protocol.RegisterImageRequest{
		Digest:      d.String(),
		ChallengeID: c.Challenge,
		Metadata:    catalog.Metadata(c.Title, c.Revision, c.Created),
	}
	if err := dial().Call(ctx, protocol.CmdImageRegister, req, nil); err != nil {
		return err
	}

	fmt.Println(d)
	return nil
}
