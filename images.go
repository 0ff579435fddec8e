package xiangxin

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
)

const imageDataURIPrefix = "data:image/jpeg;base64,"

// ImageDataURI encodes raw image bytes as a data: URI the API accepts in an image part.
func ImageDataURI(image []byte) string {
	return imageDataURIPrefix + base64.StdEncoding.EncodeToString(image)
}

// EncodeImageFile loads an image from the local file system and encodes it with ImageDataURI. A
// missing file is reported as a validation error naming the path.
func EncodeImageFile(path string) (string, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", validationError("image file not found: %s", path)
		}
		return "", clientError(fmt.Sprintf("failed to read image file %s", path), err)
	}
	return ImageDataURI(image), nil
}

func isImageURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// resolveImage turns an image reference into a data: URI. References that already are data: URIs
// are passed through.
func (c *Client) resolveImage(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "data:"):
		return ref, nil
	case isImageURL(ref):
		image, err := c.transport.Fetch(ctx, ref)
		if err != nil {
			return "", clientError(fmt.Sprintf("failed to download image %s", ref), err)
		}
		return ImageDataURI(image), nil
	}
	return EncodeImageFile(ref)
}

// resolveImages resolves every reference concurrently. The result keeps the input order.
func (c *Client) resolveImages(ctx context.Context, refs []string) ([]string, error) {
	uris := make([]string, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			uri, err := c.resolveImage(gctx, ref)
			if err != nil {
				return err
			}
			uris[i] = uri
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return uris, nil
}
