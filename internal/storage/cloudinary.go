// Package storage proxies file uploads to an external object host.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// Disabled rejects every upload; used when no provider is configured.
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	return "", errors.New("object storage not configured")
}

type Cloudinary struct{ cld *cloudinary.Cloudinary }

// NewCloudinary expects a cloudinary:// URL carrying the credentials.
func NewCloudinary(url string) (*Cloudinary, error) {
	if url == "" {
		return nil, errors.New("cloudinary url not configured")
	}
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, err
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{ResourceType: "auto"})
	if err != nil {
		return "", err
	}
	if resp.Error.Message != "" {
		return "", errors.New(resp.Error.Message)
	}
	return resp.SecureURL, nil
}
