// Package qr writes the PNG QR codes that point at a machine's public page.
// Images live in a directory as <slug>.png and are regenerated when missing.
package qr

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"

	"machine-manual-backend/internal/slug"
)

// Generator renders and stores QR images.
type Generator struct {
	dir  string
	size int
	log  logrus.FieldLogger
}

// NewGenerator creates a Generator writing size x size images into dir.
func NewGenerator(dir string, size int, log logrus.FieldLogger) *Generator {
	return &Generator{dir: dir, size: size, log: log}
}

// URLFor is the address encoded in a machine's QR code.
func URLFor(baseURL, publicSlug string) string {
	return strings.TrimRight(baseURL, "/") + "/m/" + publicSlug
}

// Path is where the image for publicSlug is stored.
func (g *Generator) Path(publicSlug string) string {
	return filepath.Join(g.dir, publicSlug+".png")
}

// PNG encodes content as a QR image.
func (g *Generator) PNG(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, g.size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode qr code")
	}
	return png, nil
}

// Ensure returns the image path for publicSlug, writing the image first if it
// does not exist yet.
func (g *Generator) Ensure(baseURL, publicSlug string) (string, error) {
	path := g.Path(publicSlug)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", errors.Wrapf(err, "failed to stat %s", path)
	}
	return path, g.Write(baseURL, publicSlug)
}

// Write renders the image for publicSlug and replaces any existing file.
func (g *Generator) Write(baseURL, publicSlug string) error {
	if !slug.Valid(publicSlug) {
		return errors.Errorf("invalid slug %q", publicSlug)
	}
	png, err := g.PNG(URLFor(baseURL, publicSlug))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", g.dir)
	}

	// Write to a temp file and rename so readers never see a partial image.
	tmp, err := os.CreateTemp(g.dir, publicSlug+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write qr image")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to write qr image")
	}
	if err := os.Rename(tmp.Name(), g.Path(publicSlug)); err != nil {
		return errors.Wrap(err, "failed to store qr image")
	}

	g.log.WithField("slug", publicSlug).Debug("qr image written")
	return nil
}

// Remove deletes the image for publicSlug. A missing image is not an error.
func (g *Generator) Remove(publicSlug string) error {
	if !slug.Valid(publicSlug) {
		return errors.Errorf("invalid slug %q", publicSlug)
	}
	if err := os.Remove(g.Path(publicSlug)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove qr image for %s", publicSlug)
	}
	return nil
}
