// Package media turns base64 image uploads into stored references. With a
// bucket configured images are uploaded in parallel; without one they stay inline
// as data URIs.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

const (
	DefaultMaxImageBytes = 5 << 20
	DefaultEncodeTimeout = 30 * time.Second
	defaultParallelism   = 4
)

// Store is the blob backend. platform/gcp.ImageBucket satisfies it.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type Config struct {
	MaxImageBytes int64
	EncodeTimeout time.Duration
	Parallelism   int
}

// Upload is one submitted image. Raw is base64, optionally as a data URI.
type Upload struct {
	Name string
	Raw  string
}

// Stored is the outcome for one Upload. Ref is always set: an object URL, or the
// data URI when the image is kept inline.
type Stored struct {
	Name        string
	Ref         string
	Inline      bool
	Data        string
	ContentType string
}

type Processor struct {
	log   *logger.Logger
	store Store
	cfg   Config
}

// NewProcessor accepts a nil store, which keeps every image inline.
func NewProcessor(log *logger.Logger, store Store, cfg Config) *Processor {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	if cfg.EncodeTimeout <= 0 {
		cfg.EncodeTimeout = DefaultEncodeTimeout
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Processor{log: log.With("service", "MediaProcessor"), store: store, cfg: cfg}
}

func (p *Processor) Inline() bool { return p.store == nil }

// Process decodes and stores uploads under prefix. Results keep input order.
// Any failure fails the whole batch, so callers run it before opening a write.
func (p *Processor) Process(ctx context.Context, prefix string, uploads []Upload) ([]Stored, error) {
	out := make([]Stored, len(uploads))
	if len(uploads) == 0 {
		return out, nil
	}
	decoded := make([][]byte, len(uploads))
	for i, u := range uploads {
		data, ct, err := p.Decode(u.Raw)
		if err != nil {
			return nil, withName(u.Name, err)
		}
		decoded[i] = data
		out[i] = Stored{Name: u.Name, ContentType: ct}
	}

	if p.store == nil {
		for i := range out {
			out[i].Inline = true
			out[i].Data = base64.StdEncoding.EncodeToString(decoded[i])
			out[i].Ref = "data:" + out[i].ContentType + ";base64," + out[i].Data
		}
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.EncodeTimeout)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Parallelism)
	for i := range uploads {
		i := i
		g.Go(func() error {
			key := objectKey(prefix, uploads[i].Name, i, out[i].ContentType)
			ref, err := p.store.Put(gctx, key, out[i].ContentType, decoded[i])
			if err != nil {
				return fmt.Errorf("store %s: %w", uploads[i].Name, err)
			}
			out[i].Ref = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			p.log.Warn("Image upload timed out", "prefix", prefix, "count", len(uploads), "timeout", p.cfg.EncodeTimeout)
		} else {
			p.log.Error("Image upload failed", "prefix", prefix, "error", err)
		}
		return nil, apierr.Internal(err)
	}
	return out, nil
}

// Decode validates one base64 image and returns its bytes and content type.
func (p *Processor) Decode(raw string) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, "", apierr.Validation("image is empty")
	}
	declared := ""
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 || !strings.HasSuffix(raw[:comma], ";base64") {
			return nil, "", apierr.Validation("image data URI must be base64")
		}
		declared = strings.TrimSuffix(strings.TrimPrefix(raw[:comma], "data:"), ";base64")
		raw = raw[comma+1:]
	}
	// cheap bound before decoding: 4 base64 chars carry 3 bytes
	if int64(len(raw))/4*3 > p.cfg.MaxImageBytes+3 {
		return nil, "", apierr.PayloadTooLarge(fmt.Sprintf("image exceeds %d bytes", p.cfg.MaxImageBytes))
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(raw); err != nil {
			return nil, "", apierr.Validation("image is not valid base64")
		}
	}
	if int64(len(data)) > p.cfg.MaxImageBytes {
		return nil, "", apierr.PayloadTooLarge(fmt.Sprintf("image exceeds %d bytes", p.cfg.MaxImageBytes))
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		if strings.HasPrefix(declared, "image/") {
			ct = declared
		} else {
			return nil, "", apierr.Validation("upload is not an image")
		}
	}
	return data, ct, nil
}

func objectKey(prefix, name string, idx int, contentType string) string {
	name = strings.NewReplacer("/", "_", " ", "_", "..", "_").Replace(strings.TrimSpace(name))
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("%s/%s-%d%s", strings.TrimRight(prefix, "/"), name, idx, extFor(contentType))
}

func extFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}

func withName(name string, err error) error {
	var ae *apierr.Error
	if errors.As(err, &ae) && name != "" {
		return apierr.New(ae.Status, ae.Code, fmt.Errorf("%s: %w", name, ae.Err))
	}
	return err
}
