package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/user/product-harvester/pkg/utils"
)

var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

type Options struct {
	Dir         string
	Timeout     time.Duration
	MaxBytes    int64
	Concurrency int
	UserAgent   string
}

// Store caches product images on local disk under content-addressed names.
type Store struct {
	opts       Options
	httpClient *http.Client
	logger     *zap.Logger
}

func New(opts Options, logger *zap.Logger) (*Store, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 10 << 20
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}
	return &Store{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}, nil
}

// Fetch downloads the first maxCount URLs and returns the paths of those
// that decoded as images, in input order.
func (s *Store) Fetch(ctx context.Context, urls []string, maxCount int) []string {
	if maxCount <= 0 || len(urls) == 0 {
		return nil
	}
	if len(urls) > maxCount {
		urls = urls[:maxCount]
	}

	paths := make([]string, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, u := range urls {
		g.Go(func() error {
			p, err := s.fetchOne(gctx, u)
			if err != nil {
				s.logger.Warn("image dropped", zap.String("url", u), zap.Error(err))
				return nil
			}
			paths[i] = p
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) fetchOne(ctx context.Context, rawURL string) (string, error) {
	dest := filepath.Join(s.opts.Dir, FileName(rawURL))
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return dest, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if s.opts.UserAgent != "" {
		req.Header.Set("User-Agent", s.opts.UserAgent)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.opts.MaxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > s.opts.MaxBytes {
		return "", fmt.Errorf("larger than %d bytes", s.opts.MaxBytes)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("not a valid image: %w", err)
	}

	tmp, err := os.CreateTemp(s.opts.Dir, ".download-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return dest, nil
}

// FileName is the MD5 of the URL plus its extension, or ".jpg" when the
// extension is missing or not an image type.
func FileName(rawURL string) string {
	ext := ".jpg"
	if u, err := url.Parse(rawURL); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); allowedExtensions[e] {
			ext = e
		}
	}
	return utils.ShortHash(rawURL) + ext
}
