package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxDownloadSize limits the size of a downloaded image.
const MaxDownloadSize = 64 << 20

// IsURL reports whether the source should be fetched over http.
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// DownloadImage retrieves the url and returns the response body.
func DownloadImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image URI %s: %w", url, err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to download image file from URI %s: %w", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to download image file from URI %s, status %v", url, res.Status)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read response body: %w", err)
	}
	if len(data) > MaxDownloadSize {
		return nil, fmt.Errorf("image at %s exceeds %d bytes", url, MaxDownloadSize)
	}
	return data, nil
}
