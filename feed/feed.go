// Package feed fetches remote line-oriented content feeds and downloads
// media payloads to temporary files.
package feed

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const userAgent = "Mozilla/5.0 Rotopress/1.0"

// Client fetches remote feeds with separate timeouts for small line lists
// and large media downloads.
type Client struct {
	lines     *http.Client
	downloads *http.Client
}

// NewClient creates a feed client. fetchTimeout bounds line-feed requests,
// downloadTimeout bounds media downloads.
func NewClient(fetchTimeout, downloadTimeout time.Duration) *Client {
	return &Client{
		lines:     &http.Client{Timeout: fetchTimeout},
		downloads: &http.Client{Timeout: downloadTimeout},
	}
}

// Lines fetches a line-oriented feed from a URL. Lines are trimmed of
// surrounding whitespace and blank lines are dropped; everything else is kept
// verbatim, including lines starting with '#' (tag feeds rely on that).
func (c *Client) Lines(feedURL string) ([]string, error) {
	log.Debug().Str("url", feedURL).Msg("Fetching feed lines")

	req, err := http.NewRequest(http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.lines.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bad status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}

	log.Debug().Int("line_count", len(out)).Msg("Feed lines fetched")
	return out, nil
}

// Download fetches a URL and saves it to a temporary file with the given
// suffix. Returns the path to the downloaded file; the caller is responsible
// for removing it.
func (c *Client) Download(srcURL, suffix string) (string, error) {
	log.Info().Str("url", srcURL).Msg("Downloading file")

	req, err := http.NewRequest(http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.downloads.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status code: %d", resp.StatusCode)
	}

	out, err := os.CreateTemp("", "rotopress-*"+suffix)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to write to file: %w", err)
	}

	log.Info().Str("file", out.Name()).Msg("File downloaded successfully")
	return out.Name(), nil
}

// ResourceURL joins a base URL and a file name, percent-encoding the name as
// a single path segment. Names with spaces and parentheses survive static
// hosts this way.
func ResourceURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(name)
}
