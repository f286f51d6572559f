// Package probe implements lightweight remote-resource existence checks.
package probe

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Result classifies the outcome of an existence check. ProbeError covers any
// network-level failure (timeout, DNS, refused connection, TLS); callers that
// only care about usability collapse it into non-existence.
type Result int

const (
	Exists Result = iota
	NotExists
	ProbeError
)

func (r Result) String() string {
	switch r {
	case Exists:
		return "exists"
	case NotExists:
		return "not_exists"
	default:
		return "probe_error"
	}
}

// Prober checks whether remote resources resolve to content. It issues a HEAD
// request first and falls back to GET when the host rejects HEAD with 405,
// discarding the body immediately.
type Prober struct {
	client *http.Client
}

// New creates a Prober whose individual checks are bound by timeout.
func New(timeout time.Duration) *Prober {
	return &Prober{
		client: &http.Client{Timeout: timeout},
	}
}

// Check reports whether the resource at url exists. Status codes below 400
// count as existence; 405 on HEAD triggers the GET fallback.
func (p *Prober) Check(url string) Result {
	resp, err := p.client.Head(url)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("Probe HEAD failed")
		return ProbeError
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		return p.checkGet(url)
	}

	if resp.StatusCode < 400 {
		return Exists
	}
	return NotExists
}

// checkGet performs the full-request fallback for hosts that disallow HEAD.
// The body is closed without being read; only the status code matters.
func (p *Prober) checkGet(url string) Result {
	resp, err := p.client.Get(url)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("Probe GET fallback failed")
		return ProbeError
	}
	resp.Body.Close()

	if resp.StatusCode < 400 {
		return Exists
	}
	return NotExists
}

// Exists collapses Check into a boolean, folding probe errors into
// non-existence. Selection deliberately cannot distinguish "absent" from
// "unreachable".
func (p *Prober) Exists(url string) bool {
	return p.Check(url) == Exists
}
