// Package selection picks the next unused, existing content item for an
// account, combining the candidate sequence, the remote existence probe, the
// used set and the one-shot force-next override.
package selection

import (
	"fmt"
	"path"
	"strings"

	"github.com/rotopress/rotopress/feed"
	"github.com/rotopress/rotopress/model"
	"github.com/rs/zerolog/log"
)

// Extensions is the fixed priority order for resolving a candidate name that
// carries no extension of its own.
var Extensions = []string{".mp4", ".mov", ".m4v", ".webm"}

// DefaultBaseName is the stem of generated candidate names.
const DefaultBaseName = "vid"

// hasVideoExtension reports whether a name ends in one of the accepted video
// extensions, case-insensitively.
func hasVideoExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Candidates produces the ordered candidate-name sequence for an account.
// A configured manifest is authoritative when it yields at least one valid
// name; manifest fetch failures and empty manifests fall back to the
// generated numeric sequence rather than erroring.
func (e *Engine) Candidates(acct *model.Account) []string {
	if names := e.manifestCandidates(acct); len(names) > 0 {
		return names
	}
	return generatedCandidates(acct)
}

// manifestCandidates fetches the manifest and keeps one name per non-blank
// line whose suffix is a known video extension. Returns nil when no manifest
// is configured or nothing usable came back.
func (e *Engine) manifestCandidates(acct *model.Account) []string {
	manifest := strings.TrimSpace(acct.ManifestURL)
	if manifest == "" {
		return nil
	}

	lines, err := e.feeds.Lines(manifest)
	if err != nil {
		log.Warn().Err(err).Str("account", acct.StatePrefix).Msg("Manifest fetch failed, falling back to generated sequence")
		return nil
	}

	var names []string
	for _, line := range lines {
		if hasVideoExtension(line) {
			names = append(names, line)
		}
	}
	return names
}

// generatedCandidates builds the numeric sequence "vid.mp4", "vid (1).mp4" ..
// "vid (max_index).mp4". The bare name is included for the auto and always
// policies and omitted for never. The canonical .mp4 extension is a
// placeholder; the prober resolves the real one later.
func generatedCandidates(acct *model.Account) []string {
	maxIndex := acct.EffectiveMaxIndex()

	names := make([]string, 0, maxIndex+1)
	if acct.EffectiveIncludePlain() != model.IncludePlainNever {
		names = append(names, DefaultBaseName+Extensions[0])
	}
	for i := 1; i <= maxIndex; i++ {
		names = append(names, fmt.Sprintf("%s (%d)%s", DefaultBaseName, i, Extensions[0]))
	}
	return names
}

// variants expands a candidate name into the concrete file names to probe.
// A name carrying a known video extension is tried literally first, then with
// the remaining extensions in priority order, so a generated "vid (7).mp4"
// still finds a host that only has "vid (7).mov". A name without an extension
// tries every accepted extension; any other extension is taken literally.
func variants(name string) []string {
	ext := path.Ext(name)
	switch {
	case ext == "":
		out := make([]string, 0, len(Extensions))
		for _, e := range Extensions {
			out = append(out, name+e)
		}
		return out
	case hasVideoExtension(name):
		stem := strings.TrimSuffix(name, ext)
		out := []string{name}
		for _, e := range Extensions {
			if strings.EqualFold(e, ext) {
				continue
			}
			out = append(out, stem+e)
		}
		return out
	default:
		return []string{name}
	}
}

// resolveURL probes the extension variants of a candidate name against the
// account's video base URL and returns the first URL that exists.
func (e *Engine) resolveURL(acct *model.Account, name string) (string, bool) {
	for _, variant := range variants(name) {
		url := feed.ResourceURL(acct.VideoBaseURL, variant)
		if e.prober.Exists(url) {
			return url, true
		}
		log.Debug().Str("account", acct.StatePrefix).Str("candidate", variant).Msg("Candidate does not exist")
	}
	return "", false
}
