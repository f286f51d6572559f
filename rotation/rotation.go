// Package rotation advances per-account round-robin cursors over remote
// metadata feeds: title, description, tags and thumbnail.
package rotation

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotopress/rotopress/model"
	"github.com/rotopress/rotopress/state"
	"github.com/rs/zerolog/log"
)

// MaxTags caps the number of tags taken from a single feed line.
const MaxTags = 500

// Fetcher covers the feed-client operations the rotation engine needs.
type Fetcher interface {
	Lines(url string) ([]string, error)
	Download(url, suffix string) (string, error)
}

// Engine produces the next metadata value per field, advancing the matching
// cursor by one on every consumption. The cursor wraps modulo the live feed
// length, so feeds may grow or shrink between runs.
type Engine struct {
	feeds Fetcher
	store *state.Store
}

// NewEngine wires a rotation engine from its collaborators.
func NewEngine(feeds Fetcher, store *state.Store) *Engine {
	return &Engine{feeds: feeds, store: store}
}

// nextLine fetches the feed and returns the line at the current cursor,
// persisting cursor+1. Returns ok=false when the feed is unreachable or
// empty; the cursor is left untouched in that case.
func (e *Engine) nextLine(prefix, key, feedURL string) (string, bool) {
	lines, err := e.feeds.Lines(feedURL)
	if err != nil || len(lines) == 0 {
		log.Warn().Err(err).Str("account", prefix).Str("field", key).Msg("Feed unavailable, using field default")
		return "", false
	}

	idx, err := e.store.LoadCursor(prefix, key)
	if err != nil {
		log.Warn().Err(err).Str("account", prefix).Str("field", key).Msg("Failed to load cursor, starting from 0")
		idx = 0
	}

	value := lines[idx%len(lines)]
	if err := e.store.SaveCursor(prefix, key, idx+1); err != nil {
		log.Warn().Err(err).Str("account", prefix).Str("field", key).Msg("Failed to advance cursor")
	}
	return value, true
}

// NextTitle returns the next title line. Without a configured feed (or when
// the feed is unavailable) a timestamped placeholder is returned and the
// cursor is not touched.
func (e *Engine) NextTitle(acct *model.Account) string {
	if acct.TitleURL == "" {
		return defaultTitle()
	}
	if title, ok := e.nextLine(acct.StatePrefix, state.FieldTitle, acct.TitleURL); ok {
		return title
	}
	return defaultTitle()
}

func defaultTitle() string {
	return fmt.Sprintf("Untitled %s", time.Now().UTC().Format("2006-01-02 15:04:05"))
}

// NextDescription returns the next description line, or empty without a feed.
func (e *Engine) NextDescription(acct *model.Account) string {
	if acct.DescriptionURL == "" {
		return ""
	}
	desc, _ := e.nextLine(acct.StatePrefix, state.FieldDescription, acct.DescriptionURL)
	return desc
}

// NextTags returns the next tags line tokenized, or nil without a feed.
func (e *Engine) NextTags(acct *model.Account) []string {
	if acct.TagsURL == "" {
		return nil
	}
	line, ok := e.nextLine(acct.StatePrefix, state.FieldTags, acct.TagsURL)
	if !ok {
		return nil
	}
	return ParseTags(line)
}

// ParseTags splits a feed line on commas and whitespace, strips a leading '#'
// per token, drops empties and caps the result at MaxTags.
func ParseTags(line string) []string {
	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	var tags []string
	for _, f := range fields {
		tag := strings.TrimPrefix(strings.TrimSpace(f), "#")
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) >= MaxTags {
			break
		}
	}
	return tags
}

// Metadata composes the full rotated upload metadata for one run.
func (e *Engine) Metadata(acct *model.Account) model.Metadata {
	return model.Metadata{
		Title:       e.NextTitle(acct),
		Description: e.NextDescription(acct),
		Tags:        e.NextTags(acct),
	}
}
