package rotation

import (
	"fmt"

	"github.com/rotopress/rotopress/feed"
	"github.com/rotopress/rotopress/model"
	"github.com/rotopress/rotopress/state"
	"github.com/rs/zerolog/log"
)

// Thumbnail resolves the account's thumbnail for this run and downloads it to
// a temporary file. Three mutually exclusive source modes are tried in fixed
// priority:
//
//  1. a single fixed thumbnail URL, consumed every run with no cursor;
//  2. a thumbnail manifest feed, rotating via the thumb_index cursor;
//  3. a numbered thumbnail base URL generating "thumb (N+1).jpg".
//
// The cursor-driven modes advance only after a successful download, so a
// missing file is retried on the next run instead of burning an index.
// Any failure yields ("", ""): a run never errors over its thumbnail.
func (e *Engine) Thumbnail(acct *model.Account) (string, string) {
	if acct.ThumbnailURL != "" {
		path, err := e.feeds.Download(acct.ThumbnailURL, ".jpg")
		if err != nil {
			log.Warn().Err(err).Str("account", acct.StatePrefix).Msg("Fixed thumbnail download failed")
			return "", ""
		}
		return acct.ThumbnailURL, path
	}

	if acct.ThumbnailListURL != "" {
		return e.thumbnailFromList(acct)
	}

	if acct.ThumbnailBaseURL != "" {
		return e.thumbnailNumbered(acct)
	}

	return "", ""
}

// thumbnailFromList rotates through a manifest of thumbnail URLs exactly like
// the title/description feeds.
func (e *Engine) thumbnailFromList(acct *model.Account) (string, string) {
	lines, err := e.feeds.Lines(acct.ThumbnailListURL)
	if err != nil || len(lines) == 0 {
		log.Warn().Err(err).Str("account", acct.StatePrefix).Msg("Thumbnail list unavailable")
		return "", ""
	}

	idx, err := e.store.LoadCursor(acct.StatePrefix, state.FieldThumbIndex)
	if err != nil {
		idx = 0
	}

	url := lines[idx%len(lines)]
	path, err := e.feeds.Download(url, ".jpg")
	if err != nil {
		log.Warn().Err(err).Str("account", acct.StatePrefix).Str("url", url).Msg("Thumbnail download failed")
		return "", ""
	}

	if err := e.store.SaveCursor(acct.StatePrefix, state.FieldThumbIndex, idx+1); err != nil {
		log.Warn().Err(err).Str("account", acct.StatePrefix).Msg("Failed to advance thumbnail cursor")
	}
	return url, path
}

// thumbnailNumbered generates "thumb (cursor+1).jpg" against the numbered
// base URL and advances the cursor by one on success.
func (e *Engine) thumbnailNumbered(acct *model.Account) (string, string) {
	idx, err := e.store.LoadCursor(acct.StatePrefix, state.FieldThumbIndex)
	if err != nil {
		idx = 0
	}

	name := fmt.Sprintf("thumb (%d).jpg", idx+1)
	url := feed.ResourceURL(acct.ThumbnailBaseURL, name)

	path, err := e.feeds.Download(url, ".jpg")
	if err != nil {
		log.Debug().Err(err).Str("account", acct.StatePrefix).Str("url", url).Msg("Numbered thumbnail not available")
		return "", ""
	}

	if err := e.store.SaveCursor(acct.StatePrefix, state.FieldThumbIndex, idx+1); err != nil {
		log.Warn().Err(err).Str("account", acct.StatePrefix).Msg("Failed to advance thumbnail cursor")
	}
	return url, path
}
