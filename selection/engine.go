package selection

import (
	"errors"
	"fmt"

	"github.com/rotopress/rotopress/model"
	"github.com/rotopress/rotopress/state"
	"github.com/rs/zerolog/log"
)

// ErrExhausted reports that every candidate in the account's sequence is
// either already used or absent from the host.
var ErrExhausted = errors.New("no unused videos found")

// LineFetcher is the slice of the feed client the engine needs.
type LineFetcher interface {
	Lines(url string) ([]string, error)
}

// ExistenceProber answers whether a resource URL resolves to content.
type ExistenceProber interface {
	Exists(url string) bool
}

// Engine selects the next content item for an account.
type Engine struct {
	feeds  LineFetcher
	prober ExistenceProber
	store  *state.Store
}

// NewEngine wires a selection engine from its collaborators.
func NewEngine(feeds LineFetcher, prober ExistenceProber, store *state.Store) *Engine {
	return &Engine{feeds: feeds, prober: prober, store: store}
}

// Next returns the next unused existing content item and marks it consumed.
// A pending force-next override wins when its target exists and is unused;
// the override is cleared only after such a hit. The logical candidate name,
// not the resolved file name, is what enters the used set.
func (e *Engine) Next(acct *model.Account) (model.Selection, error) {
	used, err := e.store.UsedSet(acct.StatePrefix)
	if err != nil {
		return model.Selection{}, fmt.Errorf("failed to load used set: %w", err)
	}

	if sel, ok := e.tryForced(acct, used); ok {
		if err := e.store.MarkUsed(acct.StatePrefix, sel.Name); err != nil {
			return model.Selection{}, fmt.Errorf("failed to mark forced video used: %w", err)
		}
		if err := e.store.ClearForce(acct.StatePrefix); err != nil {
			log.Warn().Err(err).Str("account", acct.StatePrefix).Msg("Failed to clear force-next override")
		}
		log.Info().Str("account", acct.StatePrefix).Str("name", sel.Name).Msg("Forced video selected")
		return sel, nil
	}

	for _, name := range e.Candidates(acct) {
		if used[name] {
			continue
		}
		if url, ok := e.resolveURL(acct, name); ok {
			if err := e.store.MarkUsed(acct.StatePrefix, name); err != nil {
				return model.Selection{}, fmt.Errorf("failed to mark video used: %w", err)
			}
			log.Info().Str("account", acct.StatePrefix).Str("name", name).Str("url", url).Msg("Video selected")
			return model.Selection{Name: name, URL: url}, nil
		}
	}

	return model.Selection{}, ErrExhausted
}

// Peek performs the same resolution as Next without consuming anything: the
// used set and the force-next override are left untouched.
func (e *Engine) Peek(acct *model.Account) (model.Selection, bool, error) {
	used, err := e.store.UsedSet(acct.StatePrefix)
	if err != nil {
		return model.Selection{}, false, fmt.Errorf("failed to load used set: %w", err)
	}

	if sel, ok := e.tryForced(acct, used); ok {
		return sel, true, nil
	}

	for _, name := range e.Candidates(acct) {
		if used[name] {
			continue
		}
		if url, ok := e.resolveURL(acct, name); ok {
			return model.Selection{Name: name, URL: url}, true, nil
		}
	}

	return model.Selection{}, false, nil
}

// tryForced resolves a pending override. It reports a hit only when an
// override is set, its target is unused, and some extension variant exists on
// the host; a missing target falls through to normal selection with the
// override left in place.
func (e *Engine) tryForced(acct *model.Account, used map[string]bool) (model.Selection, bool) {
	forced, err := e.store.LoadForce(acct.StatePrefix)
	if err != nil {
		log.Warn().Err(err).Str("account", acct.StatePrefix).Msg("Failed to load force-next override")
		return model.Selection{}, false
	}
	if forced == "" || used[forced] {
		return model.Selection{}, false
	}

	if url, ok := e.resolveURL(acct, forced); ok {
		return model.Selection{Name: forced, URL: url}, true
	}

	log.Debug().Str("account", acct.StatePrefix).Str("name", forced).Msg("Forced video not found on host, falling through")
	return model.Selection{}, false
}

// Scan resolves up to limit sequence entries without consuming anything, for
// operator inspection. A pending override is listed first. Used entries are
// skipped unless includeUsed is set.
func (e *Engine) Scan(acct *model.Account, limit int, includeUsed bool) ([]model.ScanEntry, error) {
	used, err := e.store.UsedSet(acct.StatePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to load used set: %w", err)
	}
	forced, err := e.store.LoadForce(acct.StatePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to load force-next override: %w", err)
	}

	var entries []model.ScanEntry
	seen := make(map[string]bool)

	add := func(name string) {
		if len(entries) >= limit || seen[name] {
			return
		}
		if used[name] && !includeUsed {
			return
		}
		seen[name] = true
		entry := model.ScanEntry{
			Name:    name,
			Used:    used[name],
			IsForce: name == forced,
		}
		if url, ok := e.resolveURL(acct, name); ok {
			entry.URL = url
			entry.Exists = true
		}
		entries = append(entries, entry)
	}

	if forced != "" {
		add(forced)
	}
	for _, name := range e.Candidates(acct) {
		if len(entries) >= limit {
			break
		}
		add(name)
	}
	return entries, nil
}
