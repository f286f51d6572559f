// Package runner drives a complete publish run for an account: single-flight
// admission, content selection, metadata rotation, upload and run-state
// bookkeeping.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/rotopress/rotopress/auth"
	"github.com/rotopress/rotopress/common"
	"github.com/rotopress/rotopress/model"
	"github.com/rotopress/rotopress/rotation"
	"github.com/rotopress/rotopress/selection"
	"github.com/rotopress/rotopress/state"
	"github.com/rotopress/rotopress/youtube"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrAlreadyRunning reports that the account's run guard is held.
var ErrAlreadyRunning = errors.New("run already in progress")

// ErrUnauthorized reports that the account holds no valid credential.
var ErrUnauthorized = errors.New("account is not authorized")

// Downloader fetches a remote resource into a temporary local file.
type Downloader interface {
	Download(url, suffix string) (string, error)
}

// Orchestrator owns the run state machine: never → running → success|error.
type Orchestrator struct {
	selection *selection.Engine
	rotation  *rotation.Engine
	store     *state.Store
	auth      *auth.Manager
	publisher youtube.Publisher
	downloads Downloader
	guard     *Guard
}

// NewOrchestrator wires a run orchestrator from its collaborators.
func NewOrchestrator(
	sel *selection.Engine,
	rot *rotation.Engine,
	store *state.Store,
	authManager *auth.Manager,
	publisher youtube.Publisher,
	downloads Downloader,
) *Orchestrator {
	return &Orchestrator{
		selection: sel,
		rotation:  rot,
		store:     store,
		auth:      authManager,
		publisher: publisher,
		downloads: downloads,
		guard:     NewGuard(),
	}
}

// Guard exposes the orchestrator's single-flight guard for status surfaces.
func (o *Orchestrator) Guard() *Guard {
	return o.guard
}

// Start admits a run and executes it in the background. Admission is
// synchronous: a held guard rejects with ErrAlreadyRunning before any state
// is touched, and a missing credential rejects with ErrUnauthorized. The
// guard is released on every exit path of the background run.
func (o *Orchestrator) Start(ctx context.Context, acct model.Account) error {
	if !o.guard.TryAcquire(acct.StatePrefix) {
		return ErrAlreadyRunning
	}

	if !o.auth.Authorized(ctx, &acct) {
		o.guard.Release(acct.StatePrefix)
		return ErrUnauthorized
	}

	if err := o.store.SaveStatus(acct.StatePrefix, model.StatusRunning, ""); err != nil {
		o.guard.Release(acct.StatePrefix)
		return err
	}

	go func() {
		defer o.guard.Release(acct.StatePrefix)
		o.execute(context.WithoutCancel(ctx), &acct)
	}()

	return nil
}

// Run executes a publish run synchronously, for the CLI batch mode. The same
// admission rules apply.
func (o *Orchestrator) Run(ctx context.Context, acct model.Account) error {
	if !o.guard.TryAcquire(acct.StatePrefix) {
		return ErrAlreadyRunning
	}
	defer o.guard.Release(acct.StatePrefix)

	if !o.auth.Authorized(ctx, &acct) {
		return ErrUnauthorized
	}

	if err := o.store.SaveStatus(acct.StatePrefix, model.StatusRunning, ""); err != nil {
		return err
	}
	return o.execute(ctx, &acct)
}

// execute carries the run from selection to terminal status. Every failure
// lands in a persisted error status; the returned error mirrors it for
// synchronous callers.
func (o *Orchestrator) execute(ctx context.Context, acct *model.Account) error {
	runID := common.GenerateRunID()
	logger := log.With().Str("account", acct.StatePrefix).Str("run_id", runID).Logger()
	logger.Info().Msg("Run started")

	result, err := o.publish(ctx, acct, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Run failed")
		if serr := o.store.SaveStatus(acct.StatePrefix, model.StatusError, err.Error()); serr != nil {
			logger.Error().Err(serr).Msg("Failed to persist error status")
		}
		return err
	}

	payload, merr := json.Marshal(result)
	if merr != nil {
		payload = []byte(fmt.Sprintf(`{"video_id":%q}`, result.VideoID))
	}
	if serr := o.store.SaveStatus(acct.StatePrefix, model.StatusSuccess, string(payload)); serr != nil {
		logger.Error().Err(serr).Msg("Failed to persist success status")
	}

	logger.Info().Str("video_id", result.VideoID).Msg("Run finished")
	return nil
}

// publish performs the content half of the run: select, download, rotate
// metadata, upload, best-effort thumbnail.
func (o *Orchestrator) publish(ctx context.Context, acct *model.Account, logger zerolog.Logger) (model.RunResult, error) {
	sel, err := o.selection.Next(acct)
	if err != nil {
		if errors.Is(err, selection.ErrExhausted) {
			return model.RunResult{}, fmt.Errorf("no videos left: %w", err)
		}
		return model.RunResult{}, err
	}

	suffix := path.Ext(sel.Name)
	if suffix == "" {
		suffix = ".mp4"
	}
	localVideo, err := o.downloads.Download(sel.URL, suffix)
	if err != nil {
		return model.RunResult{}, fmt.Errorf("video download failed: %w", err)
	}
	defer os.Remove(localVideo)

	meta := o.rotation.Metadata(acct)

	result, err := o.publisher.Upload(ctx, acct, localVideo, meta)
	if err != nil {
		return model.RunResult{}, err
	}

	// Thumbnail failures never downgrade a successful upload.
	if thumbURL, thumbPath := o.rotation.Thumbnail(acct); thumbPath != "" {
		defer os.Remove(thumbPath)
		if err := o.publisher.SetThumbnail(ctx, acct, result.VideoID, thumbPath); err != nil {
			logger.Warn().Err(err).Str("thumbnail", thumbURL).Msg("Thumbnail set failed")
		}
	}

	return result, nil
}
