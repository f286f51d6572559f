// Package youtube adapts the YouTube Data API v3 as the publishing service
// for selected content: resumable video upload, playlist attachment,
// thumbnail set and channel lookup.
package youtube

import (
	"context"

	"github.com/rotopress/rotopress/model"
)

// Publisher is the publishing-service boundary the run orchestrator talks to.
type Publisher interface {
	// Upload publishes the local video file with the rotated metadata and
	// returns the platform identifiers of the new video.
	Upload(ctx context.Context, acct *model.Account, localPath string, meta model.Metadata) (model.RunResult, error)

	// SetThumbnail attaches a custom thumbnail to an uploaded video.
	SetThumbnail(ctx context.Context, acct *model.Account, videoID, thumbPath string) error

	// ChannelTitle returns the title of the channel the account's credential
	// is bound to.
	ChannelTitle(ctx context.Context, acct *model.Account) (string, error)
}
