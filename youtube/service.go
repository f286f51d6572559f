package youtube

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rotopress/rotopress/auth"
	"github.com/rotopress/rotopress/model"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

const uploadChunkSize = 8 * 1024 * 1024

// Service is the YouTube Data API implementation of Publisher.
type Service struct {
	auth *auth.Manager
}

// NewService creates a YouTube publisher backed by the credential manager.
func NewService(authManager *auth.Manager) *Service {
	return &Service{auth: authManager}
}

// api builds a per-call YouTube service bound to the account's credential.
func (s *Service) api(ctx context.Context, acct *model.Account) (*ytapi.Service, error) {
	cred := s.auth.Credentials(ctx, acct)
	if cred == nil {
		return nil, fmt.Errorf("no credentials for account %s", acct.StatePrefix)
	}

	conf, err := s.auth.OAuthConfig(acct, "")
	if err != nil {
		return nil, err
	}

	src := conf.TokenSource(ctx, cred.OAuthToken())
	service, err := ytapi.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return service, nil
}

// BuildVideo assembles the videos.insert request body from the account's
// publishing defaults and the rotated metadata. Scheduling a publish time on
// a non-private, non-unlisted upload forces the privacy back to private, and
// madeForKids is only sent when true.
func BuildVideo(acct *model.Account, meta model.Metadata) *ytapi.Video {
	video := &ytapi.Video{
		Snippet: &ytapi.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			CategoryId:  acct.EffectiveCategory(),
			Tags:        meta.Tags,
		},
		Status: &ytapi.VideoStatus{
			PrivacyStatus:           acct.EffectivePrivacy(),
			SelfDeclaredMadeForKids: acct.SelfDeclaredMFK,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	if acct.DefaultLanguage != "" {
		video.Snippet.DefaultLanguage = acct.DefaultLanguage
	}

	if acct.MadeForKids {
		video.Status.MadeForKids = true
	}

	if publishAt := strings.TrimSpace(acct.SchedulePublishAt); publishAt != "" {
		video.Status.PublishAt = publishAt
		if video.Status.PrivacyStatus != "private" && video.Status.PrivacyStatus != "unlisted" {
			video.Status.PrivacyStatus = "private"
		}
	}

	return video
}

// Upload performs the resumable video upload and, when the account has a
// playlist configured, attaches the new video to it. Playlist failures are
// swallowed; the upload already succeeded.
func (s *Service) Upload(ctx context.Context, acct *model.Account, localPath string, meta model.Metadata) (model.RunResult, error) {
	service, err := s.api(ctx, acct)
	if err != nil {
		return model.RunResult{}, err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return model.RunResult{}, fmt.Errorf("failed to open video file: %w", err)
	}
	defer f.Close()

	log.Info().Str("account", acct.StatePrefix).Str("title", meta.Title).Msg("Uploading video")

	call := service.Videos.Insert([]string{"snippet", "status"}, BuildVideo(acct, meta)).
		Media(f, googleapi.ChunkSize(uploadChunkSize), googleapi.ContentType("video/*")).
		Context(ctx)

	resp, err := call.Do()
	if err != nil {
		return model.RunResult{}, fmt.Errorf("YouTube upload error: %w", err)
	}

	result := model.RunResult{
		VideoID:  resp.Id,
		VideoURL: fmt.Sprintf("https://www.youtube.com/watch?v=%s", resp.Id),
	}

	if playlistID := strings.TrimSpace(acct.PlaylistID); playlistID != "" {
		if err := s.addToPlaylist(ctx, service, playlistID, resp.Id); err != nil {
			log.Warn().Err(err).Str("account", acct.StatePrefix).Str("playlist", playlistID).Msg("Failed to add video to playlist")
		}
	}

	log.Info().Str("account", acct.StatePrefix).Str("video_id", result.VideoID).Msg("Video uploaded successfully")
	return result, nil
}

func (s *Service) addToPlaylist(ctx context.Context, service *ytapi.Service, playlistID, videoID string) error {
	item := &ytapi.PlaylistItem{
		Snippet: &ytapi.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &ytapi.ResourceId{
				Kind:    "youtube#video",
				VideoId: videoID,
			},
		},
	}

	_, err := service.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("playlist insert failed: %w", err)
	}
	return nil
}

// SetThumbnail uploads a custom thumbnail for a video.
func (s *Service) SetThumbnail(ctx context.Context, acct *model.Account, videoID, thumbPath string) error {
	service, err := s.api(ctx, acct)
	if err != nil {
		return err
	}

	f, err := os.Open(thumbPath)
	if err != nil {
		return fmt.Errorf("failed to open thumbnail file: %w", err)
	}
	defer f.Close()

	_, err = service.Thumbnails.Set(videoID).
		Media(f, googleapi.ContentType("image/jpeg")).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("thumbnail set failed: %w", err)
	}

	log.Info().Str("account", acct.StatePrefix).Str("video_id", videoID).Msg("Thumbnail set")
	return nil
}

// ChannelTitle looks up the title of the authorized account's own channel.
func (s *Service) ChannelTitle(ctx context.Context, acct *model.Account) (string, error) {
	service, err := s.api(ctx, acct)
	if err != nil {
		return "", err
	}

	resp, err := service.Channels.List([]string{"snippet"}).Mine(true).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get channel from YouTube API: %w", err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("no channel found for account %s", acct.StatePrefix)
	}
	return resp.Items[0].Snippet.Title, nil
}
