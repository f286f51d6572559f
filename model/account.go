// Package model defines the shared domain types for rotopress: publishing
// accounts, run state, and the results exposed by the selection operations.
package model

import "strings"

// Include-plain policies control whether the bare "vid.mp4" candidate is part
// of the generated sequence.
const (
	IncludePlainAuto   = "auto"
	IncludePlainAlways = "always"
	IncludePlainNever  = "never"
)

// DefaultMaxIndex bounds the generated "vid (i).mp4" sequence when the account
// does not configure its own limit.
const DefaultMaxIndex = 2000

// Account describes one publishing account: where its content comes from, how
// uploads are parameterized, and where its credential material lives. Accounts
// are owned by the configuration store; the engine treats a loaded Account as
// an immutable input for the duration of a run.
type Account struct {
	Name        string `json:"name" validate:"required"`
	StatePrefix string `json:"state_prefix" validate:"required"`
	Type        string `json:"type,omitempty"`

	// Content sources.
	VideoBaseURL     string `json:"video_base_url" validate:"required,url"`
	ManifestURL      string `json:"manifest_url,omitempty" validate:"omitempty,url"`
	TitleURL         string `json:"title_url,omitempty" validate:"omitempty,url"`
	DescriptionURL   string `json:"description_url,omitempty" validate:"omitempty,url"`
	TagsURL          string `json:"tags_url,omitempty" validate:"omitempty,url"`
	ThumbnailURL     string `json:"thumbnail_url,omitempty" validate:"omitempty,url"`
	ThumbnailListURL string `json:"thumbnail_list_url,omitempty" validate:"omitempty,url"`
	ThumbnailBaseURL string `json:"thumbnail_base_url,omitempty" validate:"omitempty,url"`

	// Rotation bounds.
	MaxIndex        int    `json:"max_index,omitempty" validate:"omitempty,min=1"`
	IncludePlainVid string `json:"include_plain_vid,omitempty" validate:"omitempty,oneof=auto always never"`

	// Credential material.
	ClientSecretsFile string `json:"client_secrets_file" validate:"required"`
	TokenFile         string `json:"token_file,omitempty"`

	// Publishing defaults.
	PrivacyStatus     string `json:"privacy_status,omitempty" validate:"omitempty,oneof=private unlisted public"`
	CategoryID        string `json:"category_id,omitempty"`
	MadeForKids       bool   `json:"made_for_kids,omitempty"`
	SelfDeclaredMFK   bool   `json:"self_declared_mfk,omitempty"`
	DefaultLanguage   string `json:"default_language,omitempty"`
	PlaylistID        string `json:"playlist_id,omitempty"`
	SchedulePublishAt string `json:"schedule_publish_at,omitempty"`
	EnableComments    bool   `json:"enable_comments,omitempty"`
	SlidesPerPost     int    `json:"slides_per_post,omitempty"`
}

// EffectiveMaxIndex returns the configured sequence bound, falling back to
// DefaultMaxIndex when unset.
func (a *Account) EffectiveMaxIndex() int {
	if a.MaxIndex <= 0 {
		return DefaultMaxIndex
	}
	return a.MaxIndex
}

// EffectiveIncludePlain normalizes the include-plain policy, defaulting to
// IncludePlainAuto for unset or unknown values.
func (a *Account) EffectiveIncludePlain() string {
	switch strings.ToLower(strings.TrimSpace(a.IncludePlainVid)) {
	case IncludePlainNever:
		return IncludePlainNever
	case IncludePlainAlways:
		return IncludePlainAlways
	default:
		return IncludePlainAuto
	}
}

// EffectivePrivacy returns the configured privacy status, defaulting to
// "private".
func (a *Account) EffectivePrivacy() string {
	if a.PrivacyStatus == "" {
		return "private"
	}
	return a.PrivacyStatus
}

// EffectiveCategory returns the configured category ID, defaulting to "22"
// (People & Blogs).
func (a *Account) EffectiveCategory() string {
	if a.CategoryID == "" {
		return "22"
	}
	return a.CategoryID
}
