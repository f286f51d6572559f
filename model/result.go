package model

// ScanEntry reports the resolution of a single candidate during a
// non-consuming scan of an account's sequence.
type ScanEntry struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Exists  bool   `json:"exists"`
	Used    bool   `json:"used"`
	IsForce bool   `json:"is_force"`
}

// RunResult is the payload persisted in the status message after a successful
// run.
type RunResult struct {
	VideoID  string `json:"video_id"`
	VideoURL string `json:"video_url"`
}

// Selection is a resolved content item: the logical candidate name that gets
// recorded in the used set, and the concrete URL the prober confirmed.
type Selection struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Metadata carries the rotated upload fields for one run.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}
