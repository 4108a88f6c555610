package data

// ContentType identifies what kind of node a piece of content is.
type ContentType string

const (
	TypeCollection ContentType = "collection"
	TypeEpisode    ContentType = "episode"
	TypeScreencast ContentType = "screencast"
)

// Downloadable reports whether rows of this type may be handed to the
// transfer engine. Collection rows are aggregate anchors only.
func (t ContentType) Downloadable() bool {
	return t == TypeEpisode || t == TypeScreencast
}

// Content is the tree returned by the content repository for a single id.
// A collection carries groups of episodes; a screencast is a leaf and has
// no groups.
type Content struct {
	ID      string      `json:"id"`
	Type    ContentType `json:"contentType"`
	Name    string      `json:"name"`
	VideoID string      `json:"videoId"`
	Groups  []Group     `json:"groups,omitempty"`
}

type Group struct {
	Name     string    `json:"name"`
	Episodes []Episode `json:"episodes"`
}

type Episode struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	VideoID string `json:"videoId"`
}

// Episodes flattens the group tree in document order.
func (c *Content) Episodes() []Episode {
	var out []Episode
	for _, g := range c.Groups {
		out = append(out, g.Episodes...)
	}
	return out
}

// Episode returns the episode with the given id, if present.
func (c *Content) Episode(id string) (Episode, bool) {
	for _, g := range c.Groups {
		for _, e := range g.Episodes {
			if e.ID == id {
				return e, true
			}
		}
	}
	return Episode{}, false
}

// DownloadRequest is the ephemeral input to the orchestrator. EpisodeID
// present means single-episode scope; absent means the whole collection or
// the screencast itself.
type DownloadRequest struct {
	ContentID string `json:"contentId"`
	EpisodeID string `json:"episodeId,omitempty"`
	WifiOnly  bool   `json:"wifiOnly,omitempty"`
}

// DownloadID is the row key the request resolves to.
func (r DownloadRequest) DownloadID() string {
	if r.EpisodeID != "" {
		return r.EpisodeID
	}
	return r.ContentID
}
