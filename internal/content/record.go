package content

import (
	"github.com/airwaves-fm/stationsearch/internal/domain"
)

// Record is one raw object from the content repository. The concrete type
// determines how it is normalized.
type Record interface {
	ContentType() domain.ContentType
	Base() *Object
}

// Asset is an uploaded media file
type Asset struct {
	URL      string `json:"url"`
	ImgixURL string `json:"imgix_url"`
}

// Best returns the preferred delivery URL for the asset
func (a *Asset) Best() string {
	if a == nil {
		return ""
	}
	if a.ImgixURL != "" {
		return a.ImgixURL
	}
	return a.URL
}

// Related is a linked object (genre, location, host, takeover) embedded in a record
type Related struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// Object carries the fields every content repository object shares
type Object struct {
	ID          string         `json:"id"`
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	Type        string         `json:"type"`
	CreatedAt   string         `json:"created_at"`
	PublishedAt string         `json:"published_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Media groups the image fields a record may expose
type Media struct {
	ExternalImageURL string `json:"external_image_url"`
	Image            *Asset `json:"image"`
	Thumbnail        *Asset `json:"thumbnail"`
}

// EpisodeRecord is a broadcast episode
type EpisodeRecord struct {
	Object
	Media
	BroadcastDate string    `json:"broadcast_date"`
	Description   string    `json:"description"`
	Subtitle      string    `json:"subtitle"`
	Genres        []Related `json:"genres"`
	Locations     []Related `json:"locations"`
	Hosts         []Related `json:"regular_hosts"`
	Takeovers     []Related `json:"takeovers"`
}

func (r *EpisodeRecord) ContentType() domain.ContentType { return domain.ContentTypeEpisodes }
func (r *EpisodeRecord) Base() *Object                   { return &r.Object }

// PostRecord is an editorial article. Content is markdown.
type PostRecord struct {
	Object
	Media
	Date       string    `json:"date"`
	Content    string    `json:"content"`
	Excerpt    string    `json:"excerpt"`
	Categories []Related `json:"categories"`
	Locations  []Related `json:"locations"`
}

func (r *PostRecord) ContentType() domain.ContentType { return domain.ContentTypePosts }
func (r *PostRecord) Base() *Object                   { return &r.Object }

// VideoRecord is an embedded video session
type VideoRecord struct {
	Object
	Media
	Date        string    `json:"date"`
	Description string    `json:"description"`
	VideoURL    string    `json:"video_url"`
	Genres      []Related `json:"genres"`
	Hosts       []Related `json:"regular_hosts"`
}

func (r *VideoRecord) ContentType() domain.ContentType { return domain.ContentTypeVideos }
func (r *VideoRecord) Base() *Object                   { return &r.Object }

// HostRecord is a regular host or a recurring series
type HostRecord struct {
	Object
	Media
	Description string    `json:"description"`
	Genres      []Related `json:"genres"`
	Locations   []Related `json:"locations"`
}

func (r *HostRecord) ContentType() domain.ContentType { return domain.ContentTypeHostsSeries }
func (r *HostRecord) Base() *Object                   { return &r.Object }

// TakeoverRecord is a guest takeover of the schedule
type TakeoverRecord struct {
	Object
	Media
	DateStart   string    `json:"date_start"`
	DateEnd     string    `json:"date_end"`
	Description string    `json:"description"`
	Hosts       []Related `json:"regular_hosts"`
}

func (r *TakeoverRecord) ContentType() domain.ContentType { return domain.ContentTypeTakeovers }
func (r *TakeoverRecord) Base() *Object                   { return &r.Object }

// EventRecord is a live event listing
type EventRecord struct {
	Object
	Media
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	Genres      []Related `json:"genres"`
	Locations   []Related `json:"locations"`
}

func (r *EventRecord) ContentType() domain.ContentType { return domain.ContentTypeEvents }
func (r *EventRecord) Base() *Object                   { return &r.Object }
