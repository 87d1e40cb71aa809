package upload

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// ErrPublishFailed is returned on any upstream rejection (auth, quota,
// malformed payload). Fatal to the run; the local video file is left to the
// orchestrator's unconditional cleanup.
var ErrPublishFailed = errors.New("youtube publish failed")

const (
	titleLimit   = 100
	maxTags      = 30
	categoryID   = "23" // Comedy
	watchURLBase = "https://www.youtube.com/watch?v="

	promoFooter = "\n\n#brainrot #shorts #viral #sigma #ohio #skibidi\n\nThis video was auto-generated. Subscribe for daily brainrot content!"
)

// promoTags are always merged into the caller's tag list.
var promoTags = []string{
	"brainrot", "skibidi", "sigma", "ohio", "rizz", "gyatt",
	"viral", "meme", "funny", "shorts", "trending",
}

// Publisher uploads a finished video and returns its canonical id and URL.
type Publisher interface {
	Publish(ctx context.Context, videoPath, title, description string, tags []string) (id, url string, err error)
}

// Credentials holds the OAuth material for the YouTube channel.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Uploader publishes videos via the YouTube Data API v3.
type Uploader struct {
	creds Credentials
}

var _ Publisher = (*Uploader)(nil)

// New creates a YouTube Uploader.
func New(creds Credentials) *Uploader {
	return &Uploader{creds: creds}
}

// Publish uploads videoPath as a public, non-child-directed Short.
func (u *Uploader) Publish(ctx context.Context, videoPath, title, description string, tags []string) (string, string, error) {
	client, err := u.oauthClient(ctx)
	if err != nil {
		return "", "", fmt.Errorf("%w: auth: %v", ErrPublishFailed, err)
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", "", fmt.Errorf("%w: service: %v", ErrPublishFailed, err)
	}

	video := buildVideo(title, description, tags)

	f, err := os.Open(videoPath)
	if err != nil {
		return "", "", fmt.Errorf("%w: open video file: %v", ErrPublishFailed, err)
	}
	defer f.Close()

	log.Printf("[upload] Uploading %q", video.Snippet.Title)

	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(f)

	uploaded, err := call.Do()
	if err != nil {
		return "", "", fmt.Errorf("%w: insert: %v", ErrPublishFailed, err)
	}

	videoURL := watchURLBase + uploaded.Id
	log.Printf("[upload] ✅ Uploaded: %s", videoURL)
	return uploaded.Id, videoURL, nil
}

// buildVideo applies the platform policy: title capped at 100 chars, promo
// hashtags appended to the description, merged tags capped at 30, public and
// not made for kids.
func buildVideo(title, description string, tags []string) *youtube.Video {
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                truncate(title, titleLimit),
			Description:          description + promoFooter,
			Tags:                 mergeTags(tags),
			CategoryId:           categoryID,
			DefaultLanguage:      "en",
			DefaultAudioLanguage: "en",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           "public",
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
}

// truncate caps s at n characters without splitting a multi-byte rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func mergeTags(tags []string) []string {
	merged := append(append([]string{}, tags...), promoTags...)
	if len(merged) > maxTags {
		merged = merged[:maxTags]
	}
	return merged
}

func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	if u.creds.ClientID == "" || u.creds.ClientSecret == "" || u.creds.RefreshToken == "" {
		return nil, fmt.Errorf("youtube client id, secret, or refresh token not set")
	}

	conf := &oauth2.Config{
		ClientID:     u.creds.ClientID,
		ClientSecret: u.creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}

	token := &oauth2.Token{
		RefreshToken: u.creds.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}

	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token)), nil
}
