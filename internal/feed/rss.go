package feed

import (
	"fmt"
	"net/http"
	"time"

	"github.com/eduncan911/podcast"

	"podai/internal/models"
)

func getBaseURL(baseURL string, r *http.Request) string {
	if baseURL != "" {
		return baseURL
	}

	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "https"
		if r.Header.Get("X-Forwarded-Proto") != "" {
			scheme = r.Header.Get("X-Forwarded-Proto")
		}
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// GenerateRSS renders the user's ready podcasts as an RSS feed. The
// enclosure type is MP3 because the feed library has no WAV constant;
// players resolve the real format from the served Content-Type.
func GenerateRSS(user *models.User, podcasts []models.Podcast, baseURL string, r *http.Request) (string, error) {
	base := getBaseURL(baseURL, r)

	p := podcast.New(
		fmt.Sprintf("%s's Podcast", user.Username),
		fmt.Sprintf("%s/rss/%s", base, user.RSSUUID),
		"Generated multi-speaker podcasts.",
		&time.Time{}, &time.Time{},
	)

	for _, pc := range podcasts {
		pubDate := pc.PublishedAt
		if pubDate == nil {
			pubDate = &pc.CreatedAt
		}
		item := podcast.Item{
			Title:       pc.Name,
			Description: pc.Subject,
			PubDate:     pubDate,
		}
		if pc.DurationSeconds != nil {
			item.AddDuration(int64(*pc.DurationSeconds))
		}
		item.AddEnclosure(fmt.Sprintf("%s/audio/%s/%s.wav", base, pc.UserID, pc.ID), podcast.MP3, 0)
		if _, err := p.AddItem(item); err != nil {
			return "", err
		}
	}

	return p.String(), nil
}
