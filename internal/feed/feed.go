// Package feed lists episodes from a podcast RSS feed so clients can pick
// a locator to analyze.
package feed

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// Episode is one feed item with a playable enclosure.
type Episode struct {
	Title     string `json:"title"`
	AudioURL  string `json:"audio_url"`
	Duration  string `json:"duration,omitempty"`
	Published string `json:"published,omitempty"`
}

// Listing is the parsed feed.
type Listing struct {
	Title    string    `json:"title"`
	Episodes []Episode `json:"episodes"`
}

// Fetch parses the RSS feed at feedURL. Items without an audio enclosure
// are skipped.
func Fetch(ctx context.Context, feedURL string) (Listing, error) {
	parser := gofeed.NewParser()
	f, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("parse feed: %w", err)
	}
	return FromFeed(f), nil
}

// FromFeed converts an already parsed feed into a Listing.
func FromFeed(f *gofeed.Feed) Listing {
	listing := Listing{Title: f.Title}
	for _, item := range f.Items {
		audioURL := ""
		for _, enc := range item.Enclosures {
			if enc.URL != "" {
				audioURL = enc.URL
				break
			}
		}
		if audioURL == "" {
			continue
		}
		ep := Episode{Title: item.Title, AudioURL: audioURL}
		if item.ITunesExt != nil {
			ep.Duration = item.ITunesExt.Duration
		}
		if item.PublishedParsed != nil {
			ep.Published = item.PublishedParsed.Format("2006-01-02")
		}
		listing.Episodes = append(listing.Episodes, ep)
	}
	return listing
}
