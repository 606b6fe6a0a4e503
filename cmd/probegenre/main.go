// Manual check of what MusicBrainz returns for one genre and year
package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/notbigmuzzy/genregraphy/internal/musicbrainz"
)

const (
	defaultGenre = "jazz"
	defaultYear  = 1959
	listed       = 10
)

func main() {
	genre, year := defaultGenre, defaultYear
	if len(os.Args) > 1 {
		genre = os.Args[1]
	}
	if len(os.Args) > 2 {
		y, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatalf("Invalid year %q: %v", os.Args[2], err)
		}
		year = y
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mbClient := musicbrainz.NewClient()

	// Count, exactly as fetch-counts queries it
	query := musicbrainz.CountQuery(genre, year)
	log.Printf("Query: %s", query)
	page, err := mbClient.SearchReleaseGroups(ctx, query, listed, 0)
	if err != nil {
		log.Fatalf("Failed to search release groups: %v", err)
	}
	log.Printf("Count: %d", page.Count)
	for _, rg := range page.ReleaseGroups {
		log.Printf("  %s - %s (%s, %s) - ID: %s", rg.Artist, rg.Title, rg.PrimaryType, rg.FirstRelease, rg.ID)
	}

	// Detailed listing query, without the type filter
	query = musicbrainz.TagYearQuery(genre, year)
	page, err = mbClient.SearchReleaseGroups(ctx, query, listed, 0)
	if err != nil {
		log.Fatalf("Failed to search release groups: %v", err)
	}
	log.Printf("Detailed query %q: %d hits", query, page.Count)

	if len(page.ReleaseGroups) == 0 {
		log.Println("No release groups to inspect")
		return
	}
	selected := page.ReleaseGroups[0]
	log.Printf("\nUsing release group: %s - %s (%s)", selected.Artist, selected.Title, selected.ID)

	details, err := mbClient.GetReleaseGroup(ctx, selected.ID)
	if err != nil {
		log.Fatalf("Failed to get release group: %v", err)
	}
	if len(details.Releases) == 0 {
		log.Println("Release group has no releases")
		return
	}

	release, err := mbClient.GetRelease(ctx, details.Releases[0].ID)
	if err != nil {
		log.Fatalf("Failed to get release: %v", err)
	}
	log.Printf("Found release: %s (%s) - %d tracks - group first released %s",
		release.Title, release.Date, len(release.Tracks), release.ReleaseGroupFirstRelease)
	for _, track := range release.Tracks {
		log.Printf("  Track %d: %s", track.Position, track.Title)
	}
}
