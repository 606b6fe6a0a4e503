// Package musicbrainz provides a client for the MusicBrainz API.
package musicbrainz

// ReleaseGroup represents a MusicBrainz release group (album concept).
type ReleaseGroup struct {
	ID             string
	Title          string
	PrimaryType    string // Album, Single, EP, etc.
	SecondaryTypes []string
	FirstRelease   string // first-release-date, YYYY[-MM[-DD]]
	Artist         string // Full credit, e.g. "A feat. B"
	ArtistID       string // MBID of the first credited artist
	PrimaryArtist  string // Name of the first credited artist
}

// ReleaseGroupPage is one page of a release group search.
type ReleaseGroupPage struct {
	Count         int // Total hits for the query, across all pages
	Offset        int
	ReleaseGroups []ReleaseGroup
}

// ReleaseGroupDetails is a release group with its releases.
type ReleaseGroupDetails struct {
	ReleaseGroup
	Releases []Release
}

// Release represents a MusicBrainz release.
type Release struct {
	ID     string
	Title  string
	Artist string
	Date   string
}

// Track represents a track on a release.
type Track struct {
	Position    int
	Title       string
	RecordingID string
}

// ReleaseDetails contains release information including tracks.
type ReleaseDetails struct {
	Release
	Tracks                   []Track
	ReleaseGroupID           string
	ReleaseGroupFirstRelease string
}

// releaseGroupSearchResponse is the raw response from a release group search.
type releaseGroupSearchResponse struct {
	Count         int                  `json:"count"`
	Offset        int                  `json:"offset"`
	ReleaseGroups []releaseGroupResult `json:"release-groups"`
}

// releaseGroupResult is a release group from search or lookup.
type releaseGroupResult struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	PrimaryType    string          `json:"primary-type"`
	SecondaryTypes []string        `json:"secondary-types"`
	FirstRelease   string          `json:"first-release-date"`
	ArtistCredit   []artistCredit  `json:"artist-credit"`
	Releases       []releaseResult `json:"releases"`
}

// artistCredit represents an artist contribution.
type artistCredit struct {
	Name   string `json:"name"`
	Artist struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		SortName string `json:"sort-name"`
	} `json:"artist"`
	JoinPhrase string `json:"joinphrase"`
}

// releaseResult is a release nested in a release group lookup.
type releaseResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// releaseGroupRef is the release group embedded in a release lookup.
type releaseGroupRef struct {
	ID           string `json:"id"`
	PrimaryType  string `json:"primary-type"`
	FirstRelease string `json:"first-release-date"`
}

// medium represents a disc/medium in a release.
type medium struct {
	Position int     `json:"position"`
	Format   string  `json:"format"`
	Tracks   []track `json:"tracks"`
}

// track is a raw track from the API.
type track struct {
	ID        string     `json:"id"`
	Position  int        `json:"position"`
	Title     string     `json:"title"`
	Recording *recording `json:"recording"`
}

// recording represents a MusicBrainz recording (linked from track).
type recording struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// releaseDetailsResponse is the response when fetching a single release.
type releaseDetailsResponse struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Date         string           `json:"date"`
	ArtistCredit []artistCredit   `json:"artist-credit"`
	ReleaseGroup *releaseGroupRef `json:"release-group"`
	Media        []medium         `json:"media"`
}
