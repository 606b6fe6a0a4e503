package lastfm

// TopArtist is an entry of a tag's top artist chart.
type TopArtist struct {
	Name string
	Rank int
}

// TopAlbum is an entry of a tag's top album chart.
type TopAlbum struct {
	Name       string
	Artist     string
	ArtistMBID string
	Rank       int
}

// AlbumInfo is the album.getInfo answer.
type AlbumInfo struct {
	Name   string
	Artist string
	MBID   string // Often empty for less common albums
	Tracks []AlbumTrack
}

// AlbumTrack is a track of an album's Last.fm track list.
type AlbumTrack struct {
	Name   string
	Artist string
}
