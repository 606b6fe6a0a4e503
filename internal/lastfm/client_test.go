//nolint:bodyclose // responses are built in memory
package lastfm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"
)

// fakeLastfm answers lastfm-go requests by API method. lastfm-go builds its
// own http.Client, so tests install it as the default transport.
type fakeLastfm struct {
	mu        sync.Mutex
	responses map[string]string // method -> body inside <lfm>
	calls     map[string]int
	params    []map[string]string
}

func (f *fakeLastfm) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := req.URL.Query()
	method := q.Get("method")
	f.calls[method]++
	params := make(map[string]string, len(q))
	for k := range q {
		params[k] = q.Get(k)
	}
	f.params = append(f.params, params)

	inner, ok := f.responses[method]
	status := "ok"
	if !ok {
		status = "failed"
		inner = `<error code="6">The album you supplied could not be found</error>`
	}
	body := `<?xml version="1.0" encoding="utf-8"?><lfm status="` + status + `">` + inner + `</lfm>`
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/xml"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

func installFake(t *testing.T, responses map[string]string) *fakeLastfm {
	t.Helper()
	f := &fakeLastfm{responses: responses, calls: make(map[string]int)}
	orig := http.DefaultTransport
	http.DefaultTransport = f
	t.Cleanup(func() { http.DefaultTransport = orig })
	return f
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New("key", "secret", WithRateLimit(1000))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

const topAlbumsXML = `<topalbums tag="rock" total="2" page="1" perPage="50" totalPages="1">
  <album rank="1">
    <name>Paranoid</name>
    <url>https://www.last.fm/music/Black+Sabbath/Paranoid</url>
    <artist>
      <name>Black Sabbath</name>
      <mbid>5182c1d9-c7d2-4dad-afa0-ccfeada921a8</mbid>
      <url>https://www.last.fm/music/Black+Sabbath</url>
    </artist>
  </album>
  <album>
    <name>Led Zeppelin IV</name>
    <artist><name>Led Zeppelin</name><mbid></mbid></artist>
  </album>
</topalbums>`

const topArtistsXML = `<topartists tag="rock">
  <artist rank="1"><name>Queen</name><url>https://www.last.fm/music/Queen</url></artist>
  <artist rank="2"><name>Nirvana</name></artist>
</topartists>`

const albumInfoXML = `<album>
  <name>Paranoid</name>
  <artist>Black Sabbath</artist>
  <mbid> 6c79ee2b-0a52-3d09-b2d9-6e8a4ab6a9f8 </mbid>
  <tracks>
    <track rank="1"><name>War Pigs</name><artist><name>Black Sabbath</name></artist></track>
    <track rank="2"><name>Paranoid</name><artist><name></name></artist></track>
  </tracks>
</album>`

const artistInfoXML = `<artist>
  <name>Queen</name>
  <mbid>0383dadf-2a4e-4d10-a46a-e9e041da8eb3</mbid>
</artist>`

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New("", "secret")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestTagTopAlbums_MapsChart(t *testing.T) {
	fake := installFake(t, map[string]string{"tag.gettopalbums": topAlbumsXML})
	c := newTestClient(t)

	albums, err := c.TagTopAlbums(t.Context(), "rock", 200)
	if err != nil {
		t.Fatalf("TagTopAlbums() error = %v", err)
	}

	want := []TopAlbum{
		{Name: "Paranoid", Artist: "Black Sabbath", ArtistMBID: "5182c1d9-c7d2-4dad-afa0-ccfeada921a8", Rank: 1},
		{Name: "Led Zeppelin IV", Artist: "Led Zeppelin", Rank: 2},
	}
	if len(albums) != len(want) {
		t.Fatalf("got %d albums, want %d: %+v", len(albums), len(want), albums)
	}
	for i := range want {
		if albums[i] != want[i] {
			t.Errorf("albums[%d] = %+v, want %+v", i, albums[i], want[i])
		}
	}

	p := fake.params[0]
	if p["tag"] != "rock" || p["limit"] != "200" || p["api_key"] != "key" {
		t.Errorf("request params = %v", p)
	}
}

func TestTagTopAlbums_Memoized(t *testing.T) {
	fake := installFake(t, map[string]string{"tag.gettopalbums": topAlbumsXML})
	c := newTestClient(t)

	for range 3 {
		if _, err := c.TagTopAlbums(t.Context(), "rock", 200); err != nil {
			t.Fatalf("TagTopAlbums() error = %v", err)
		}
	}
	if got := fake.calls["tag.gettopalbums"]; got != 1 {
		t.Errorf("fetched %d times, want 1", got)
	}

	if _, err := c.TagTopAlbums(t.Context(), "blues", 200); err != nil {
		t.Fatalf("TagTopAlbums() error = %v", err)
	}
	if got := fake.calls["tag.gettopalbums"]; got != 2 {
		t.Errorf("fetched %d times after a new tag, want 2", got)
	}
}

func TestTagTopAlbums_ErrorsNotMemoized(t *testing.T) {
	fake := installFake(t, map[string]string{})
	c := newTestClient(t)

	if _, err := c.TagTopAlbums(t.Context(), "jazz", 10); err == nil {
		t.Fatal("expected failed status to be an error")
	}
	fake.responses["tag.gettopalbums"] = `<topalbums tag="jazz"></topalbums>`
	albums, err := c.TagTopAlbums(t.Context(), "jazz", 10)
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if len(albums) != 0 {
		t.Errorf("albums = %+v, want none", albums)
	}
	if got := fake.calls["tag.gettopalbums"]; got != 2 {
		t.Errorf("fetched %d times, want 2", got)
	}
}

func TestTagTopArtists_MapsChart(t *testing.T) {
	installFake(t, map[string]string{"tag.gettopartists": topArtistsXML})
	c := newTestClient(t)

	artists, err := c.TagTopArtists(t.Context(), "rock", 5)
	if err != nil {
		t.Fatalf("TagTopArtists() error = %v", err)
	}
	want := []TopArtist{{Name: "Queen", Rank: 1}, {Name: "Nirvana", Rank: 2}}
	if len(artists) != 2 || artists[0] != want[0] || artists[1] != want[1] {
		t.Errorf("artists = %+v, want %+v", artists, want)
	}
}

func TestAlbumInfo_MapsMBIDAndTracks(t *testing.T) {
	fake := installFake(t, map[string]string{"album.getinfo": albumInfoXML})
	c := newTestClient(t)

	info, err := c.AlbumInfo(t.Context(), "Black Sabbath", "Paranoid")
	if err != nil {
		t.Fatalf("AlbumInfo() error = %v", err)
	}
	if info.MBID != "6c79ee2b-0a52-3d09-b2d9-6e8a4ab6a9f8" {
		t.Errorf("MBID = %q", info.MBID)
	}
	want := []AlbumTrack{
		{Name: "War Pigs", Artist: "Black Sabbath"},
		{Name: "Paranoid", Artist: "Black Sabbath"},
	}
	if len(info.Tracks) != 2 || info.Tracks[0] != want[0] || info.Tracks[1] != want[1] {
		t.Errorf("tracks = %+v, want %+v", info.Tracks, want)
	}

	p := fake.params[0]
	if p["artist"] != "Black Sabbath" || p["album"] != "Paranoid" {
		t.Errorf("request params = %v", p)
	}

	// Same album in another case is served from the memo
	if _, err := c.AlbumInfo(t.Context(), "black sabbath", "PARANOID"); err != nil {
		t.Fatalf("AlbumInfo() error = %v", err)
	}
	if got := fake.calls["album.getinfo"]; got != 1 {
		t.Errorf("fetched %d times, want 1", got)
	}
}

func TestAlbumInfo_NotFound(t *testing.T) {
	installFake(t, map[string]string{})
	c := newTestClient(t)

	if _, err := c.AlbumInfo(t.Context(), "Nobody", "Nothing"); err == nil {
		t.Fatal("expected an error for a failed status")
	}
}

func TestArtistMBID(t *testing.T) {
	fake := installFake(t, map[string]string{"artist.getinfo": artistInfoXML})
	c := newTestClient(t)

	for range 2 {
		mbid, err := c.ArtistMBID(t.Context(), "Queen")
		if err != nil {
			t.Fatalf("ArtistMBID() error = %v", err)
		}
		if mbid != "0383dadf-2a4e-4d10-a46a-e9e041da8eb3" {
			t.Errorf("mbid = %q", mbid)
		}
	}
	if got := fake.calls["artist.getinfo"]; got != 1 {
		t.Errorf("fetched %d times, want 1", got)
	}
}

func TestClient_RateLimit(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, err := New("key", "secret")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		start := time.Now()
		for range 5 {
			if err := c.wait(t.Context()); err != nil {
				t.Fatalf("wait() error = %v", err)
			}
		}
		elapsed := time.Since(start)

		// First is instant, then 4 waits of 500ms each
		if elapsed < 2*time.Second {
			t.Errorf("5 calls took %v, expected at least 2s", elapsed)
		}
	})
}

func TestClient_RateLimitCanceled(t *testing.T) {
	installFake(t, map[string]string{"tag.gettopartists": topArtistsXML})
	c, err := New("key", "secret", WithRateLimit(0.001))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.wait(t.Context()); err != nil {
		t.Fatalf("first wait error = %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := c.TagTopArtists(ctx, "rock", 5); err == nil {
		t.Fatal("expected a canceled context to stop the call")
	}
}

func TestParseRank(t *testing.T) {
	tests := []struct {
		raw   string
		index int
		want  int
	}{
		{"3", 0, 3},
		{"", 4, 5},
		{"x", 0, 1},
	}
	for _, tt := range tests {
		if got := parseRank(tt.raw, tt.index); got != tt.want {
			t.Errorf("parseRank(%q, %d) = %d, want %d", tt.raw, tt.index, got, tt.want)
		}
	}
}
