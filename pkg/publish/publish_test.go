package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/fabricpop/pkg/review"
)

func testPublication(t *testing.T) *Publication {
	t.Helper()
	year := 1999
	r, err := review.NewBuilder(func() time.Time {
		return time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)
	}).Build(review.Fields{
		MediaType:       review.MediaMovie,
		MediaID:         "603",
		MediaTitle:      "The Matrix",
		MediaYear:       &year,
		RatingValue:     "4.5",
		RatingScale:     "stars_5",
		ReviewURL:       "https://medium.com/@x/review",
		ReviewerName:    "Neo",
		ReviewerAddress: "0xabc",
	})
	require.NoError(t, err)
	p, err := NewPublication("rec-1", r)
	require.NoError(t, err)
	return p
}

func TestNewPublication(t *testing.T) {
	p := testPublication(t)
	assert.Equal(t, "rec-1", p.ID)
	assert.True(t, strings.HasPrefix(string(p.Compact), `{"m":{"t":"movie","i":"603"`))
	assert.Len(t, p.Digest, 64)
	assert.True(t, strings.HasPrefix(p.Summary, `Movie Review: "The Matrix" (1999)`))
	assert.Equal(t, "Movie Review: The Matrix", p.title())
}

func TestWebhookSignsCompactRecord(t *testing.T) {
	p := testPublication(t)

	var (
		gotBody []byte
		gotHdr  http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHdr = r.Header.Clone()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhook(srv.URL, "s3cret").Publish(context.Background(), p))

	assert.Equal(t, string(p.Compact), string(gotBody))
	assert.Equal(t, "sha256="+Sign("s3cret", p.Compact), gotHdr.Get("X-Signature-256"))
	assert.Equal(t, p.Digest, gotHdr.Get("X-Review-Digest"))
	assert.Equal(t, "rec-1", gotHdr.Get("X-Review-ID"))
}

func TestWebhookWithoutSecret(t *testing.T) {
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig = r.Header.Get("X-Signature-256")
	}))
	defer srv.Close()

	require.NoError(t, NewWebhook(srv.URL, "").Publish(context.Background(), testPublication(t)))
	assert.Empty(t, sig)
}

func TestSign(t *testing.T) {
	// RFC 4231 test case 2.
	assert.Equal(t,
		"5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
		Sign("Jefe", []byte("what do ya want for nothing?")))
}

func TestSlackAndDiscordPayloads(t *testing.T) {
	p := testPublication(t)

	var slackBody, discordBody map[string]any
	slack := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&slackBody)
	}))
	defer slack.Close()
	discord := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&discordBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer discord.Close()

	m := NewManager([]Publisher{NewSlack(slack.URL), NewDiscord(discord.URL)})
	require.True(t, m.HasPublishers())
	require.NoError(t, m.Broadcast(context.Background(), p))

	assert.Equal(t, "Movie Review: The Matrix", slackBody["text"])
	blocks := slackBody["blocks"].([]any)
	require.Len(t, blocks, 3)
	section := blocks[1].(map[string]any)["text"].(map[string]any)
	assert.Contains(t, section["text"], "Rating: 4.5/5.0 stars (90%)")

	embed := discordBody["embeds"].([]any)[0].(map[string]any)
	assert.Equal(t, p.Summary, embed["description"])
	assert.Equal(t, "https://medium.com/@x/review", embed["url"])
	assert.Equal(t, "2024-03-05T10:20:30Z", embed["timestamp"])
	assert.EqualValues(t, 0x2ECC71, embed["color"])
}

type failing struct{ name string }

func (f failing) Name() string { return f.name }
func (f failing) Publish(context.Context, *Publication) error {
	return errors.New("boom")
}

func TestBroadcastJoinsErrors(t *testing.T) {
	var delivered bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered = true
	}))
	defer srv.Close()

	m := NewManager([]Publisher{failing{"a"}, NewWebhook(srv.URL, ""), failing{"b"}})
	err := m.Broadcast(context.Background(), testPublication(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: boom")
	assert.Contains(t, err.Error(), "b: boom")
	assert.True(t, delivered, "a failing publisher must not stop the others")

	assert.False(t, NewManager(nil).HasPublishers())
	require.NoError(t, NewManager(nil).Broadcast(context.Background(), testPublication(t)))
}

func TestStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := testPublication(t)
	for _, pub := range []Publisher{NewWebhook(srv.URL, "x"), NewSlack(srv.URL), NewDiscord(srv.URL)} {
		err := pub.Publish(context.Background(), p)
		require.Error(t, err, pub.Name())
		assert.Contains(t, err.Error(), "status 500")
	}
}
