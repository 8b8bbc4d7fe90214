package pdfdiff

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtures = filepath.Join("..", "..", "internal", "pdf", "testdata")

func document(pages ...string) *Document {
	d := &Document{}
	for pi, text := range pages {
		p := Page{Index: pi}
		for ti, w := range strings.Fields(text) {
			x := float64(ti * 40)
			p.Tokens = append(p.Tokens, Token{Page: pi, BBox: BBox{X0: x, Y0: 10, X1: x + 30, Y1: 22}, Text: w})
		}
		d.Pages = append(d.Pages, p)
	}
	return d
}

func TestDiff(t *testing.T) {
	// A single page would exempt every word seen once.
	res, err := Diff(document("the quick fox"), document("the slow fox jumps"), WithExemptions(false))
	require.NoError(t, err)

	assert.Equal(t, StrategyRatcliff, res.Strategy)
	assert.Equal(t, 1, res.Stats.Added)
	assert.Equal(t, 1, res.Stats.Replaced)

	rec := NewRecord(res.Stats)
	assert.Equal(t, 3, rec.TotalOld)
	assert.Equal(t, 4, rec.TotalNew)
}

func TestDiff_Options(t *testing.T) {
	oldDoc := document("Draft alpha", "Draft beta")
	newDoc := document("Draft alpha", "Draft gamma")

	res, err := Diff(oldDoc, newDoc, WithStrategy(StrategyMyers))
	require.NoError(t, err)
	assert.Equal(t, []string{"draft"}, res.Old.Exempt)
	assert.Equal(t, 2, res.Stats.TotalOld)

	res, err = Diff(oldDoc, newDoc, WithExemptions(false))
	require.NoError(t, err)
	assert.Empty(t, res.Old.Exempt)
	assert.Equal(t, 4, res.Stats.TotalOld)

	_, err = Diff(oldDoc, newDoc, WithStrategy("patience"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestWriteReport_FollowsExemptionSetting(t *testing.T) {
	d := document("alpha")

	client, err := NewClient(Config{DisableExemptions: true})
	require.NoError(t, err)
	defer client.Close()
	out, err := client.Compare(context.Background(),
		filepath.Join(fixtures, "old.pdf"), filepath.Join(fixtures, "new.pdf"))
	require.NoError(t, err)
	require.False(t, out.Result.Exemptions)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, out, false))
	assert.NotContains(t, buf.String(), "Excluding Exempted Words")
	assert.NotContains(t, buf.String(), "non-exempt")

	// An outcome wrapping a bare Diff result renders the same way.
	res, err := Diff(d, d, WithExemptions(false))
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, WriteReport(&buf, &Outcome{Result: res}, false))
	assert.NotContains(t, buf.String(), "Excluding Exempted Words")
	assert.Contains(t, buf.String(), "Total words in Old PDF: 1")

	res, err = Diff(d, d)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, WriteReport(&buf, &Outcome{Result: res}, false))
	assert.Contains(t, buf.String(), "Excluding Exempted Words")
	assert.Contains(t, buf.String(), "Total non-exempt words in Old PDF: 0")
}

func TestClient_Compare(t *testing.T) {
	client, err := NewClient(Config{CacheDir: t.TempDir(), PageDiff: true})
	require.NoError(t, err)
	defer client.Close()

	oldPath, newPath := filepath.Join(fixtures, "old.pdf"), filepath.Join(fixtures, "new.pdf")
	out, err := client.Compare(context.Background(), oldPath, newPath)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Result.Stats.Added)
	assert.NotEmpty(t, out.PageDiff)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, out, true))
	assert.Contains(t, buf.String(), "Newly Added Words: 1")

	// Second run is served from the token cache and must agree.
	again, err := client.Compare(context.Background(), oldPath, newPath)
	require.NoError(t, err)
	assert.Equal(t, out.Result.Stats, again.Result.Stats)
}

func TestClient_Stream(t *testing.T) {
	client, err := NewClient(Config{Strategy: StrategyMyers})
	require.NoError(t, err)
	defer client.Close()

	events, wait := client.Stream(context.Background(),
		filepath.Join(fixtures, "old.pdf"), filepath.Join(fixtures, "new.pdf"))

	var types []EventType
	for ev := range events {
		types = append(types, ev.Type)
	}
	out, err := wait()
	require.NoError(t, err)
	assert.Equal(t, StrategyMyers, out.Result.Strategy)
	require.NotEmpty(t, types)
	assert.Equal(t, EventStart, types[0])
	assert.Equal(t, EventComplete, types[len(types)-1])
	assert.Contains(t, types, EventPageExtracted)
}

func TestClient_UnknownStrategy(t *testing.T) {
	_, err := NewClient(Config{Strategy: "patience"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
