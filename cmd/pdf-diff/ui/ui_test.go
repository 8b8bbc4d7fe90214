package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func newTestUI(jsonMode bool) (*UI, *bytes.Buffer) {
	color.NoColor = true
	var buf bytes.Buffer
	return &UI{out: &buf, jsonMode: jsonMode}, &buf
}

func TestTable_AlignsByDisplayWidth(t *testing.T) {
	u, buf := newTestUI(false)
	u.Table([]string{"Side", "Text"}, [][]string{
		{"old", "hello"},
		{"新しい", "world"},
	}, 0)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "Side    Text", lines[0])
	assert.Equal(t, "------  -----", lines[1])
	assert.Equal(t, "old     hello", lines[2])
	assert.Equal(t, "新しい  world", lines[3])
}

func TestTable_Truncates(t *testing.T) {
	u, buf := newTestUI(false)
	u.Table([]string{"Text"}, [][]string{{"abcdefghijkl"}}, 6)
	assert.Contains(t, buf.String(), "abcde…")
	assert.NotContains(t, buf.String(), "abcdefg")
}

func TestJSONModeIsSilent(t *testing.T) {
	u, buf := newTestUI(true)
	u.Success("done")
	u.Info("x %d", 1)
	u.Section("Title")
	u.Table([]string{"a"}, [][]string{{"b"}}, 0)
	assert.Empty(t, buf.String())

	assert.Nil(t, u.NewSpinner("x"))
	assert.Nil(t, u.NewPageBar(3, "x"))
	assert.Nil(t, u.ProgressBar("x", 3))

	var s *Spinner
	s.Start()
	s.UpdateMessage("y")
	s.Stop()
	var p *PageBar
	p.Add(1)
	p.Finish()
}

func TestMessages(t *testing.T) {
	u, buf := newTestUI(false)
	u.Success("wrote %s", "a.md")
	u.Step("next")
	assert.Equal(t, "✓ wrote a.md\n→ next\n", buf.String())
}

func TestSpinner_UpdateMessage(t *testing.T) {
	u, _ := newTestUI(false)
	s := u.NewSpinner("Inspecting documents...")
	assert.Equal(t, " Inspecting documents...", s.spinner.Suffix)

	s.UpdateMessage("Inspecting documents (1/2)...")
	assert.Equal(t, " Inspecting documents (1/2)...", s.spinner.Suffix)
}
