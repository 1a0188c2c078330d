package chatview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render("**Revenue** grew *12%*.")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<strong>Revenue</strong>")
	assert.Contains(t, string(out), "<em>12%</em>")
}

func TestRenderLinksAsText(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render("see [the report](https://example.com/r) or <https://example.com/raw>")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<a ")
	assert.NotContains(t, string(out), `href=`)
	assert.Contains(t, string(out), `<span class="answer-link">the report</span>`)
	assert.Contains(t, string(out), `<span class="answer-link">https://example.com/raw</span>`)
}

func TestRenderBareNumberListItems(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render("- 12\n- twelve\n- 1234\n")
	require.NoError(t, err)
	assert.Contains(t, string(out), `<li><span class="answer-marker">12</span></li>`)
	assert.Contains(t, string(out), "<li>twelve</li>")
	assert.Contains(t, string(out), "<li>1234</li>")
}

func TestRenderSanitizesHTML(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render(`fact<sup>1</sup> <script>alert(1)</script><span class="evil" onclick="x()">t</span>`)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<sup>1</sup>")
	assert.NotContains(t, string(out), "<script>")
	assert.NotContains(t, string(out), "onclick")
	assert.NotContains(t, string(out), "evil")
}
