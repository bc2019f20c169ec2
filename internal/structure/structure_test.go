package structure_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scraptool/corefetch/internal/structure"
)

const sampleHTML = `
<html><body>
  <nav><a href="/docs/intro">Intro</a></nav>
  <main id="content" class="doc-main">
    <h1>Title</h1>
    <section class="chapter"><h2>Chapter One</h2><p>Text</p></section>
    <a href="/docs/other">Internal</a>
    <a href="https://other.example.com/page">External</a>
    <form action="/search" method="get">
      <input name="q">
      <input type="submit">
    </form>
  </main>
</body></html>`

func TestAnalyze_WholeDocument(t *testing.T) {
	base, err := url.Parse("https://docs.example.com/")
	require.NoError(t, err)

	result, aerr := structure.NewAnalyzer().Analyze(*base, []byte(sampleHTML), "")
	require.Nil(t, aerr)

	assert.Contains(t, result.InternalLinks, "https://docs.example.com/docs/other")
	assert.Contains(t, result.ExternalLinks, "https://other.example.com/page")
	assert.NotContains(t, result.InternalLinks, "https://other.example.com/page")

	require.Len(t, result.Navigation, 1)
	assert.Equal(t, "https://docs.example.com/docs/intro", result.Navigation[0].URL)

	require.Len(t, result.Outline, 2)
	assert.Equal(t, 1, result.Outline[0].Level)
	assert.Equal(t, "Chapter One", result.Outline[1].Text)

	require.Len(t, result.Forms, 1)
	assert.Equal(t, "GET", result.Forms[0].Method)
	assert.Contains(t, result.Forms[0].Fields, "q")

	var mainSection *structure.Section
	for i := range result.Sections {
		if result.Sections[i].ID == "content" {
			mainSection = &result.Sections[i]
		}
	}
	require.NotNil(t, mainSection)
	assert.Contains(t, mainSection.Classes, "doc-main")
}

func TestAnalyze_OutlineStabilizesSkippedLevels(t *testing.T) {
	const skippedHTML = `
<html><body><main>
<h1>Top</h1>
<h3>Skipped to three</h3>
<h2>Back to two</h2>
<h4>Deep again</h4>
</main></body></html>`

	base, err := url.Parse("https://docs.example.com/")
	require.NoError(t, err)

	result, aerr := structure.NewAnalyzer().Analyze(*base, []byte(skippedHTML), "")
	require.Nil(t, aerr)

	require.Len(t, result.Outline, 4)
	assert.Equal(t, 1, result.Outline[0].Level)
	assert.Equal(t, 2, result.Outline[1].Level, "h1 -> h3 is renumbered to h1 -> h2")
	assert.Equal(t, 2, result.Outline[2].Level, "going back to h2 is left unchanged")
	assert.Equal(t, 3, result.Outline[3].Level, "h2 -> h4 is renumbered to h2 -> h3")
}

func TestAnalyze_SelectorNotFound(t *testing.T) {
	base, err := url.Parse("https://docs.example.com/")
	require.NoError(t, err)

	_, aerr := structure.NewAnalyzer().Analyze(*base, []byte(sampleHTML), "#missing")
	require.NotNil(t, aerr)
	assert.Equal(t, structure.ErrCauseSelectorNotFound, aerr.Cause)
}

func TestAnalyze_InvalidSelector(t *testing.T) {
	base, err := url.Parse("https://docs.example.com/")
	require.NoError(t, err)

	_, aerr := structure.NewAnalyzer().Analyze(*base, []byte(sampleHTML), ":::bad")
	require.NotNil(t, aerr)
	assert.Equal(t, structure.ErrCauseInvalidSelector, aerr.Cause)
}
