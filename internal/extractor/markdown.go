package extractor

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

var markdownConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// renderMarkdown converts the scoped subtree into a human-readable markdown
// rendering, used by the optional markdown export view. A conversion
// failure degrades to an empty string rather than failing extraction.
func renderMarkdown(nodes []*html.Node) string {
	if len(nodes) == 0 {
		return ""
	}
	md, err := markdownConverter.ConvertNode(nodes[0])
	if err != nil {
		return ""
	}
	return string(md)
}
