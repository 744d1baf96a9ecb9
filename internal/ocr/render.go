// Package ocr turns Cloud Vision document text annotations into the page
// artifacts stored on a corpus: reconstructed HTML, raw JSON, and their names.
package ocr

import (
	"strings"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"golang.org/x/net/html"
	"google.golang.org/protobuf/encoding/protojson"
)

const lineBreak = "<br />"

// BreakSuffix is the markup emitted after a symbol for its detected break.
// SURE_SPACE and UNKNOWN emit nothing.
func BreakSuffix(t visionpb.TextAnnotation_DetectedBreak_BreakType) string {
	switch t {
	case visionpb.TextAnnotation_DetectedBreak_SPACE:
		return " "
	case visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE,
		visionpb.TextAnnotation_DetectedBreak_LINE_BREAK:
		return lineBreak
	case visionpb.TextAnnotation_DetectedBreak_HYPHEN:
		return "-" + lineBreak
	default:
		return ""
	}
}

// RenderHTML rebuilds the page text as an HTML document: a div per page, a
// div per block and a p per paragraph. Only symbol breaks produce separators.
func RenderHTML(ann *visionpb.TextAnnotation) string {
	var b strings.Builder
	b.WriteString("<html><head></head><body>")
	for _, page := range ann.GetPages() {
		b.WriteString("<div>")
		for _, block := range page.GetBlocks() {
			b.WriteString("<div>")
			for _, paragraph := range block.GetParagraphs() {
				b.WriteString("<p>")
				writeParagraph(&b, paragraph)
				b.WriteString("</p>")
			}
			b.WriteString("</div>")
		}
		b.WriteString("</div>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

func writeParagraph(b *strings.Builder, paragraph *visionpb.Paragraph) {
	for _, word := range paragraph.GetWords() {
		for _, symbol := range word.GetSymbols() {
			b.WriteString(html.EscapeString(symbol.GetText()))
			b.WriteString(BreakSuffix(symbol.GetProperty().GetDetectedBreak().GetType()))
		}
	}
}

// MarshalAnnotation serialises the annotation as-is. A missing annotation
// becomes an empty object.
func MarshalAnnotation(ann *visionpb.TextAnnotation) ([]byte, error) {
	if ann == nil {
		ann = &visionpb.TextAnnotation{}
	}
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(ann)
}
