package ocr

import (
	"strings"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"golang.org/x/net/html"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type brk = visionpb.TextAnnotation_DetectedBreak_BreakType

func symbol(text string, t brk) *visionpb.Symbol {
	return &visionpb.Symbol{
		Text: text,
		Property: &visionpb.TextAnnotation_TextProperty{
			DetectedBreak: &visionpb.TextAnnotation_DetectedBreak{Type: t},
		},
	}
}

// annotation builds a single page, block and paragraph holding one word.
func annotation(symbols ...*visionpb.Symbol) *visionpb.TextAnnotation {
	return &visionpb.TextAnnotation{
		Pages: []*visionpb.Page{{
			Blocks: []*visionpb.Block{{
				Paragraphs: []*visionpb.Paragraph{{
					Words: []*visionpb.Word{{Symbols: symbols}},
				}},
			}},
		}},
	}
}

func body(s string) string {
	s = strings.TrimPrefix(s, "<html><head></head><body><div><div><p>")
	return strings.TrimSuffix(s, "</p></div></div></body></html>")
}

func TestRenderHTML_HyphenThenSpace(t *testing.T) {
	got := body(RenderHTML(annotation(
		symbol("wo", visionpb.TextAnnotation_DetectedBreak_HYPHEN),
		symbol("rd", visionpb.TextAnnotation_DetectedBreak_SPACE),
	)))
	if got != "wo-<br />rd " {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(got, " <br />") {
		t.Errorf("no space may precede the break tag: %q", got)
	}
}

func TestRenderHTML_NoBreakInsertsNothing(t *testing.T) {
	got := body(RenderHTML(annotation(
		symbol("ab", visionpb.TextAnnotation_DetectedBreak_UNKNOWN),
		&visionpb.Symbol{Text: "cd"},
	)))
	if got != "abcd" {
		t.Fatalf("got %q", got)
	}
}

func TestBreakSuffix(t *testing.T) {
	cases := []struct {
		in   brk
		want string
	}{
		{visionpb.TextAnnotation_DetectedBreak_UNKNOWN, ""},
		{visionpb.TextAnnotation_DetectedBreak_SPACE, " "},
		{visionpb.TextAnnotation_DetectedBreak_SURE_SPACE, ""},
		{visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE, "<br />"},
		{visionpb.TextAnnotation_DetectedBreak_HYPHEN, "-<br />"},
		{visionpb.TextAnnotation_DetectedBreak_LINE_BREAK, "<br />"},
	}
	for _, tc := range cases {
		if got := BreakSuffix(tc.in); got != tc.want {
			t.Errorf("BreakSuffix(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderHTML_Nesting(t *testing.T) {
	ann := &visionpb.TextAnnotation{
		Pages: []*visionpb.Page{{
			Blocks: []*visionpb.Block{
				{Paragraphs: []*visionpb.Paragraph{
					{Words: []*visionpb.Word{{Symbols: []*visionpb.Symbol{symbol("A", visionpb.TextAnnotation_DetectedBreak_LINE_BREAK)}}}},
					{Words: []*visionpb.Word{{Symbols: []*visionpb.Symbol{symbol("B", visionpb.TextAnnotation_DetectedBreak_UNKNOWN)}}}},
				}},
				{Paragraphs: []*visionpb.Paragraph{
					{Words: []*visionpb.Word{{Symbols: []*visionpb.Symbol{symbol("C", visionpb.TextAnnotation_DetectedBreak_UNKNOWN)}}}},
				}},
			},
		}},
	}

	want := "<html><head></head><body><div>" +
		"<div><p>A<br /></p><p>B</p></div>" +
		"<div><p>C</p></div>" +
		"</div></body></html>"
	if got := RenderHTML(ann); got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}

	doc, err := html.Parse(strings.NewReader(want))
	if err != nil {
		t.Fatalf("html.Parse() error = %v", err)
	}
	var paragraphs int
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			paragraphs++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if paragraphs != 3 {
		t.Errorf("expected 3 paragraphs, got %d", paragraphs)
	}
}

func TestRenderHTML_EmptyAnnotation(t *testing.T) {
	want := "<html><head></head><body></body></html>"
	if got := RenderHTML(nil); got != want {
		t.Errorf("got %q", got)
	}
}

func TestRenderHTML_EscapesSymbolText(t *testing.T) {
	got := body(RenderHTML(annotation(symbol("<&>", visionpb.TextAnnotation_DetectedBreak_UNKNOWN))))
	if got != "&lt;&amp;&gt;" {
		t.Errorf("got %q", got)
	}
}

func TestMarshalAnnotation_Lossless(t *testing.T) {
	ann := annotation(symbol("wo", visionpb.TextAnnotation_DetectedBreak_HYPHEN))
	ann.Text = "wo-\n"

	data, err := MarshalAnnotation(ann)
	if err != nil {
		t.Fatalf("MarshalAnnotation() error = %v", err)
	}
	var back visionpb.TextAnnotation
	if err := protojson.Unmarshal(data, &back); err != nil {
		t.Fatalf("protojson.Unmarshal() error = %v", err)
	}
	if !proto.Equal(ann, &back) {
		t.Errorf("round trip changed the annotation: %s", data)
	}
}

func TestMarshalAnnotation_Nil(t *testing.T) {
	data, err := MarshalAnnotation(nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "{}" {
		t.Errorf("expected empty object, got %q", data)
	}
}
