package metatag

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/eringen/ogimage/thumbnail"
)

func TestWriteFeaturedImage(t *testing.T) {
	var buf bytes.Buffer
	res := thumbnail.Result{ImageURL: "https://example.com/uploads/cat.jpg", Source: thumbnail.SourceFeaturedImage}
	if err := Write(&buf, res, "1.2.0"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got := buf.String()
	want := "\n<!-- ogimage (v1.2.0) -->\n" +
		"<meta property=\"og:image\" content=\"https://example.com/uploads/cat.jpg\" />\n" +
		"<!-- using featured thumbnail -->\n"
	if got != want {
		t.Errorf("Write output =\n%q\nwant\n%q", got, want)
	}
}

func TestWriteEscapesURL(t *testing.T) {
	var buf bytes.Buffer
	res := thumbnail.Result{ImageURL: `https://example.com/a.jpg?x=1&y="2"<script>`, Source: thumbnail.SourceShortCircuit}
	if err := Write(&buf, res, "dev"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got := buf.String()
	if strings.Contains(got, "<script>") || strings.Contains(got, `"2"`) {
		t.Errorf("URL not escaped: %q", got)
	}
	if !strings.Contains(got, `content="https://example.com/a.jpg?x=1&amp;y=&#34;2&#34;&lt;script&gt;"`) {
		t.Errorf("unexpected escaped content: %q", got)
	}
	if !strings.Contains(got, "<!-- using shortcircuit -->") {
		t.Errorf("missing source comment: %q", got)
	}
}

func TestWriteEmptyURLOmitsMeta(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, thumbnail.Result{Source: thumbnail.SourceDefault}, "dev"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got := buf.String()
	if strings.Contains(got, "<meta") {
		t.Errorf("expected no meta element for empty url, got %q", got)
	}
	if !strings.Contains(got, "<!-- using default fallback -->") {
		t.Errorf("missing source comment: %q", got)
	}
}

func TestWriteVersionCannotCloseComment(t *testing.T) {
	res := thumbnail.Result{ImageURL: "/og.jpg"}
	for _, version := range []string{
		"1 --><script>",
		"1--->",
		"1---->\n<script>x</script><!--",
		"-----",
	} {
		var buf bytes.Buffer
		if err := Write(&buf, res, version); err != nil {
			t.Fatalf("Write(%q) failed: %v", version, err)
		}
		out := buf.String()
		start, stop := strings.Index(out, "(v")+2, strings.Index(out, ") -->")
		if start < 2 || stop < start {
			t.Fatalf("unexpected version comment in %q", out)
		}
		if inner := out[start:stop]; strings.Contains(inner, "--") {
			t.Errorf("version %q leaves %q inside the comment", version, inner)
		}
		if strings.Index(out, "-->") != stop+2 {
			t.Errorf("version %q closed the comment early: %q", version, out)
		}
	}
}

func TestCommentSafe(t *testing.T) {
	tests := map[string]string{
		"1.2.0":  "1.2.0",
		"1--2":   "1-2",
		"1--->":  "1->",
		"a----b": "a-b",
	}
	for in, want := range tests {
		if got := commentSafe(in); got != want {
			t.Errorf("commentSafe(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestComponentRendersSameAsWrite(t *testing.T) {
	res := thumbnail.Result{ImageURL: "/uploads/a.jpg", Source: thumbnail.SourceFirstAttachment}
	var direct, viaComponent bytes.Buffer
	if err := Write(&direct, res, "dev"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := Component(res, "dev").Render(context.Background(), &viaComponent); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if direct.String() != viaComponent.String() {
		t.Errorf("component output %q differs from Write %q", viaComponent.String(), direct.String())
	}
}
