// Package markdown renders post bodies as HTML for the default views.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// UploadsPath is where bare image filenames in post bodies are served from.
const UploadsPath = "/public/uploads/"

var (
	reBold             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore   = regexp.MustCompile(`__(.+?)__`)
	reItalic           = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnderscore = regexp.MustCompile(`_([^_]+)_`)
	reInlineCode       = regexp.MustCompile("`([^`]+)`")
	reLink             = regexp.MustCompile(`\[(.*?)\]\((.*?)\)(\^)?`)
	reOrderedList      = regexp.MustCompile(`^(\d+)\.\s`)
	// ![alt](src), ![alt](src){style} or ![alt](src){style|width|height}
	reImg = regexp.MustCompile(`\!\[(.*?)\]\((.*?)\)(?:\{([^|}]*?)(?:\|(\d+)\|(\d+))?\})?`)
)

// Markdown returns a templ.Component that renders md as HTML.
func Markdown(md string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderMarkdown(&buf, md)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// RenderMarkdown writes the HTML representation of md to buf.
func RenderMarkdown(buf *bytes.Buffer, md string) {
	r := &renderer{buf: buf}
	for _, line := range strings.Split(md, "\n") {
		r.line(strings.TrimRight(line, "\r"))
	}
	r.close()
}

type block int

const (
	blockNone block = iota
	blockPara
	blockList
	blockOrdered
	blockQuote
	blockTable
	blockCode
)

// renderer tracks the single block element that is currently open.
type renderer struct {
	buf       *bytes.Buffer
	open      block
	tableBody bool
	codeLang  bool
	images    int
}

func (r *renderer) close() {
	switch r.open {
	case blockPara:
		r.buf.WriteString("</p>")
	case blockList:
		r.buf.WriteString("</ul>")
	case blockOrdered:
		r.buf.WriteString("</ol>")
	case blockQuote:
		r.buf.WriteString("</blockquote>")
	case blockTable:
		if r.tableBody {
			r.buf.WriteString("</tbody>")
		}
		r.buf.WriteString("</table>")
	case blockCode:
		r.buf.WriteString("</code></pre>")
		if r.codeLang {
			r.buf.WriteString("</div>")
		}
	}
	r.open = blockNone
	r.tableBody = false
	r.codeLang = false
}

// enter opens b with start unless b is already open. It reports whether a
// new block was started.
func (r *renderer) enter(b block, start string) bool {
	if r.open == b {
		return false
	}
	r.close()
	r.buf.WriteString(start)
	r.open = b
	return true
}

func (r *renderer) inline(s string) string {
	return FormatInline(strings.TrimSpace(s), &r.images)
}

func (r *renderer) line(line string) {
	if strings.HasPrefix(line, "```") {
		if r.open == blockCode {
			r.close()
			return
		}
		r.openCode(strings.TrimSpace(line[3:]))
		return
	}
	if r.open == blockCode {
		r.buf.WriteString(html.EscapeString(line))
		r.buf.WriteByte('\n')
		return
	}

	switch {
	case strings.TrimSpace(line) == "":
		r.close()
	case strings.HasPrefix(line, "---"):
		r.close()
		r.buf.WriteString("<hr/>")
	case headingLevel(line) > 0:
		n := headingLevel(line)
		r.close()
		tag := "h" + strconv.Itoa(n)
		r.buf.WriteString("<" + tag + ">" + r.inline(line[n+1:]) + "</" + tag + ">")
	case strings.HasPrefix(line, "|"):
		r.tableRow(line)
	case strings.HasPrefix(line, "- "):
		r.enter(blockList, "<ul>")
		r.buf.WriteString("<li>" + r.inline(line[2:]) + "</li>")
	case reOrderedList.MatchString(line):
		r.enter(blockOrdered, "<ol>")
		r.buf.WriteString("<li>" + r.inline(reOrderedList.ReplaceAllString(line, "")) + "</li>")
	case strings.HasPrefix(line, "> "):
		if !r.enter(blockQuote, "<blockquote>") {
			r.buf.WriteByte(' ')
		}
		r.buf.WriteString(r.inline(line[2:]))
	default:
		if !r.enter(blockPara, "<p>") {
			r.buf.WriteByte(' ')
		}
		r.buf.WriteString(r.inline(line) + "\n")
	}
}

func (r *renderer) openCode(lang string) {
	if lang == "" {
		r.enter(blockCode, `<pre class="code-block"><code>`)
		return
	}
	lang = html.EscapeString(lang)
	r.enter(blockCode, `<div class="code-block-wrapper"><span class="code-lang code-lang-`+lang+`">`+lang+`</span>`+
		`<pre class="code-block"><code class="language-`+lang+`">`)
	r.codeLang = true
}

// tableRow treats the first row of a table as its header and drops
// |---|---| separator rows.
func (r *renderer) tableRow(line string) {
	if r.enter(blockTable, "<table>") {
		r.buf.WriteString("<thead>")
		r.cells("th", line)
		r.buf.WriteString("</thead>")
		return
	}
	if !r.tableBody {
		r.buf.WriteString("<tbody>")
		r.tableBody = true
	}
	if isTableSeparator(line) {
		return
	}
	r.cells("td", line)
}

func (r *renderer) cells(tag, line string) {
	r.buf.WriteString("<tr>")
	for _, cell := range parseTableCells(line) {
		r.buf.WriteString("<" + tag + ">" + FormatInline(cell, &r.images) + "</" + tag + ">")
	}
	r.buf.WriteString("</tr>")
}

func headingLevel(line string) int {
	for n := 1; n <= 3; n++ {
		if strings.HasPrefix(line, strings.Repeat("#", n)+" ") {
			return n
		}
	}
	return 0
}

func parseTableCells(line string) []string {
	parts := strings.Split(strings.Trim(strings.TrimSpace(line), "|"), "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func isTableSeparator(line string) bool {
	for _, cell := range parseTableCells(line) {
		if strings.Trim(cell, "-:") != "" {
			return false
		}
	}
	return true
}

// ApplyOutsideTags applies fn only to text segments outside HTML tags, so
// formatting never touches attribute values.
func ApplyOutsideTags(s string, fn func(string) string) string {
	var buf strings.Builder
	for len(s) > 0 {
		lt := strings.Index(s, "<")
		if lt < 0 {
			buf.WriteString(fn(s))
			break
		}
		if lt > 0 {
			buf.WriteString(fn(s[:lt]))
		}
		gt := strings.Index(s[lt:], ">")
		if gt < 0 {
			buf.WriteString(s[lt:])
			break
		}
		buf.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return buf.String()
}

// FormatInline escapes s and applies images, links, inline code, bold and
// italic. imageCount numbers images across a document: the first one is
// fetched with high priority.
func FormatInline(s string, imageCount *int) string {
	escaped := html.EscapeString(s)
	escaped = reImg.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reImg.FindStringSubmatch(m)
		src := ImageSrc(match[2])
		if src == "" {
			return match[1]
		}
		*imageCount++
		attrs := `loading="lazy"`
		if *imageCount == 1 {
			attrs = `fetchpriority="high"`
		}
		if match[4] != "" && match[5] != "" {
			attrs += ` width="` + match[4] + `" height="` + match[5] + `"`
		}
		attrs += ` alt="` + match[1] + `" src="` + src + `"`
		if match[3] != "" {
			attrs += ` style="` + match[3] + `"`
		}
		return `<img ` + attrs + ` decoding="async"/>`
	})
	escaped = reLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		attrs := ""
		if match[3] == "^" {
			attrs = ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `"` + attrs + `>` + match[1] + `</a>`
	})
	// Inline code is swapped for placeholders so bold and italic skip it.
	var codes []string
	escaped = reInlineCode.ReplaceAllStringFunc(escaped, func(m string) string {
		codes = append(codes, "<code>"+reInlineCode.FindStringSubmatch(m)[1]+"</code>")
		return "\x00IC" + strconv.Itoa(len(codes)-1) + "\x00"
	})
	escaped = ApplyOutsideTags(escaped, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reBoldUnderscore.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reItalic.ReplaceAllString(seg, "<em>$1</em>")
		seg = reItalicUnderscore.ReplaceAllString(seg, "<em>$1</em>")
		return seg
	})
	for i, code := range codes {
		escaped = strings.Replace(escaped, "\x00IC"+strconv.Itoa(i)+"\x00", code, 1)
	}
	return escaped
}

// ImageSrc resolves an image reference from a post body. A bare filename
// such as "cover.jpg" points at the uploads directory; anything else must
// pass SafeURL.
func ImageSrc(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val != "" && !strings.ContainsAny(val, "/:#?") {
		return html.EscapeString(UploadsPath + url.PathEscape(val))
	}
	return SafeURL(raw)
}

// SafeURL validates and sanitizes a URL for use in HTML attributes. It
// returns "" for anything but root-relative, fragment, http(s), mailto and
// tel references.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
