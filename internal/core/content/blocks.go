package content

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

type blockKind uint8

const (
	blockParagraph blockKind = iota
	blockHeading
	blockQuote
	blockCode
	blockList
	blockCaption
	blockImage
)

type listEntry struct {
	text  string
	depth int
}

// block is one structural unit extracted from chapter markup, before
// wrapping turns it into display lines.
type block struct {
	kind    blockKind
	text    string
	items   []listEntry
	ordered bool
	src     string
	alt     string
}

// parseBlocks extracts the block sequence from chapter XHTML. The
// parser is error-tolerant, so broken markup degrades to whatever text
// survives rather than failing the chapter.
func parseBlocks(markup []byte) ([]block, error) {
	root, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse chapter markup: %w", err)
	}

	c := &collector{}
	c.walk(root)
	c.flush()
	return c.blocks, nil
}

type collector struct {
	blocks  []block
	pending strings.Builder
	inQuote bool
}

// flush converts accumulated inline text into a paragraph (or quote)
// block. Whitespace is normalized the way terminals want it: runs
// collapse to single spaces.
func (c *collector) flush() {
	text := normalizeSpace(c.pending.String())
	c.pending.Reset()
	if text == "" {
		return
	}
	kind := blockParagraph
	if c.inQuote {
		kind = blockQuote
	}
	c.blocks = append(c.blocks, block{kind: kind, text: text})
}

func (c *collector) add(b block) {
	c.blocks = append(c.blocks, b)
}

func (c *collector) walkChildren(n *html.Node) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.walk(ch)
	}
}

func (c *collector) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		c.pending.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		c.walkChildren(n)
		return
	}

	switch n.Data {
	case "script", "style", "head", "title", "meta", "link", "template":
		return

	case "h1", "h2", "h3", "h4", "h5", "h6":
		c.flush()
		if t := normalizeSpace(textContent(n)); t != "" {
			c.add(block{kind: blockHeading, text: t})
		}

	case "p":
		c.flush()
		c.walkChildren(n)
		c.flush()

	case "blockquote":
		c.flush()
		prev := c.inQuote
		c.inQuote = true
		c.walkChildren(n)
		c.flush()
		c.inQuote = prev

	case "pre":
		c.flush()
		// Whitespace is content inside pre; no normalization.
		if t := strings.Trim(textContent(n), "\n"); strings.TrimSpace(t) != "" {
			c.add(block{kind: blockCode, text: t})
		}

	case "ul", "ol":
		c.flush()
		items := collectListItems(n, 0)
		if len(items) > 0 {
			c.add(block{kind: blockList, items: items, ordered: n.Data == "ol"})
		}

	case "figure":
		c.flush()
		c.walkChildren(n)
		c.flush()

	case "figcaption":
		c.flush()
		if t := normalizeSpace(textContent(n)); t != "" {
			c.add(block{kind: blockCaption, text: t})
		}

	case "img":
		c.flush()
		if src := attrValue(n, "src"); src != "" {
			c.add(block{kind: blockImage, src: src, alt: attrValue(n, "alt")})
		}

	case "image":
		// SVG image element, the common wrapper for EPUB cover pages.
		c.flush()
		src := attrValue(n, "href")
		if src == "" {
			src = attrValue(n, "xlink:href")
		}
		if src != "" {
			c.add(block{kind: blockImage, src: src})
		}

	case "table":
		c.flush()
		if rows := tableRows(n); len(rows) > 0 {
			c.add(block{kind: blockCode, text: strings.Join(rows, "\n")})
		}

	case "br":
		c.pending.WriteString(" ")

	case "hr":
		c.flush()
		c.add(block{kind: blockParagraph, text: "* * *"})

	default:
		c.walkChildren(n)
	}
}

// collectListItems flattens a list subtree. Nested lists indent their
// entries one level deeper rather than producing separate blocks.
func collectListItems(n *html.Node, depth int) []listEntry {
	var items []listEntry
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}

		if t := normalizeSpace(directTextContent(li)); t != "" {
			items = append(items, listEntry{text: t, depth: depth})
		}
		for ch := li.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type == html.ElementNode && (ch.Data == "ul" || ch.Data == "ol") {
				items = append(items, collectListItems(ch, depth+1)...)
			}
		}
	}
	return items
}

// tableRows flattens table rows to pipe-separated text lines.
func tableRows(n *html.Node) []string {
	var rows []string
	var walkRows func(*html.Node)
	walkRows = func(n *html.Node) {
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type == html.ElementNode && ch.Data == "tr" {
				var cells []string
				for cell := ch.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
						cells = append(cells, normalizeSpace(textContent(cell)))
					}
				}
				if len(cells) > 0 {
					rows = append(rows, strings.Join(cells, " | "))
				}
				continue
			}
			walkRows(ch)
		}
	}
	walkRows(n)
	return rows
}

// textContent concatenates all descendant text nodes.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return sb.String()
}

// directTextContent collects text that belongs to this element but not
// to nested list structures.
func directTextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.Data == "ul" || n.Data == "ol") {
			return
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		walk(ch)
	}
	return sb.String()
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
		if a.Namespace != "" && a.Namespace+":"+a.Key == key {
			return a.Val
		}
	}
	return ""
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
