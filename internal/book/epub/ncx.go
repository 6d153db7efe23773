package epub

import (
	"path"
	"strings"
)

// applyNCXTitles reads the NCX document and fills chapter titles on the
// spine. Failures leave titles empty; the reader falls back to chapter
// numbers.
func applyNCXTitles(d *Document, ncxPath string) {
	data, err := d.readFile(ncxPath)
	if err != nil {
		return
	}

	doc := newXMLDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return
	}

	// href (fragment stripped) -> first navPoint label seen for it
	titles := make(map[string]string)
	baseDir := path.Dir(ncxPath)
	if baseDir == "." {
		baseDir = ""
	}

	for _, np := range doc.FindElements("//navPoint") {
		content := np.SelectElement("content")
		if content == nil {
			continue
		}
		src := content.SelectAttrValue("src", "")
		if src == "" {
			continue
		}
		src, _, _ = strings.Cut(src, "#")
		href := resolveHref(baseDir, src)

		label := np.SelectElement("navLabel")
		if label == nil {
			continue
		}
		text := label.SelectElement("text")
		if text == nil {
			continue
		}
		title := strings.TrimSpace(text.Text())
		if title == "" {
			continue
		}
		if _, seen := titles[href]; !seen {
			titles[href] = title
		}
	}

	for i := range d.spine {
		if title, ok := titles[d.spine[i].href]; ok {
			d.spine[i].title = title
		}
	}
}
