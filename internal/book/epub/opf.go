package epub

import (
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"

	"github.com/lecternapp/lectern/internal/book"
)

const containerPath = "META-INF/container.xml"

type manifestItem struct {
	href      string
	mediaType string
}

// opfPackage is the parsed package document, reduced to what the
// reader consumes.
type opfPackage struct {
	baseDir  string
	meta     book.Metadata
	manifest map[string]manifestItem
	spine    []string
	tocHref  string
}

// parseContainer reads META-INF/container.xml and returns the package
// document path.
func parseContainer(d *Document) (string, error) {
	data, err := d.readFile(containerPath)
	if err != nil {
		return "", ErrNoContainer
	}

	doc := newXMLDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", ErrNoContainer
	}

	// The first rootfile with the package media type wins; readers in
	// the wild accept a missing media-type attribute.
	for _, el := range doc.FindElements("//rootfile") {
		mt := el.SelectAttrValue("media-type", "")
		if mt != "" && mt != "application/oebps-package+xml" {
			continue
		}
		if fullPath := el.SelectAttrValue("full-path", ""); fullPath != "" {
			return fullPath, nil
		}
	}
	return "", ErrNoContainer
}

// parseOPF reads the package document at opfPath.
func parseOPF(d *Document, opfPath string) (*opfPackage, error) {
	data, err := d.readFile(opfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOPF, opfPath)
	}

	doc := newXMLDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, ErrInvalidOPF
	}

	root := doc.Root()
	if root == nil || root.Tag != "package" {
		return nil, ErrInvalidOPF
	}

	baseDir := path.Dir(opfPath)
	if baseDir == "." {
		baseDir = ""
	}

	pkg := &opfPackage{
		baseDir:  baseDir,
		manifest: make(map[string]manifestItem),
	}

	var tocID string
	for _, section := range root.ChildElements() {
		switch section.Tag {
		case "metadata":
			pkg.meta = parseMetadata(section)
		case "manifest":
			for _, item := range section.ChildElements() {
				if item.Tag != "item" {
					continue
				}
				id := item.SelectAttrValue("id", "")
				if id == "" {
					continue
				}
				pkg.manifest[id] = manifestItem{
					href:      item.SelectAttrValue("href", ""),
					mediaType: item.SelectAttrValue("media-type", ""),
				}
			}
		case "spine":
			tocID = section.SelectAttrValue("toc", "")
			for _, ref := range section.ChildElements() {
				if ref.Tag != "itemref" {
					continue
				}
				if idref := ref.SelectAttrValue("idref", ""); idref != "" {
					pkg.spine = append(pkg.spine, idref)
				}
			}
		}
	}

	pkg.tocHref = findNCX(pkg, tocID)
	return pkg, nil
}

// parseMetadata pulls the Dublin Core fields out of the metadata
// section. Elements are matched by local tag so dc: and unprefixed
// variants both work.
func parseMetadata(section *etree.Element) book.Metadata {
	var meta book.Metadata
	for _, el := range section.ChildElements() {
		text := strings.TrimSpace(el.Text())
		if text == "" {
			continue
		}
		switch el.Tag {
		case "title":
			if meta.Title == "" {
				meta.Title = text
			}
		case "creator":
			if meta.Author == "" {
				meta.Author = text
			} else {
				meta.Author += ", " + text
			}
		case "language":
			if meta.Language == "" {
				meta.Language = text
			}
		case "identifier":
			if meta.Identifier == "" {
				meta.Identifier = text
			}
		case "publisher":
			if meta.Publisher == "" {
				meta.Publisher = text
			}
		}
	}
	return meta
}

// findNCX locates the NCX document: the spine toc attribute when set,
// otherwise the first manifest item with the NCX media type.
func findNCX(pkg *opfPackage, tocID string) string {
	if tocID != "" {
		if item, ok := pkg.manifest[tocID]; ok {
			return resolveHref(pkg.baseDir, item.href)
		}
	}
	for _, item := range pkg.manifest {
		if item.mediaType == "application/x-dtbncx+xml" {
			return resolveHref(pkg.baseDir, item.href)
		}
	}
	return ""
}

// newXMLDocument returns an etree document configured to tolerate the
// malformed XML that real-world books ship with.
func newXMLDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		Permissive: true,
	}
	return doc
}
