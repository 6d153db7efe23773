package epub

import (
	"strings"

	"github.com/lecternapp/lectern/internal/book"
)

// checkEncryption rejects DRM-protected containers. Adobe ADEPT books
// carry META-INF/rights.xml and are always rejected. encryption.xml is
// inspected: font obfuscation alone is fine, encrypted content files
// are not. An unparsable encryption.xml is treated as DRM.
func checkEncryption(d *Document) error {
	if _, ok := d.files["META-INF/rights.xml"]; ok {
		return book.ErrEncrypted
	}

	data, err := d.readFile("META-INF/encryption.xml")
	if err != nil {
		// No encryption manifest at all.
		return nil
	}

	doc := newXMLDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return book.ErrEncrypted
	}

	for _, ed := range doc.FindElements("//EncryptedData") {
		method := ed.FindElement(".//EncryptionMethod")
		if method != nil && isFontObfuscation(method.SelectAttrValue("Algorithm", "")) {
			continue
		}

		ref := ed.FindElement(".//CipherReference")
		if ref == nil {
			continue
		}
		if isContentURI(ref.SelectAttrValue("URI", "")) {
			return book.ErrEncrypted
		}
	}
	return nil
}

// isFontObfuscation reports whether the algorithm is one of the
// standard font mangling schemes, which are not DRM.
func isFontObfuscation(algorithm string) bool {
	return (strings.Contains(algorithm, "adobe.com") || strings.Contains(algorithm, "idpf.org")) &&
		strings.Contains(algorithm, "obfuscation")
}

// isContentURI reports whether an encrypted resource is a content file
// rather than a font or image.
func isContentURI(uri string) bool {
	uri = strings.ToLower(uri)
	for _, ext := range []string{".xhtml", ".html", ".htm", ".xml", ".css"} {
		if strings.HasSuffix(uri, ext) {
			return true
		}
	}
	return false
}
