package lib

import (
	"github.com/antchfx/htmlquery"
	"github.com/fiffu/listingwatch/lib/models"
)

// AdSectionClass marks page regions that rotate between requests.
const AdSectionClass = "ad-section"

var volatileXPaths = []string{
	"//script",
	"//style",
	"//*" + hasClasses(AdSectionClass),
}

// NormalizeText reduces an HTML document to its visible text with scripts,
// styles and ad sections removed.
func NormalizeText(doc []byte) (string, error) {
	root, err := parseDocument(doc)
	if err != nil {
		return "", err
	}
	for _, xpath := range volatileXPaths {
		removeAll(htmlquery.Find(root, xpath))
	}
	return digForText(root), nil
}

// Fingerprint digests the normalized text of an HTML document.
func Fingerprint(doc []byte) (models.Fingerprint, error) {
	text, err := NormalizeText(doc)
	if err != nil {
		return "", err
	}
	return models.DigestContent(text), nil
}
