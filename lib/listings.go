package lib

import (
	"github.com/antchfx/htmlquery"
)

const ResultsContainerClass = "search-results-list"

// ListingPanelClasses must all be present on an element for it to count as a listing.
var ListingPanelClasses = []string{"vehicle-listing", "panel"}

// ExtractListings returns the text of every listing panel inside the results
// container, in document order. A page without the container has no listings.
func ExtractListings(doc []byte) ([]string, error) {
	root, err := parseDocument(doc)
	if err != nil {
		return nil, err
	}

	container := htmlquery.FindOne(root, "//*"+hasClasses(ResultsContainerClass))
	if container == nil {
		return []string{}, nil
	}

	panels := htmlquery.Find(container, ".//*"+hasClasses(ListingPanelClasses...))
	listings := make([]string, 0, len(panels))
	for _, panel := range panels {
		listings = append(listings, digForText(panel))
	}
	return listings, nil
}
