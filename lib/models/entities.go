package models

// ListingRecord is one inventory item found on a results page. Raw is always set;
// the remaining fields are filled in by the decoder.
type ListingRecord struct {
	Raw     string
	Name    string
	Price   string
	URL     string
	Mileage string
}

// DiffResult compares the listings of two snapshots.
type DiffResult struct {
	Added   []string
	Removed []string
	Updated []string
}

func (d DiffResult) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Updated) == 0
}
