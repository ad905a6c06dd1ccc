package lib

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fiffu/listingwatch/lib/models"
)

const (
	NameKey = "item"
	URLKey  = "itemUrl"

	DefaultName  = "Unknown"
	DefaultPrice = "Price not available"
	NoItemData   = "No valid item data to format."
)

// PriceKeys are consulted in order; the first present, non-empty value wins.
var PriceKeys = []string{"bestPrice", "salePrice", "price", "msrp"}

var (
	mileagePattern = regexp.MustCompile(`(?i)mileage\s*:?\s*(\d[\d,]*)`)

	errNoObject     = errors.New("no embedded object")
	errTrailingData = errors.New("trailing data after object")
)

// ObjectExtractor pulls a structured value out of free text.
type ObjectExtractor interface {
	ExtractObject(text string) (map[string]any, error)
}

// BraceExtractor treats everything from the first '{' to the last '}' as a JSON object.
type BraceExtractor struct{}

func (BraceExtractor) ExtractObject(text string) (map[string]any, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, &DecodeError{What: "embedded object", Err: errNoObject}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text[start : end+1])))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, &DecodeError{What: "embedded object", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &DecodeError{What: "embedded object", Err: errTrailingData}
	}
	return obj, nil
}

// ExtractEmbeddedObject uses the default BraceExtractor.
func ExtractEmbeddedObject(text string) (map[string]any, error) {
	return BraceExtractor{}.ExtractObject(text)
}

type Decoder struct {
	Extractor ObjectExtractor
}

var defaultDecoder = &Decoder{Extractor: BraceExtractor{}}

// DecodeListing decodes a raw listing with the default decoder.
func DecodeListing(raw string) (*models.ListingRecord, error) {
	return defaultDecoder.Decode(raw)
}

// Decode builds a ListingRecord from raw listing text. It returns a nil record
// and a *DecodeError when no structured data can be found.
func (d *Decoder) Decode(raw string) (*models.ListingRecord, error) {
	obj, err := d.Extractor.ExtractObject(raw)
	if err != nil {
		return nil, err
	}

	rec := &models.ListingRecord{
		Raw:     raw,
		Name:    stringField(obj, NameKey),
		Price:   firstPresent(obj, PriceKeys),
		URL:     withScheme(stringField(obj, URLKey)),
		Mileage: ExtractMileage(raw),
	}
	if rec.Name == "" {
		rec.Name = DefaultName
	}
	if rec.Price == "" {
		rec.Price = DefaultPrice
	}
	return rec, nil
}

// ExtractMileage finds the mileage in raw listing text and formats it with
// thousands separators. It returns "" when there is none.
func ExtractMileage(raw string) string {
	m := mileagePattern.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	miles, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	if err != nil {
		return ""
	}
	return humanize.Comma(miles)
}

// FormatListing renders a record for chat delivery.
func FormatListing(rec *models.ListingRecord) string {
	if rec == nil {
		return NoItemData
	}

	price := rec.Price
	if rec.Mileage != "" {
		price += " Milage: " + rec.Mileage
	}
	return fmt.Sprintf("**%s**\nPrice: %s\n[Link](%s)", rec.Name, price, rec.URL)
}

func firstPresent(obj map[string]any, keys []string) string {
	for _, key := range keys {
		if v := stringField(obj, key); v != "" {
			return v
		}
	}
	return ""
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func withScheme(url string) string {
	if strings.HasPrefix(url, "http") {
		return url
	}
	return "https:" + url
}
