package lib

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	HashPrefix    = "page_hashes"
	ArchivePrefix = "archive"

	timestampLayout = "20060102-150405"
)

// DeriveKey maps a URL to a flat storage path of the form
// {prefix}/{host}/{decoded path with / as _}_{query with & as _ and = as -}.
func DeriveKey(rawURL, prefix string) (string, error) {
	u, err := url.Parse(escapeStrayPercents(rawURL))
	if err != nil {
		return "", fmt.Errorf("derive key from %q: %w", rawURL, err)
	}

	path := strings.TrimLeft(u.EscapedPath(), "/")
	key := u.Host + "/" + strings.ReplaceAll(unescape(path), "/", "_")

	if u.RawQuery != "" {
		query := unescape(u.RawQuery)
		query = strings.ReplaceAll(query, "&", "_")
		query = strings.ReplaceAll(query, "=", "-")
		key += "_" + query
	}

	if prefix != "" {
		key = prefix + "/" + key
	}
	return key, nil
}

// TimestampedKey appends the write-time suffix to a derived key.
func TimestampedKey(key string, t time.Time) string {
	return key + "_" + t.UTC().Format(timestampLayout)
}

// escapeStrayPercents rewrites each '%' that does not start a valid escape as
// "%25", so that decoding the path later gives back the original '%'.
func escapeStrayPercents(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && !(i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// unescape percent-decodes s without treating '+' as a space. Malformed
// escapes leave s as it was.
func unescape(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
