package models

import (
	"crypto/sha256"
	"fmt"
)

// Fingerprint is the hex digest of a page's normalized text.
type Fingerprint string

func DigestContent(content string) Fingerprint {
	return Fingerprint(fmt.Sprintf("%x", sha256.Sum256([]byte(content))))
}
