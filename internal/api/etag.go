package api

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// etagFor fingerprints an encoded document as a weak ETag.
func etagFor(body []byte) string {
	return fmt.Sprintf(`W/"%016x"`, xxhash.Sum64(body))
}

// matchesETag reports whether an If-None-Match header value covers etag.
func matchesETag(ifNoneMatch, etag string) bool {
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
