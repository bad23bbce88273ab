package identity

import "net/url"

// Normalize canonicalizes an episode locator to its identity key. Query
// parameters (signed tokens, tracking params) vary between requests for the
// same episode and would fragment the cache and the job dedup, so the key is
// the locator with its query stripped. A locator that does not parse as a
// URL is its own key; Normalize never fails.
func Normalize(locator string) string {
	u, err := url.Parse(locator)
	if err != nil {
		return locator
	}
	u.RawQuery = ""
	u.ForceQuery = false
	return u.String()
}
