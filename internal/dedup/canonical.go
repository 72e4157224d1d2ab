package dedup

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var trackingQueryKeys = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref":     {},
	"ref_src": {},
}

var arxivVersionSuffix = regexp.MustCompile(`^(/abs/\d{4}\.\d{4,5})v\d+$`)

// Canonicalize reduces a candidate URL to its identity key. The reduction is
// idempotent: Canonicalize(Canonicalize(u)) == Canonicalize(u). Unparseable
// or schemeless input returns "".
func Canonicalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	port := parsed.Port()
	parsed.Host = strings.ToLower(parsed.Hostname())
	if port != "" {
		defaultPort := (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443")
		if !defaultPort {
			parsed.Host = parsed.Host + ":" + port
		}
	}

	parsed.Fragment = ""
	path := strings.TrimSpace(parsed.EscapedPath())
	if path == "" {
		path = "/"
	}
	path = strings.ReplaceAll(path, "//", "/")
	if strings.HasSuffix(path, "/") && path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if isArxivHost(parsed.Host) {
		if m := arxivVersionSuffix.FindStringSubmatch(path); m != nil {
			path = m[1]
		}
	}
	parsed.Path = path
	parsed.RawPath = ""

	q := parsed.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			q.Del(key)
			continue
		}
		if _, ok := trackingQueryKeys[lower]; ok {
			q.Del(key)
		}
	}
	if len(q) > 0 {
		keys := make([]string, 0, len(q))
		for key := range q {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		reordered := url.Values{}
		for _, key := range keys {
			values := q[key]
			sort.Strings(values)
			for _, value := range values {
				reordered.Add(key, value)
			}
		}
		parsed.RawQuery = reordered.Encode()
	} else {
		parsed.RawQuery = ""
	}

	return parsed.String()
}

// isArxivHost matches arxiv.org and its mirrors so that paper revisions
// (…/abs/2401.12345v3) collapse to the same identity key.
func isArxivHost(host string) bool {
	return host == "arxiv.org" || strings.HasSuffix(host, ".arxiv.org")
}
