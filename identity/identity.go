package identity

import (
	"net/url"
	"strings"
)

// ExtractID pulls a stable listing identifier out of a detail href: the
// itemnum query parameter when present, else the last non-empty path segment.
func ExtractID(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	if i := strings.Index(href, "itemnum="); i >= 0 {
		id := href[i+len("itemnum="):]
		if j := strings.IndexAny(id, "&#"); j >= 0 {
			id = id[:j]
		}
		return id
	}

	path := href
	if u, err := url.Parse(href); err == nil {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return path
}

// Prefixed namespaces an identifier by source so two catalogs can never
// collide in the listing store.
func Prefixed(source, id string) string {
	if id == "" {
		return ""
	}
	if source == "" || strings.HasPrefix(id, source+"-") {
		return id
	}
	return source + "-" + id
}

// ResolveURL makes href absolute against base. Unparseable input is joined
// textually.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	b, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
	}
	if strings.HasPrefix(href, "/") || b.Path == "" || strings.HasSuffix(b.Path, "/") {
		return b.ResolveReference(ref).String()
	}
	// base paths like https://host/sub are directories for our purposes
	b.Path += "/"
	return b.ResolveReference(ref).String()
}
