package pathtrie

import (
	"path"
	"strings"
)

// Normalize converts p to the trie's canonical form: forward slashes, cleaned,
// no leading "./" and no leading or trailing "/". The root is "".
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	p = strings.Trim(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// Segments splits a path into its "/"-separated segments. The root has none.
func Segments(p string) []string {
	p = Normalize(p)
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
