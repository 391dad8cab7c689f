package wire

import "github.com/ryanbekhen/proxyd/internal/wireutil"

// headerEntry pairs a header's original-case name with its value. Headers
// preserve the first-seen casing of a name and the last-seen value on
// duplicates, per RFC 7230 §3.2.2.
type headerEntry struct {
	Name  string
	Value string
}

// Headers is a mapping from lowercased header name to the pair of
// (original-case name, value). Unlike net/textproto's canonicalization,
// this never rewrites the wire casing a client or server actually sent —
// the rewritten request (HttpParser.Build) must reproduce it.
type Headers struct {
	entries map[string]headerEntry
	// order preserves insertion order for deterministic Build output; the
	// spec doesn't require it, but it's cheap and makes output stable.
	order []string
}

// NewHeaders returns an empty Headers map.
func NewHeaders() *Headers {
	return &Headers{entries: make(map[string]headerEntry, 8)}
}

// Set records name/value, keyed by the lowercased name. The first-seen
// casing of name is kept even if a later Set uses different casing; the
// value is always replaced.
func (h *Headers) Set(name, value string) {
	key := wireutil.ToLower([]byte(name))
	if existing, ok := h.entries[key]; ok {
		existing.Value = value
		h.entries[key] = existing
		return
	}
	h.entries[key] = headerEntry{Name: name, Value: value}
	h.order = append(h.order, key)
}

// Get returns the value and original-case name for a header looked up
// case-insensitively, and whether it was present.
func (h *Headers) Get(name string) (value string, originalName string, ok bool) {
	key := wireutil.ToLower([]byte(name))
	e, found := h.entries[key]
	if !found {
		return "", "", false
	}
	return e.Value, e.Name, true
}

// Value is a convenience wrapper around Get that discards the casing/ok results.
func (h *Headers) Value(name string) string {
	v, _, _ := h.Get(name)
	return v
}

// Has reports whether name is present, case-insensitively.
func (h *Headers) Has(name string) bool {
	_, _, ok := h.Get(name)
	return ok
}

// Del removes name, case-insensitively.
func (h *Headers) Del(name string) {
	key := wireutil.ToLower([]byte(name))
	if _, ok := h.entries[key]; !ok {
		return
	}
	delete(h.entries, key)
	for i, k := range h.order {
		if k == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of distinct headers.
func (h *Headers) Len() int {
	return len(h.entries)
}

// Each calls fn once per header in insertion order, with the original-case
// name and value.
func (h *Headers) Each(fn func(name, value string)) {
	for _, key := range h.order {
		e := h.entries[key]
		fn(e.Name, e.Value)
	}
}

// parseHeaderLine splits a single CRLF-stripped header line into its
// original-case name and OWS-trimmed value, per
// "NAME ':' OWS VALUE OWS" (RFC 7230 §3.2).
func parseHeaderLine(line []byte) (name, value string, ok bool) {
	colon := -1
	for i, c := range line {
		if c == ':' {
			colon = i
			break
		}
	}
	if colon <= 0 {
		return "", "", false
	}
	name = string(line[:colon])
	value = string(trimOWS(line[colon+1:]))
	return name, value, true
}

func trimOWS(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}
