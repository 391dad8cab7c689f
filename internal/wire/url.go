package wire

import (
	"strconv"
	"strings"
)

// URLForm tags which of the three RFC 7230 §5.3 request-target syntaxes a
// ParsedURL was built from.
type URLForm uint8

const (
	// FormNone means no request target has been parsed yet.
	FormNone URLForm = iota
	// FormAuthority is "host:port", used only by CONNECT.
	FormAuthority
	// FormAbsolute is "scheme://authority/path?query#fragment".
	FormAbsolute
	// FormOrigin is "/path?query#fragment", the form a client sends after CONNECT.
	FormOrigin
)

func (f URLForm) String() string {
	switch f {
	case FormAuthority:
		return "authority"
	case FormAbsolute:
		return "absolute"
	case FormOrigin:
		return "origin"
	default:
		return "none"
	}
}

// ParsedURL represents the tagged variant spec.md §9 describes:
// {None, Authority(host,port), Absolute(scheme,host,port,path,query,fragment),
// Origin(path,query,fragment)}, collapsed into one struct so the Form field
// picks out which members are meaningful.
type ParsedURL struct {
	Form     URLForm
	Scheme   string
	Hostname string
	Port     int // 0 means "not specified"
	Path     string
	Query    string
	Fragment string

	// Raw is the exact bytes of the request target as the client sent it,
	// needed by HttpParser.BuildURL's origin-form passthrough.
	Raw string
}

// ParseRequestTarget parses a request-line target into a ParsedURL,
// recognizing authority-form only when isConnect is set (CONNECT is the
// only method allowed to use it, per RFC 7230 §5.3.3).
func ParseRequestTarget(target string, isConnect bool) (ParsedURL, error) {
	u := ParsedURL{Raw: target}

	if isConnect {
		host, port, err := splitHostPort(target)
		if err != nil {
			return ParsedURL{}, err
		}
		u.Form = FormAuthority
		u.Hostname = host
		u.Port = port
		return u, nil
	}

	if strings.HasPrefix(target, "/") {
		u.Form = FormOrigin
		path, query, fragment := splitPathQueryFragment(target)
		u.Path, u.Query, u.Fragment = path, query, fragment
		return u, nil
	}

	// absolute-form: scheme://host[:port][/path][?query][#fragment]
	schemeEnd := strings.Index(target, "://")
	if schemeEnd == -1 {
		return ParsedURL{}, ErrMalformedRequestTarget
	}
	u.Form = FormAbsolute
	u.Scheme = target[:schemeEnd]
	rest := target[schemeEnd+3:]

	authorityEnd := strings.IndexAny(rest, "/?#")
	var authority string
	var pathPart string
	if authorityEnd == -1 {
		authority = rest
	} else {
		authority = rest[:authorityEnd]
		pathPart = rest[authorityEnd:]
	}

	// Port stays 0 when the authority names no explicit port: the original
	// parser this is ported from (original_source/tests.py's
	// test_get_full_parse) leaves url.port == None for an unport-qualified
	// absolute-form target rather than filling in a scheme default, and
	// session.dialTarget applies spec.md §4.5b's literal "default 80" rule
	// on whatever comes out of here — a scheme-aware default at this layer
	// would pre-empt that rule for https targets.
	host, port, err := splitHostPort(authority)
	if err != nil {
		return ParsedURL{}, err
	}
	u.Hostname = host
	u.Port = port

	u.Path, u.Query, u.Fragment = splitPathQueryFragment(pathPart)
	return u, nil
}

// splitHostPort splits "host:port" or bare "host" into hostname and port.
// Port is 0 when absent; it is required to be present for authority-form
// (CONNECT) callers, who must check u.Port != 0 themselves.
func splitHostPort(hostport string) (host string, port int, err error) {
	if hostport == "" {
		return "", 0, ErrMalformedRequestTarget
	}
	idx := strings.LastIndexByte(hostport, ':')
	if idx == -1 {
		return hostport, 0, nil
	}
	host = hostport[:idx]
	portStr := hostport[idx+1:]
	if portStr == "" {
		return host, 0, nil
	}
	p, perr := strconv.Atoi(portStr)
	if perr != nil || p < 0 || p > 65535 {
		return "", 0, ErrMalformedRequestTarget
	}
	return host, p, nil
}

func splitPathQueryFragment(s string) (path, query, fragment string) {
	if s == "" {
		return "", "", ""
	}
	if h := strings.IndexByte(s, '#'); h != -1 {
		fragment = s[h+1:]
		s = s[:h]
	}
	if q := strings.IndexByte(s, '?'); q != -1 {
		query = s[q+1:]
		s = s[:q]
	}
	path = s
	return path, query, fragment
}
