package sip

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type uriFSM func(uri *Uri, s string) (uriFSM, string, error)

// ParseURI converts a string representation of a URI into uri.
// Follows RFC 3261 §19.1.1: sip:user:password@host:port;uri-parameters?headers
func ParseURI(uriStr string, uri *Uri) error {
	if len(uriStr) == 0 {
		return errors.New("empty URI")
	}

	var err error
	state := uriStateScheme
	str := uriStr
	for state != nil {
		state, str, err = state(uri, str)
		if err != nil {
			return err
		}
	}
	return nil
}

// ParseURIs is the parse_uris(bytes) external contract used by the
// URI-set normalizer: a comma-separated list of URIs in a single string,
// each parsed independently. A leaf that fails to parse is dropped rather
// than aborting the whole list, matching RFC 3261's tolerant handling of
// a single bad Contact/Route entry; the empty-string/whole-string failure
// case is handled by the normalizer, not here.
func ParseURIs(s string) []Uri {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var out []Uri
	for _, part := range splitTopLevelComma(s) {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "<")
		part = strings.TrimSuffix(part, ">")
		if part == "" {
			continue
		}
		var u Uri
		if err := ParseURI(part, &u); err != nil {
			continue
		}
		out = append(out, u)
	}
	return out
}

// splitTopLevelComma splits on commas that are not inside angle brackets or
// quotes, since a URI's headers part may itself legally contain a comma.
func splitTopLevelComma(s string) []string {
	var parts []string
	depth := 0
	inQuotes := false
	start := 0
	for i, c := range s {
		switch c {
		case '"':
			inQuotes = !inQuotes
		case '<':
			if !inQuotes {
				depth++
			}
		case '>':
			if !inQuotes && depth > 0 {
				depth--
			}
		case ',':
			if !inQuotes && depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func uriStateScheme(uri *Uri, s string) (uriFSM, string, error) {
	colInd := strings.IndexByte(s, ':')
	if colInd == -1 {
		return nil, "", fmt.Errorf("missing protocol scheme")
	}

	scheme := strings.ToLower(s[:colInd])
	if err := validateScheme(scheme); err != nil {
		return nil, "", err
	}
	uri.Encrypted = scheme == "sips"

	return uriStateUser, s[colInd+1:], nil
}

func uriStateUser(uri *Uri, s string) (uriFSM, string, error) {
	var userEnd int
	for i, c := range s {
		if c == ':' {
			userEnd = i
		}
		if c == '@' {
			if userEnd > 0 {
				uri.User = s[:userEnd]
				uri.Password = s[userEnd+1 : i]
			} else {
				uri.User = s[:i]
			}
			return uriStateHost, s[i+1:], nil
		}
	}
	return uriStateHost, s, nil
}

func uriStateHost(uri *Uri, s string) (uriFSM, string, error) {
	if len(s) > 0 && s[0] == '[' {
		end := strings.IndexByte(s, ']')
		if end == -1 {
			return nil, "", errors.New("unterminated IPv6 reference in host")
		}
		uri.Host = s[:end+1]
		rest := s[end+1:]
		if len(rest) == 0 {
			return uriStateParams, "", nil
		}
		switch rest[0] {
		case ':':
			return uriStatePort, rest[1:], nil
		case ';':
			return uriStateParams, rest[1:], nil
		case '?':
			return uriStateHeaders, rest[1:], nil
		}
		return nil, "", fmt.Errorf("unexpected character after IPv6 reference: %q", rest[0])
	}

	for i, c := range s {
		switch c {
		case ':':
			uri.Host = s[:i]
			return uriStatePort, s[i+1:], nil
		case ';':
			uri.Host = s[:i]
			return uriStateParams, s[i+1:], nil
		case '?':
			uri.Host = s[:i]
			return uriStateHeaders, s[i+1:], nil
		}
	}
	uri.Host = s
	uri.Wildcard = s == "*"
	return uriStateParams, "", nil
}

func uriStatePort(uri *Uri, s string) (uriFSM, string, error) {
	var err error
	for i, c := range s {
		switch c {
		case ';':
			uri.Port, err = strconv.Atoi(s[:i])
			return uriStateParams, s[i+1:], err
		case '?':
			uri.Port, err = strconv.Atoi(s[:i])
			return uriStateHeaders, s[i+1:], err
		}
	}
	uri.Port, err = strconv.Atoi(s)
	return nil, s, err
}

func uriStateParams(uri *Uri, s string) (uriFSM, string, error) {
	uri.UriParams = NewParams()
	uri.Headers = NewParams()
	if len(s) == 0 {
		return nil, s, nil
	}

	n, err := UnmarshalParams(s, ';', '?', uri.UriParams)
	if err != nil {
		return nil, s, err
	}
	if n >= len(s) || s[n] != '?' {
		return nil, s, nil
	}
	return uriStateHeaders, s[n+1:], nil
}

func uriStateHeaders(uri *Uri, s string) (uriFSM, string, error) {
	if uri.Headers == nil {
		uri.Headers = NewParams()
	}
	_, err := UnmarshalParams(s, '&', 0, uri.Headers)
	return nil, s, err
}

// validateScheme accepts only the "sip" and "sips" schemes; any other scheme,
// even one matching ALPHA *(ALPHA / DIGIT / "+" / "-" / "."), is rejected.
func validateScheme(scheme string) error {
	if len(scheme) == 0 {
		return errors.New("no scheme found")
	}
	if scheme != "sip" && scheme != "sips" {
		return fmt.Errorf("unsupported scheme: %q", scheme)
	}
	for _, c := range scheme {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '+' && c != '-' && c != '.' {
			return fmt.Errorf("invalid scheme: %q is not allowed", c)
		}
	}
	return nil
}
