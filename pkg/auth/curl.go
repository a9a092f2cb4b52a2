package auth

import (
	"fmt"
	"regexp"
	"strings"
)

// curl header patterns. Values may be single or double quoted; the closing
// quote must match the opening one so JSON values survive single quoting.
var (
	bearerHeader  = headerPattern(`authorization:\s*Bearer\s+`)
	browserHeader = headerPattern(`browser-token:\s*`)
	deviceHeader  = headerPattern(`device-id:\s*`)
)

func headerPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:-H|--header)\s+(?:'` + prefix + `([^']+)'|"` + prefix + `([^"]+)")`)
}

// LooksLikeCurl reports whether text is plausibly a copied curl command
func LooksLikeCurl(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "curl")
}

// ParseCurl extracts the credential tuple from a browser "Copy as cURL"
// command. The error names every header that could not be found.
func ParseCurl(text string) (*Tuple, error) {
	t := &Tuple{
		Bearer:       firstGroup(bearerHeader, text),
		BrowserToken: firstGroup(browserHeader, text),
		DeviceID:     firstGroup(deviceHeader, text),
	}

	var missing []string
	if t.Bearer == "" {
		missing = append(missing, "authorization")
	}
	if t.BrowserToken == "" {
		missing = append(missing, "browser-token")
	}
	if t.DeviceID == "" {
		missing = append(missing, "device-id")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: curl command is missing %s header(s)", ErrInvalidCredentials, strings.Join(missing, ", "))
	}

	return t, nil
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[2])
}
