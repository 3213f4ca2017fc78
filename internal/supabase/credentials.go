package supabase

import (
	"os"
	"strings"
	"unicode"
)

// CredentialResolver returns the service key for a remote project
// reference.  ok is false when no key is configured.
type CredentialResolver interface {
	ServiceKey(ref string) (key string, ok bool)
}

// EnvCredentials reads SERVICE_KEY_<REF> from the process environment on
// every call, so rotated keys take effect without a restart.
type EnvCredentials struct {
	Prefix string // defaults to "SERVICE_KEY_"
}

func (e EnvCredentials) ServiceKey(ref string) (string, bool) {
	if strings.TrimSpace(ref) == "" {
		return "", false
	}
	v := strings.TrimSpace(os.Getenv(e.EnvName(ref)))
	return v, v != ""
}

// EnvName returns the variable consulted for ref.
func (e EnvCredentials) EnvName(ref string) string {
	prefix := e.Prefix
	if prefix == "" {
		prefix = "SERVICE_KEY_"
	}
	name := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, strings.TrimSpace(ref))
	return prefix + name
}

// StaticCredentials is a fixed ref -> key map.
type StaticCredentials map[string]string

func (s StaticCredentials) ServiceKey(ref string) (string, bool) {
	v, ok := s[ref]
	return v, ok && v != ""
}
