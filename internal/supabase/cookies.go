package supabase

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	base64Prefix  = "base64-"
	maxChunkSize  = 3180
	cookieMaxAge  = 400 * 24 * 60 * 60
	expiryMargin  = 10 * time.Second
	cookieNameFmt = "sb-%s-auth-token"
)

type (
	Session struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		ExpiresAt    int64  `json:"expires_at"`
		RefreshToken string `json:"refresh_token"`
		User         *User  `json:"user,omitempty"`
	}

	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role,omitempty"`
	}

	cookieStore struct {
		name    string
		secure  bool
		request map[string]string
		headers http.Header
	}
)

// StorageKey derives the cookie name from the project reference, the first
// label of the service host.
func StorageKey(serviceURL string) string {
	ref := "local"
	if u, err := url.Parse(serviceURL); err == nil && u.Hostname() != "" {
		ref = strings.SplitN(u.Hostname(), ".", 2)[0]
	}
	return fmt.Sprintf(cookieNameFmt, ref)
}

func newCookieStore(name string, secure bool, r *http.Request, headers http.Header) *cookieStore {
	s := &cookieStore{
		name:    name,
		secure:  secure,
		request: make(map[string]string),
		headers: headers,
	}
	if r != nil {
		for _, c := range r.Cookies() {
			s.request[c.Name] = c.Value
		}
	}
	return s
}

// load joins the session cookie, either whole or split into numbered chunks.
func (s *cookieStore) load() (*Session, error) {
	raw, ok := s.request[s.name]
	if !ok {
		var chunks []string
		for i := 0; ; i++ {
			chunk, ok := s.request[s.name+"."+strconv.Itoa(i)]
			if !ok {
				break
			}
			chunks = append(chunks, chunk)
		}
		if len(chunks) == 0 {
			return nil, nil
		}
		raw = strings.Join(chunks, "")
	}

	return decodeSession(raw)
}

// save writes the session and expires chunks left over from a longer value.
func (s *cookieStore) save(session *Session) error {
	value, err := encodeSession(session)
	if err != nil {
		return err
	}

	chunks := chunk(value, maxChunkSize)
	written := make(map[string]bool)
	if len(chunks) == 1 {
		s.set(s.name, chunks[0], cookieMaxAge)
		written[s.name] = true
	} else {
		for i, c := range chunks {
			name := s.name + "." + strconv.Itoa(i)
			s.set(name, c, cookieMaxAge)
			written[name] = true
		}
	}
	for _, name := range s.existing() {
		if !written[name] {
			s.set(name, "", -1)
		}
	}
	return nil
}

func (s *cookieStore) clear() {
	for _, name := range s.existing() {
		s.set(name, "", -1)
	}
}

func (s *cookieStore) existing() []string {
	names := make([]string, 0)
	for name := range s.request {
		if name == s.name || strings.HasPrefix(name, s.name+".") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *cookieStore) set(name, value string, maxAge int) {
	c := http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	s.headers.Add("Set-Cookie", c.String())
	if maxAge < 0 {
		delete(s.request, name)
	} else {
		s.request[name] = value
	}
}

func encodeSession(session *Session) (string, error) {
	b, err := json.Marshal(session)
	if err != nil {
		return "", errors.Wrap(err, "marshal session")
	}
	return base64Prefix + base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeSession(raw string) (*Session, error) {
	var b []byte
	if strings.HasPrefix(raw, base64Prefix) {
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(raw, base64Prefix))
		if err != nil {
			return nil, errors.Wrap(err, "decode session cookie")
		}
		b = decoded
	} else {
		unescaped, err := url.QueryUnescape(raw)
		if err != nil {
			return nil, errors.Wrap(err, "unescape session cookie")
		}
		b = []byte(unescaped)
	}

	session := Session{}
	if err := json.Unmarshal(b, &session); err != nil {
		return nil, errors.Wrap(err, "unmarshal session cookie")
	}
	if session.AccessToken == "" {
		return nil, errors.New("session cookie has no access token")
	}
	return &session, nil
}

func chunk(value string, size int) []string {
	if len(value) <= size {
		return []string{value}
	}
	chunks := make([]string, 0, len(value)/size+1)
	for len(value) > size {
		chunks = append(chunks, value[:size])
		value = value[size:]
	}
	if value != "" {
		chunks = append(chunks, value)
	}
	return chunks
}
