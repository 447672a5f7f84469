package remote

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// sessionJar is a cookie jar that can be emptied on logout while other
// requests may be in flight.
type sessionJar struct {
	mu    sync.RWMutex
	inner *cookiejar.Jar
}

var _ http.CookieJar = (*sessionJar)(nil)

func newSessionJar() (*sessionJar, error) {
	inner, err := newCookieJar()
	if err != nil {
		return nil, err
	}
	return &sessionJar{inner: inner}, nil
}

func newCookieJar() (*cookiejar.Jar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.inner.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.inner.Cookies(u)
}

// Reset drops every stored cookie.
func (j *sessionJar) Reset() error {
	inner, err := newCookieJar()
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.inner = inner
	j.mu.Unlock()
	return nil
}
