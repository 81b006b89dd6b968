package server

import (
	"net/http"
	"time"
)

// CookieName carries the chat session id for browser clients.
const CookieName = "support_session"

// defaultCookieTTL is used when the server runs without a session TTL.
const defaultCookieTTL = 15 * time.Minute

// setSessionCookie hands the session id to the browser for as long as the
// store keeps an idle session alive.
func (s *Server) setSessionCookie(w http.ResponseWriter, sid string) {
	ttl := s.cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultCookieTTL
	}
	http.SetCookie(w, sessionCookieFor(sid, int(ttl.Seconds())))
}

// clearSessionCookie expires the cookie once a session has ended.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookieFor("", -1))
}

func sessionCookieFor(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// sessionCookie returns the session id from the request cookie, or "".
func sessionCookie(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
