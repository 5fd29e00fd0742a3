package server

import (
	"net/http"

	"github.com/google/uuid"
)

// visitorCookie identifies a visitor's preferences across page loads.
const visitorCookie = "folio-visitor"

// visitor returns the visitor id from the cookie, issuing a new one if it is missing or malformed.
func (s *Server) visitor(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(visitorCookie); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60, // 1 year
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	// make the id visible to later lookups in the same request
	r.AddCookie(&http.Cookie{Name: visitorCookie, Value: id})
	return id
}
