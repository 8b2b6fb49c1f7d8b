package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	passAuth "github.com/MrEthical07/passAuth"
	"github.com/MrEthical07/passAuth/sessiontoken"
)

// DefaultCookieName is used when [CookieConfig.Name] is empty.
const DefaultCookieName = "passauth_session"

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Manager issues, refreshes and clears session cookies.
type Manager struct {
	engine *passAuth.Engine
	codec  *sessiontoken.Codec
	cookie CookieConfig
	logger *slog.Logger
}

// NewManager returns a Manager. A nil logger discards.
func NewManager(engine *passAuth.Engine, codec *sessiontoken.Codec, cookie CookieConfig, logger *slog.Logger) (*Manager, error) {
	if engine == nil {
		return nil, errors.New("middleware: engine is nil")
	}
	if codec == nil {
		return nil, errors.New("middleware: codec is nil")
	}
	if cookie.Name == "" {
		cookie.Name = DefaultCookieName
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	if cookie.SameSite == 0 {
		cookie.SameSite = http.SameSiteLaxMode
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{engine: engine, codec: codec, cookie: cookie, logger: logger}, nil
}

type sessionContextKey struct{}

// SessionFromContext returns the snapshot stored by [Manager.Session].
func SessionFromContext(ctx context.Context) (passAuth.SessionSnapshot, bool) {
	snap, ok := ctx.Value(sessionContextKey{}).(passAuth.SessionSnapshot)
	return snap, ok
}

// CurrentUser returns the session user, or nil for the guest or when no
// session middleware ran.
func CurrentUser(ctx context.Context) *passAuth.UserRecord {
	snap, ok := SessionFromContext(ctx)
	if !ok || passAuth.IsGuest(snap.CurrentUser) {
		return nil
	}
	return snap.CurrentUser
}

// Session is the middleware. Requests without a valid, unexpired session run
// as the guest; an authenticated session has its expiry extended and its
// cookie re-issued. The client IP and User-Agent are attached to the context
// for throttling and audit.
func (m *Manager) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := passAuth.WithClientIP(r.Context(), clientIP(r))
		ctx = passAuth.WithUserAgent(ctx, r.UserAgent())

		snap, hadCookie := m.read(r)
		if m.engine.SessionExpired(snap) {
			m.logger.DebugContext(ctx, "session expired", slog.Int64("user_id", snap.CurrentUser.ID))
			snap = passAuth.SessionSnapshot{}
		}

		snap = m.engine.UpdateSessionExpiry(snap)
		switch {
		case !passAuth.IsGuest(snap.CurrentUser):
			if err := m.write(w, snap); err != nil {
				m.logger.ErrorContext(ctx, "session encode failed", slog.String("error", err.Error()))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
		case hadCookie:
			m.Clear(w)
		}

		ctx = context.WithValue(ctx, sessionContextKey{}, snap)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects guest requests with 401. It must run after Session.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r.Context()) == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Issue starts a fresh session for user and sets the cookie. Call it after a
// successful SignIn.
func (m *Manager) Issue(w http.ResponseWriter, user passAuth.UserRecord) (passAuth.SessionSnapshot, error) {
	snap := m.engine.UpdateSessionExpiry(passAuth.SessionSnapshot{CurrentUser: &user})
	if err := m.write(w, snap); err != nil {
		return passAuth.SessionSnapshot{}, err
	}
	return snap, nil
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     m.cookie.Path,
		Domain:   m.cookie.Domain,
		MaxAge:   -1,
		Secure:   m.cookie.Secure,
		HttpOnly: true,
		SameSite: m.cookie.SameSite,
	})
}

func (m *Manager) read(r *http.Request) (passAuth.SessionSnapshot, bool) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		c, err := r.Cookie(m.cookie.Name)
		if err != nil || c.Value == "" {
			return passAuth.SessionSnapshot{}, false
		}
		token = c.Value
	}

	snap, err := m.codec.Decode(token)
	if err != nil {
		m.logger.DebugContext(r.Context(), "session token rejected", slog.String("error", err.Error()))
		return passAuth.SessionSnapshot{}, true
	}
	return snap, true
}

func (m *Manager) write(w http.ResponseWriter, snap passAuth.SessionSnapshot) error {
	token, err := m.codec.Encode(snap)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    token,
		Path:     m.cookie.Path,
		Domain:   m.cookie.Domain,
		Expires:  snap.ExpiresAt,
		Secure:   m.cookie.Secure,
		HttpOnly: true,
		SameSite: m.cookie.SameSite,
	})
	return nil
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
