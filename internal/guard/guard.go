package guard

import (
	"net/url"
	"strings"

	"github.com/nextstep/nextstep-bff/internal/domain"
	"github.com/nextstep/nextstep-bff/internal/session"
)

// LoginPath is the login entry point unauthenticated visitors are sent to.
const LoginPath = "/auth"

type Outcome int

const (
	Allow Outcome = iota
	Loading
	RedirectLogin
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "allow"
	}
}

// State is what the guard needs to know about a session.
type State struct {
	Ready bool
	User  *domain.User
}

func StateOf(st *session.Store) State {
	if st == nil {
		return State{Ready: true}
	}
	s := State{Ready: st.Ready()}
	if u, ok := st.User(); ok && st.IsAuthenticated() {
		s.User = &u
	}
	return s
}

type Decision struct {
	Outcome  Outcome
	Location string // redirect target
	From     string // requested location, kept for the post-login return
}

// Decide gates requestedURI for required roles. An empty required set admits
// any authenticated user.
func Decide(state State, required []domain.Role, requestedURI string) Decision {
	if !state.Ready {
		return Decision{Outcome: Loading}
	}
	if state.User == nil {
		return Decision{
			Outcome:  RedirectLogin,
			Location: LoginURL(requestedURI),
			From:     requestedURI,
		}
	}
	if len(required) == 0 || hasRole(required, state.User.Role) {
		return Decision{Outcome: Allow}
	}

	home := state.User.Role.LandingPath()
	if samePath(requestedURI, home) {
		return Decision{Outcome: Allow}
	}
	return Decision{Outcome: RedirectHome, Location: home}
}

// DecidePublic handles the routes outside the guarded table: the login page
// sends signed-in users home, and the root picks home or login.
func DecidePublic(state State, requestedURI string) Decision {
	p := pathOf(requestedURI)
	if p != LoginPath && p != "/" {
		return Decision{Outcome: Allow}
	}
	if !state.Ready {
		return Decision{Outcome: Loading}
	}
	if state.User != nil {
		return Decision{Outcome: RedirectHome, Location: state.User.Role.LandingPath()}
	}
	if p == "/" {
		return Decision{Outcome: RedirectLogin, Location: LoginPath}
	}
	return Decision{Outcome: Allow}
}

// LoginURL is the login path with the requested location as next.
func LoginURL(requestedURI string) string {
	if requestedURI == "" || requestedURI == "/" || pathOf(requestedURI) == LoginPath {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(requestedURI)
}

// SafeNext returns next when it is a local path, else "".
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	return next
}

func hasRole(roles []domain.Role, r domain.Role) bool {
	for _, have := range roles {
		if have == r {
			return true
		}
	}
	return false
}

func pathOf(uri string) string {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	if len(uri) > 1 {
		uri = strings.TrimRight(uri, "/")
	}
	return uri
}

func samePath(uri, path string) bool {
	return pathOf(uri) == pathOf(path)
}
