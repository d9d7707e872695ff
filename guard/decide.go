package guard

import (
	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// Kind selects which side of the session boundary a guard admits.
type Kind uint8

const (
	// Auth admits authenticated users.
	Auth Kind = iota
	// Guest admits unauthenticated users.
	Guest
)

func (k Kind) String() string {
	switch k {
	case Auth:
		return "auth"
	case Guest:
		return "guest"
	default:
		return "unknown"
	}
}

// Status is the outcome of a guard evaluation.
type Status uint8

const (
	Checking Status = iota
	Denied
	Allowed
)

func (s Status) String() string {
	switch s {
	case Checking:
		return "checking"
	case Denied:
		return "denied"
	case Allowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// Decision is a guard verdict. Redirect is set only when Status is Denied.
type Decision struct {
	Status   Status
	Redirect string
}

// DefaultRedirect returns where a denied guard of kind k sends the user
// under cfg.
func DefaultRedirect(k Kind, cfg goAuthClient.RoutesConfig) string {
	if k == Guest {
		return cfg.Dashboard
	}
	return cfg.Login
}

// Decide evaluates kind against st using the default routes.
func Decide(kind Kind, st goAuthClient.State) Decision {
	return DecideWith(kind, st, DefaultRedirect(kind, goAuthClient.DefaultConfig().Routes))
}

// DecideWith evaluates kind against st, redirecting denied users to target.
func DecideWith(kind Kind, st goAuthClient.State, target string) Decision {
	if st.Loading {
		return Decision{Status: Checking}
	}

	admitted := st.Authenticated()
	if kind == Guest {
		admitted = !admitted
	}
	if admitted {
		return Decision{Status: Allowed}
	}
	return Decision{Status: Denied, Redirect: target}
}
