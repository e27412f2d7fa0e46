// Package credentials holds the access, refresh and identity strings of the
// signed-in user. A Store serializes access to a durable Repo so every
// component observes the same values; nothing else writes them.
package credentials

// Field names one of the persisted credential values. The string value is the
// key used in the backing Repo.
type Field string

const (
	FieldAccess   Field = "access"
	FieldRefresh  Field = "refresh"
	FieldIdentity Field = "identity"
)

// Fields lists every persisted key.
var Fields = []Field{FieldAccess, FieldRefresh, FieldIdentity}

// Credential is the token pair returned by login or signup.
type Credential struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	Identity string `json:"identity,omitempty"`
}

// IsZero reports whether no token is present (logged out).
func (c Credential) IsZero() bool {
	return c.Access == "" && c.Refresh == ""
}
