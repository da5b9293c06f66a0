package neo4j

import (
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Connection string keys. Keys are case-insensitive.
const (
	csHost     = "host"
	csUsername = "username"
	csPassword = "password"
	csRealm    = "realm"
	csBearer   = "bearer"
	csKerberos = "kerberos"
	csDatabase = "database"
)

// defaultScheme is used when the host value carries no URI scheme.
const defaultScheme = "neo4j://"

var knownKeys = map[string]bool{
	csHost:     true,
	csUsername: true,
	csPassword: true,
	csRealm:    true,
	csBearer:   true,
	csKerberos: true,
	csDatabase: true,
}

// AuthKind identifies the authentication scheme of an AuthToken.
type AuthKind int

const (
	AuthNone AuthKind = iota
	AuthBasic
	AuthBearer
	AuthKerberos
)

// String returns the scheme name as used by the driver.
func (k AuthKind) String() string {
	switch k {
	case AuthBasic:
		return "basic"
	case AuthBearer:
		return "bearer"
	case AuthKerberos:
		return "kerberos"
	default:
		return "none"
	}
}

// AuthToken is the credential bundle resolved from a connection string.
type AuthToken struct {
	Kind AuthKind

	// Username, Password and Realm are set for AuthBasic.
	Username string
	Password string
	Realm    string

	// Token is the bearer token or the base64 Kerberos ticket.
	Token string
}

// DriverToken converts the token to the driver's representation.
func (a AuthToken) DriverToken() neo4j.AuthToken {
	switch a.Kind {
	case AuthBasic:
		return neo4j.BasicAuth(a.Username, a.Password, a.Realm)
	case AuthBearer:
		return neo4j.BearerAuth(a.Token)
	case AuthKerberos:
		return neo4j.KerberosAuth(a.Token)
	default:
		return neo4j.NoAuth()
	}
}

// Connection is a parsed connection string.
type Connection struct {
	// Host is the value of the host key, verbatim.
	Host string

	// Auth holds the resolved credentials.
	Auth AuthToken

	// Database is the default database for queries. Empty means the
	// server's default database.
	Database string
}

// Target returns the URI the driver connects to. A host without a scheme
// is addressed with the neo4j:// scheme.
func (c Connection) Target() string {
	if strings.Contains(c.Host, "://") {
		return c.Host
	}
	return defaultScheme + c.Host
}

// ParseConnectionString parses a ";"-separated list of key=value pairs.
//
// Recognized keys (case-insensitive): host, username, password, realm,
// bearer, kerberos, database. The host key is required.
//
// Credentials are resolved in a fixed order and the first match wins:
//  1. username and password -> basic
//  2. bearer                -> bearer
//  3. kerberos              -> kerberos
//  4. otherwise             -> none
//
// Example:
//
//	conn, err := sentinelneo4j.ParseConnectionString(
//	    "Host=bolt://localhost:7687;Username=neo4j;Password=secret",
//	)
func ParseConnectionString(s string) (Connection, error) {
	values, err := splitPairs(s)
	if err != nil {
		return Connection{}, err
	}

	host := values[csHost]
	if host == "" {
		return Connection{}, fmt.Errorf("%w: must contain a 'host' property", ErrFormat)
	}

	return Connection{
		Host:     host,
		Auth:     resolveAuth(values),
		Database: values[csDatabase],
	}, nil
}

// resolveAuth applies the credential precedence.
func resolveAuth(values map[string]string) AuthToken {
	username, password := values[csUsername], values[csPassword]

	switch {
	case username != "" && password != "":
		return AuthToken{
			Kind:     AuthBasic,
			Username: username,
			Password: password,
			Realm:    values[csRealm],
		}
	case values[csBearer] != "":
		return AuthToken{Kind: AuthBearer, Token: values[csBearer]}
	case values[csKerberos] != "":
		return AuthToken{Kind: AuthKerberos, Token: values[csKerberos]}
	default:
		return AuthToken{Kind: AuthNone}
	}
}

// splitPairs splits s into lower-cased keys and trimmed values.
// A repeated key keeps its last value.
func splitPairs(s string) (map[string]string, error) {
	values := make(map[string]string)

	for _, segment := range strings.Split(s, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		key, value, ok := strings.Cut(segment, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: segment %q is not a key=value pair", ErrFormat, redactSegment(segment))
		}
		if !knownKeys[key] {
			return nil, fmt.Errorf("%w: unknown key %q", ErrFormat, key)
		}

		values[key] = strings.TrimSpace(value)
	}

	return values, nil
}

// redactSegment keeps malformed segments out of error messages when they
// could be a credential.
func redactSegment(segment string) string {
	if len(segment) > 4 {
		return segment[:4] + "…"
	}
	return segment
}
