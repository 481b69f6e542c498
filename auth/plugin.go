// Package auth implements the MySQL/MariaDB authentication plugins
// driven by the handshake FSM (§4.4). Grounded on the teacher's auth.go,
// which hand-rolled the native and caching-sha2 hash constructions as
// two free functions; generalized here into a small Plugin interface
// plus a name-keyed registry (§9 design notes: "replace class-load-time
// singletons with an explicit registry keyed by plugin name").
package auth

// Context carries everything a plugin might need across the handshake:
// the password, the server-provided salt/scramble, whether the
// transport is currently secure (TLS or a Unix socket), and a callback
// to fetch the server's RSA public key on demand (sha256_password,
// caching_sha2_password full-auth).
type Context struct {
	Password       string
	Salt           []byte
	Secure         bool
	FetchPublicKey func() ([]byte, error)
}

// Plugin is a single-round (or first-round) authentication strategy.
type Plugin interface {
	Name() string
	RequiresSecureTransport() bool
	Authenticate(ctx Context) ([]byte, error)
}

// MultiRound is implemented by plugins that may need to react to an
// AUTH_MORE_DATA continuation after the first response (§4.4 "On
// AUTH_MORE_DATA: plugin specifies next action").
type MultiRound interface {
	Plugin
	Continue(data []byte, ctx Context) (response []byte, done bool, err error)
}

var registry = map[string]Plugin{}

// Register adds or replaces a plugin by name. Built-ins are registered
// in init(); callers may register additional plugins before connecting.
func Register(p Plugin) { registry[p.Name()] = p }

// Lookup returns the plugin registered under name, if any.
func Lookup(name string) (Plugin, bool) {
	p, ok := registry[name]
	return p, ok
}

func init() {
	Register(&Native{})
	Register(&CachingSHA2{})
	Register(&SHA256{})
	Register(&ClearPassword{})
	Register(&OldPassword{})
	Register(&NoAuth{})
}

// NoAuth is used when the server lacks CLIENT_PLUGIN_AUTH: the auth
// response is simply empty (§4.4 built-in plugin list).
type NoAuth struct{}

func (NoAuth) Name() string                 { return "" }
func (NoAuth) RequiresSecureTransport() bool { return false }
func (NoAuth) Authenticate(Context) ([]byte, error) { return nil, nil }
