package auth

// ClearPassword implements the mysql_clear_password plugin: the
// NUL-terminated password, sent as-is. The handshake FSM refuses to
// select this plugin over an insecure transport (§4.4), enforced here
// via RequiresSecureTransport rather than inside Authenticate.
type ClearPassword struct{}

func (ClearPassword) Name() string                  { return "mysql_clear_password" }
func (ClearPassword) RequiresSecureTransport() bool { return true }

func (ClearPassword) Authenticate(ctx Context) ([]byte, error) {
	return append([]byte(ctx.Password), 0), nil
}
