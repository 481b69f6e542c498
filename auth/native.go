package auth

import "crypto/sha1"

// Native implements mysql_native_password (§4.4): SHA1(password) XOR
// SHA1(salt ‖ SHA1(SHA1(password))). Grounded on the teacher's
// buildAuthRespWithMysqlNativePassword in auth.go, which computes the
// same three SHA1 passes over the same concatenation order.
type Native struct{}

func (Native) Name() string                  { return "mysql_native_password" }
func (Native) RequiresSecureTransport() bool { return false }

func (Native) Authenticate(ctx Context) ([]byte, error) {
	if ctx.Password == "" {
		return nil, nil
	}
	pwHash := sha1.Sum([]byte(ctx.Password))
	pwHashHash := sha1.Sum(pwHash[:])

	h := sha1.New()
	h.Write(ctx.Salt)
	h.Write(pwHashHash[:])
	salted := h.Sum(nil)

	out := make([]byte, len(pwHash))
	for i := range out {
		out[i] = pwHash[i] ^ salted[i]
	}
	return out, nil
}
