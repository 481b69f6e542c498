package auth

// SHA256 implements sha256_password (§4.4): unlike caching_sha2_password
// there is no fast-path hash — the first response is always either the
// cleartext password (secure transport) or an RSA-OAEP-encrypted
// password against the server's public key (insecure transport), using
// the request-public-key byte 0x01 as the initial response when no key
// has been exchanged yet.
type SHA256 struct{}

func (SHA256) Name() string                  { return "sha256_password" }
func (SHA256) RequiresSecureTransport() bool { return false }

func (SHA256) Authenticate(ctx Context) ([]byte, error) {
	if ctx.Password == "" {
		return []byte{0}, nil
	}
	if ctx.Secure {
		return append([]byte(ctx.Password), 0), nil
	}
	if ctx.FetchPublicKey == nil {
		return []byte{requestPublicKey}, nil
	}
	der, err := ctx.FetchPublicKey()
	if err != nil {
		return nil, err
	}
	pub, err := parseRSAPublicKey(der)
	if err != nil {
		return nil, err
	}
	return encryptPasswordOAEP(ctx.Password, ctx.Salt, pub)
}
