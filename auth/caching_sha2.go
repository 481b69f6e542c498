package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
)

// fast-auth continuation status bytes sent as the single-byte payload
// of an AUTH_MORE_DATA packet (§4.4).
const (
	cachingSHA2FastAuthSuccess byte = 0x03
	cachingSHA2FullAuthNeeded  byte = 0x04
)

const requestPublicKey byte = 0x02

// CachingSHA2 implements caching_sha2_password (§4.4): a SHA256-based
// fast path identical in shape to mysql_native_password's SHA1
// construction, falling back to a full-auth round that ships the
// cleartext password either directly (secure transport) or RSA-OAEP
// encrypted against the server's public key. Grounded on the teacher's
// buildAuthRespWithCachingSha2Password for the fast-path hash; the
// full-auth RSA path has no teacher analogue and is built from the
// documented MySQL 8 wire behavior, noted in the grounding ledger.
type CachingSHA2 struct{}

func (CachingSHA2) Name() string                  { return "caching_sha2_password" }
func (CachingSHA2) RequiresSecureTransport() bool { return false }

func (CachingSHA2) Authenticate(ctx Context) ([]byte, error) {
	if ctx.Password == "" {
		return nil, nil
	}
	return fastAuthResponse(ctx.Password, ctx.Salt), nil
}

func fastAuthResponse(password string, salt []byte) []byte {
	pwHash := sha256.Sum256([]byte(password))
	pwHashHash := sha256.Sum256(pwHash[:])

	h := sha256.New()
	h.Write(pwHashHash[:])
	h.Write(salt)
	salted := h.Sum(nil)

	out := make([]byte, len(pwHash))
	for i := range out {
		out[i] = pwHash[i] ^ salted[i]
	}
	return out
}

// Continue handles the AUTH_MORE_DATA continuation: a single status
// byte of 0x03 means the fast path already succeeded and no response is
// sent; 0x04 means full authentication is required, at which point the
// client either sends the cleartext password (secure transport) or
// requests the server's RSA public key and sends an OAEP-encrypted
// password XORed against the repeated salt (§4.4, §8 scenario 5).
func (c CachingSHA2) Continue(data []byte, ctx Context) ([]byte, bool, error) {
	if len(data) == 0 {
		return nil, true, errors.New("auth: caching_sha2_password: empty continuation")
	}
	switch data[0] {
	case cachingSHA2FastAuthSuccess:
		return nil, true, nil
	case cachingSHA2FullAuthNeeded:
		if ctx.Secure {
			resp := append([]byte(ctx.Password), 0)
			return resp, true, nil
		}
		return c.fullAuthEncrypted(ctx)
	default:
		return nil, true, errors.New("auth: caching_sha2_password: unexpected continuation status")
	}
}

func (c CachingSHA2) fullAuthEncrypted(ctx Context) ([]byte, bool, error) {
	if ctx.FetchPublicKey == nil {
		return nil, true, errors.New("auth: caching_sha2_password: no public key source over an insecure transport")
	}
	der, err := ctx.FetchPublicKey()
	if err != nil {
		return nil, true, err
	}
	pub, err := parseRSAPublicKey(der)
	if err != nil {
		return nil, true, err
	}
	enc, err := encryptPasswordOAEP(ctx.Password, ctx.Salt, pub)
	if err != nil {
		return nil, true, err
	}
	return enc, true, nil
}

func parseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block != nil {
		data = block.Bytes
	}
	key, err := x509.ParsePKIXPublicKey(data)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("auth: server public key is not RSA")
	}
	return pub, nil
}

// encryptPasswordOAEP XORs the NUL-terminated password against the
// salt repeated to length, then RSA-OAEP/SHA1-encrypts it, matching the
// scramble MySQL's own clients apply before a full-auth RSA exchange.
func encryptPasswordOAEP(password string, salt []byte, pub *rsa.PublicKey) ([]byte, error) {
	plain := append([]byte(password), 0)
	if len(salt) > 0 {
		for i := range plain {
			plain[i] ^= salt[i%len(salt)]
		}
	}
	return rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, plain, nil)
}
