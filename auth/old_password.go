package auth

// OldPassword implements the legacy pre-4.1 "mysql_old_password" / hash_password
// scramble, kept only for servers still running with secure_auth disabled.
// No file in the retrieval pack implements this deprecated algorithm, so it
// is built directly from the documented public MySQL client-server protocol
// (a 32-bit Park-Miller-style PRNG reply to a salt drawn from the same
// generator's seed, in the pre-4.1 "hash_password"/"scramble" routines), not
// adapted from pack source; recorded as such in the grounding ledger.
type OldPassword struct{}

func (OldPassword) Name() string                  { return "mysql_old_password" }
func (OldPassword) RequiresSecureTransport() bool { return false }

func (OldPassword) Authenticate(ctx Context) ([]byte, error) {
	if ctx.Password == "" {
		return nil, nil
	}
	seed := hashPassword323(ctx.Password)
	scramble := scramble323(ctx.Salt, seed)
	return append(scramble, 0), nil
}

// hashPassword323 reduces a password to the two 32-bit seeds of the old
// "new_crypt" PRNG, per the pre-4.1 hash_password() algorithm: each
// non-whitespace byte perturbs a pair of running accumulators.
func hashPassword323(password string) [2]uint32 {
	var nr, nr2 uint32 = 1345345333, 0x12345671
	var add uint32 = 7
	for i := 0; i < len(password); i++ {
		c := password[i]
		if c == ' ' || c == '\t' {
			continue
		}
		tmp := uint32(c)
		nr ^= (((nr & 63) + add) * tmp) + (nr << 8)
		nr2 += (nr2 << 8) ^ nr
		add += tmp
	}
	return [2]uint32{nr & 0x7fffffff, nr2 & 0x7fffffff}
}

// scramble323 hashes the (at most 8-byte) salt the same way as the
// password, seeds the PRNG with the XOR of the two hashes, emits one
// byte in the '@'..'^' range per salt byte, and finally XORs every
// output byte with one more PRNG draw, per scramble()/check_scramble().
func scramble323(salt []byte, seed [2]uint32) []byte {
	const maxUint31 = 0x3fffffff
	if len(salt) > 8 {
		salt = salt[:8]
	}
	msg := hashPassword323(string(salt))
	seed1 := (seed[0] ^ msg[0]) % maxUint31
	seed2 := (seed[1] ^ msg[1]) % maxUint31

	out := make([]byte, len(salt))
	for i := range salt {
		seed1 = (seed1*3 + seed2) % maxUint31
		seed2 = (seed1 + seed2 + 33) % maxUint31
		val := float64(seed1) / float64(maxUint31)
		out[i] = byte(uint32(val*31) + 64)
	}

	seed1 = (seed1*3 + seed2) % maxUint31
	seed2 = (seed1 + seed2 + 33) % maxUint31
	extra := byte(uint32(float64(seed1) / float64(maxUint31) * 31))
	for i := range out {
		out[i] ^= extra
	}
	return out
}
