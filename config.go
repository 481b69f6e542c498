package mysql

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flowsql/gomysql/collation"
)

// SSLMode selects the TLS posture for a connection (§6).
type SSLMode int

const (
	SSLModeDisabled SSLMode = iota
	SSLModePreferred
	SSLModeRequired
	SSLModeVerifyCA
	SSLModeVerifyIdentity
	SSLModeTunnel
)

// ConnectionTimeZone selects how the driver interprets temporal values
// relative to the server's zone (§6).
type ConnectionTimeZone struct {
	UseLocal  bool
	UseServer bool
	Zone      string // IANA zone id, when neither UseLocal nor UseServer
}

// CompressionAlgorithm is one entry of Config.CompressionAlgorithms
// (§6, §4.1).
type CompressionAlgorithm int

const (
	compressionUncompressed CompressionAlgorithm = iota
	compressionZlib
	compressionZstd
)

func hasCompression(algos []CompressionAlgorithm, want CompressionAlgorithm) bool {
	for _, a := range algos {
		if a == want {
			return true
		}
	}
	return false
}

// Config is the parsed form of the §6 Connection URL. Option parsing
// itself (turning `?key=val&...` into this struct) is the minimal
// interface the core consumes; a higher layer may construct Config
// directly instead of going through ParseConfig.
type Config struct {
	Network  string // "tcp" or "unix"
	Address  string // host:port or socket path
	User     string
	Password string
	Database string

	SSLMode                      SSLMode
	TLSVersions                  []string
	SSLCA, SSLCert, SSLKey        string
	SSLKeyPassword                string
	SSLHostnameVerifier           HostnameVerifier

	ConnectionTimeZone           ConnectionTimeZone
	PreserveInstants             bool
	ForceConnectionTimeZoneToSession bool
	ZeroDate                     ZeroDatePolicy

	CreateDatabaseIfNotExist bool
	UseServerPrepareStatement bool

	TCPKeepAlive time.Duration
	TCPNoDelay   bool

	LockWaitTimeout time.Duration
	StatementTimeout time.Duration

	AllowLocalInfile       bool
	AllowLocalInfilePath   string
	LocalInfileBufferSize  int

	QueryCacheSize   int
	PrepareCacheSize int

	CompressionAlgorithms []CompressionAlgorithm
	ZstdCompressionLevel  int

	SessionVariables []string
	ConnectionAttributes map[string]string

	TinyInt1IsBit bool

	Collation collation.ID
	Charset   string

	ConnectTimeout time.Duration
}

func (c *Config) collationID() collation.ID {
	if c.Collation != 0 {
		return c.Collation
	}
	return collation.Default
}

func (c *Config) localInfileBufferSizeOrDefault() int {
	if c.LocalInfileBufferSize > 0 {
		return c.LocalInfileBufferSize
	}
	return 8192
}

// HostnameVerifier consumes the negotiated TLS connection and the target
// host to decide whether the certificate identifies that host. Out of
// scope per §1; only the interface the core calls is specified here. A
// default RFC 6125-following implementation is provided by tls.go.
type HostnameVerifier interface {
	Verify(host string, sans []string, commonName string) bool
}

// ParseConfig parses a §6 connection URL:
//
//	scheme://[user[:password]@]host[:port][/database][?opt=val&...]
//
// The scheme is ignored beyond distinguishing tcp from a unix-socket
// form (`unix://user:pass@/path/to/sock?opt=val`). Grounded on the
// teacher's dsn.go: a manual left/right scan for the unsafe-for-net/url
// authority part (passwords may contain characters url.Parse would
// otherwise mis-split on), followed by url.ParseQuery for the option
// vocabulary, generalized from the teacher's six recognized keys to the
// full §6 table.
func ParseConfig(dsn string) (*Config, error) {
	rest := dsn
	scheme := "tcp"
	if idx := strings.Index(dsn, "://"); idx >= 0 {
		scheme = dsn[:idx]
		rest = dsn[idx+3:]
	}

	var query string
	if idx := strings.Index(rest, "?"); idx >= 0 {
		query = rest[idx+1:]
		rest = rest[:idx]
	}

	cfg := defaultConfig()
	if scheme == "unix" {
		cfg.Network = "unix"
	} else {
		cfg.Network = "tcp"
	}

	if err := parseAuthorityAndPath(rest, cfg); err != nil {
		return nil, err
	}
	if err := applyQueryOptions(cfg, query); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		SSLMode:               SSLModePreferred,
		ConnectionTimeZone:    ConnectionTimeZone{UseLocal: true},
		ZeroDate:              ZeroDateUseNull,
		CompressionAlgorithms: []CompressionAlgorithm{compressionUncompressed},
		ZstdCompressionLevel:  3,
		Charset:               "utf8mb4",
		Collation:             collation.Default,
		ConnectTimeout:        10 * time.Second,
		AllowLocalInfile:      false,
	}
}

// parseAuthorityAndPath splits "[user[:password]@]host[:port][/database]"
// on the first "/" (database) and the last "@" (userinfo), without the
// teacher's parseDsnPath protocol(...) sub-syntax since this vocabulary
// puts the network choice in the scheme instead.
func parseAuthorityAndPath(s string, cfg *Config) error {
	// The unix form's "/path/to/sock" contains slashes of its own, so it
	// cannot share the generic first-"/"-is-the-database split below; the
	// socket path is taken as everything after "@" and carries no
	// trailing /database segment (matching the documented
	// "unix://user:pass@/path/to/sock?opt=val" form).
	if cfg.Network == "unix" {
		userinfo, hostport := splitUserinfo(s)
		if err := applyUserinfo(cfg, userinfo); err != nil {
			return err
		}
		cfg.Address = hostport
		if cfg.Address == "" {
			return errors.New("mysql: missing socket path in connection URL")
		}
		return nil
	}

	authority := s
	database := ""
	if idx := strings.Index(s, "/"); idx >= 0 {
		authority = s[:idx]
		database = s[idx+1:]
	}
	cfg.Database = database

	userinfo, hostport := splitUserinfo(authority)
	if err := applyUserinfo(cfg, userinfo); err != nil {
		return err
	}

	if hostport == "" {
		return errors.New("mysql: missing host in connection URL")
	}
	if !strings.Contains(hostport, ":") {
		hostport += ":3306"
	}
	cfg.Address = hostport
	return nil
}

// splitUserinfo separates "[userinfo@]rest" on the last "@", since a
// password may itself contain "@" once percent-decoded.
func splitUserinfo(s string) (userinfo, rest string) {
	if idx := strings.LastIndex(s, "@"); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return "", s
}

func applyUserinfo(cfg *Config, userinfo string) error {
	if userinfo == "" {
		return nil
	}
	if cidx := strings.Index(userinfo, ":"); cidx >= 0 {
		cfg.User = userinfo[:cidx]
		pw, err := url.QueryUnescape(userinfo[cidx+1:])
		if err != nil {
			return fmt.Errorf("mysql: invalid password encoding: %w", err)
		}
		cfg.Password = pw
	} else {
		cfg.User = userinfo
	}
	if cfg.User == "" {
		return errors.New("mysql: missing user in connection URL")
	}
	return nil
}

func applyQueryOptions(cfg *Config, query string) error {
	if query == "" {
		return nil
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return fmt.Errorf("mysql: invalid connection options: %w", err)
	}
	for key, vals := range values {
		if len(vals) != 1 {
			return fmt.Errorf("mysql: option %q specified %d times", key, len(vals))
		}
		if err := applyOption(cfg, key, vals[0]); err != nil {
			return err
		}
	}
	return nil
}

func applyOption(cfg *Config, key, val string) error {
	switch key {
	case "sslMode":
		mode, err := parseSSLMode(val)
		if err != nil {
			return err
		}
		cfg.SSLMode = mode
	case "connectionTimeZone":
		switch val {
		case "LOCAL":
			cfg.ConnectionTimeZone = ConnectionTimeZone{UseLocal: true}
		case "SERVER":
			cfg.ConnectionTimeZone = ConnectionTimeZone{UseServer: true}
		default:
			if _, err := time.LoadLocation(val); err != nil {
				return fmt.Errorf("mysql: unknown connectionTimeZone %q: %w", val, err)
			}
			cfg.ConnectionTimeZone = ConnectionTimeZone{Zone: val}
		}
	case "preserveInstants":
		return parseBoolInto(&cfg.PreserveInstants, key, val)
	case "forceConnectionTimeZoneToSession":
		return parseBoolInto(&cfg.ForceConnectionTimeZoneToSession, key, val)
	case "zeroDate":
		switch val {
		case "USE_NULL":
			cfg.ZeroDate = ZeroDateUseNull
		case "USE_ROUND":
			cfg.ZeroDate = ZeroDateUseRound
		case "EXCEPTION":
			cfg.ZeroDate = ZeroDateException
		default:
			return fmt.Errorf("mysql: unknown zeroDate %q", val)
		}
	case "createDatabaseIfNotExist":
		return parseBoolInto(&cfg.CreateDatabaseIfNotExist, key, val)
	case "useServerPrepareStatement":
		return parseBoolInto(&cfg.UseServerPrepareStatement, key, val)
	case "tcpKeepAlive":
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("mysql: invalid tcpKeepAlive: %w", err)
		}
		cfg.TCPKeepAlive = d
	case "tcpNoDelay":
		return parseBoolInto(&cfg.TCPNoDelay, key, val)
	case "lockWaitTimeout":
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("mysql: invalid lockWaitTimeout: %w", err)
		}
		cfg.LockWaitTimeout = d
	case "statementTimeout":
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("mysql: invalid statementTimeout: %w", err)
		}
		cfg.StatementTimeout = d
	case "allowLoadLocalInfileInPath":
		cfg.AllowLocalInfile = val != ""
		cfg.AllowLocalInfilePath = val
	case "localInfileBufferSize":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("mysql: invalid localInfileBufferSize: %w", err)
		}
		cfg.LocalInfileBufferSize = n
	case "queryCacheSize":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("mysql: invalid queryCacheSize: %w", err)
		}
		cfg.QueryCacheSize = n
	case "prepareCacheSize":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("mysql: invalid prepareCacheSize: %w", err)
		}
		cfg.PrepareCacheSize = n
	case "compressionAlgorithms":
		algos, err := parseCompressionAlgorithms(val)
		if err != nil {
			return err
		}
		cfg.CompressionAlgorithms = algos
	case "zstdCompressionLevel":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 || n > 22 {
			return fmt.Errorf("mysql: zstdCompressionLevel must be in [1,22], got %q", val)
		}
		cfg.ZstdCompressionLevel = n
	case "sessionVariables":
		cfg.SessionVariables = splitNonEmpty(val, ",")
	case "tlsVersion":
		cfg.TLSVersions = splitNonEmpty(val, ",")
	case "sslCa":
		cfg.SSLCA = val
	case "sslCert":
		cfg.SSLCert = val
	case "sslKey":
		cfg.SSLKey = val
	case "sslKeyPassword":
		cfg.SSLKeyPassword = val
	case "sslHostnameVerifier":
		// Interface value; the default RFC 6125 verifier is used unless
		// the caller overrides Config.SSLHostnameVerifier programmatically
		// after ParseConfig. The option is accepted for URL-compatibility
		// and otherwise ignored here.
	case "tinyInt1isBit":
		return parseBoolInto(&cfg.TinyInt1IsBit, key, val)
	case "charset":
		cfg.Charset = val
	default:
		return fmt.Errorf("mysql: unknown connection option %q", key)
	}
	return nil
}

func parseSSLMode(val string) (SSLMode, error) {
	switch val {
	case "DISABLED":
		return SSLModeDisabled, nil
	case "PREFERRED":
		return SSLModePreferred, nil
	case "REQUIRED":
		return SSLModeRequired, nil
	case "VERIFY_CA":
		return SSLModeVerifyCA, nil
	case "VERIFY_IDENTITY":
		return SSLModeVerifyIdentity, nil
	case "TUNNEL":
		return SSLModeTunnel, nil
	default:
		return 0, fmt.Errorf("mysql: unknown sslMode %q", val)
	}
}

func parseCompressionAlgorithms(val string) ([]CompressionAlgorithm, error) {
	var out []CompressionAlgorithm
	for _, name := range splitNonEmpty(val, ",") {
		switch name {
		case "UNCOMPRESSED":
			out = append(out, compressionUncompressed)
		case "ZLIB":
			out = append(out, compressionZlib)
		case "ZSTD":
			out = append(out, compressionZstd)
		default:
			return nil, fmt.Errorf("mysql: unknown compression algorithm %q", name)
		}
	}
	if len(out) == 0 {
		out = []CompressionAlgorithm{compressionUncompressed}
	}
	return out, nil
}

func parseBoolInto(dst *bool, key, val string) error {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("mysql: invalid bool for %s: %w", key, err)
	}
	*dst = b
	return nil
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
