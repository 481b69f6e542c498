package mysql

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"

	"github.com/flowsql/gomysql/auth"
	"github.com/google/uuid"
)

const clientVersion = "0.1.0"

// handshakeState names the FSM states of §4.4. Modeled as an explicit
// state machine (rather than a single linear function) because the TLS
// upgrade, auth-switch, and AUTH_MORE_DATA continuation steps are each
// optional detours the transition table has to account for.
type handshakeState int

const (
	stateAwaitHandshake handshakeState = iota
	stateSSLUpgrading
	stateSendHandshakeResponse
	stateAuthNegotiation
	stateSessionInit
	stateReady
	stateFailed
)

// handshake drives one connection's login burst to completion,
// populating cc with the negotiated capability/collation/server
// identity and leaving pc ready for command-phase traffic. Grounded on
// the teacher's driver.go login()/auth.go flow (handshake read, auth
// response build, OK/ERR wait), generalized to the full plugin set,
// AUTH_MORE_DATA continuation, and optional TLS upgrade the teacher
// never implemented.
type handshake struct {
	pc      *packetConn
	conn    net.Conn
	cfg     *Config
	cc      *connContext
	state   handshakeState
	plugin  auth.Plugin
	salt    []byte
}

func newHandshake(pc *packetConn, conn net.Conn, cfg *Config, cc *connContext) *handshake {
	return &handshake{pc: pc, conn: conn, cfg: cfg, cc: cc, state: stateAwaitHandshake}
}

func (h *handshake) run() error {
	hs, err := h.awaitHandshake()
	if err != nil {
		h.state = stateFailed
		return err
	}

	negotiated := clientDesired(h.cfg) & hs.capability
	if hs.isMariaDB {
		negotiated |= hs.capability & (CapMariaDBProgress | CapMariaDBComMulti |
			CapMariaDBStmtBulkOperation | CapMariaDBExtendedMetadata | CapMariaDBCacheMetadata)
	}

	secure := false
	if negotiated.Has(CapSSL) && h.cfg.SSLMode != SSLModeDisabled {
		h.state = stateSSLUpgrading
		if err := h.upgradeTLS(negotiated); err != nil {
			h.state = stateFailed
			return err
		}
		secure = true
	} else if h.cfg.SSLMode == SSLModeRequired || h.cfg.SSLMode == SSLModeVerifyCA || h.cfg.SSLMode == SSLModeVerifyIdentity {
		h.state = stateFailed
		return fmt.Errorf("mysql: server does not support TLS but sslMode requires it")
	}

	h.cc.capability = negotiated
	h.cc.connectionID = hs.connectionID
	h.cc.serverVersion = hs.serverVersion
	h.cc.isMariaDB = hs.isMariaDB
	h.salt = hs.authPluginData

	pluginName := hs.authPluginName
	if pluginName == "" {
		pluginName = "mysql_native_password"
	}
	plugin, ok := auth.Lookup(pluginName)
	if !ok {
		plugin = auth.NoAuth{}
		pluginName = ""
	}
	h.plugin = plugin

	h.state = stateSendHandshakeResponse
	authCtx := auth.Context{
		Password:       h.cfg.Password,
		Salt:           h.salt,
		Secure:         secure || h.cfg.Network == "unix",
		FetchPublicKey: h.fetchPublicKey,
	}
	if plugin.RequiresSecureTransport() && !authCtx.Secure {
		h.state = stateFailed
		return fmt.Errorf("mysql: auth plugin %q requires a secure transport", pluginName)
	}
	resp, err := plugin.Authenticate(authCtx)
	if err != nil {
		h.state = stateFailed
		return err
	}

	if err := h.sendHandshakeResponse(negotiated, pluginName, resp); err != nil {
		h.state = stateFailed
		return err
	}

	h.state = stateAuthNegotiation
	if err := h.negotiateAuth(authCtx); err != nil {
		h.state = stateFailed
		return err
	}

	h.state = stateSessionInit
	if err := h.sessionInit(); err != nil {
		h.state = stateFailed
		return err
	}

	h.state = stateReady
	return nil
}

func (h *handshake) awaitHandshake() (*handshakeV10, error) {
	payload, err := h.pc.readPacket()
	if err != nil {
		return nil, err
	}
	msg, err := decodeLoginMessage(payload)
	if err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case *handshakeV10:
		return m, nil
	case *handshakeV9Rejected:
		return nil, &ProtocolError{Op: "handshake", Err: fmt.Errorf("server offered protocol version 9, which is not supported")}
	case *errorMessage:
		return nil, m.toServerError()
	default:
		return nil, &ProtocolError{Op: "handshake", Err: fmt.Errorf("unexpected message %T while awaiting handshake", m)}
	}
}

func (h *handshake) upgradeTLS(negotiated Capability) error {
	req := &sslRequest{capability: negotiated, maxPacketSize: maxPayload, collation: byte(h.cfg.collationID())}
	if err := h.pc.writePacket(req.encode()); err != nil {
		return err
	}
	host := splitHostPort(h.cfg.Address)
	tc, err := buildTLSConfig(h.cfg, host)
	if err != nil {
		return err
	}
	tlsConn := tls.Client(h.conn, tc)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return &ProtocolError{Op: "TLS handshake", Err: err}
	}
	if h.cfg.SSLMode == SSLModeVerifyIdentity {
		state := tlsConn.ConnectionState()
		if err := verifyIdentity(&state, host, h.cfg.SSLHostnameVerifier); err != nil {
			return err
		}
	}
	h.conn = tlsConn
	h.pc.upgrade(tlsConn)
	return nil
}

func (h *handshake) sendHandshakeResponse(negotiated Capability, pluginName string, authResponse []byte) error {
	resp := &handshakeResponse{
		capability:    negotiated,
		maxPacketSize: maxPayload,
		collation:     byte(h.cfg.collationID()),
		user:          h.cfg.User,
		authResponse:  authResponse,
		database:      h.cfg.Database,
		pluginName:    pluginName,
		attributes:    connectionAttributes(h.cfg),
		zstdLevel:     h.cfg.ZstdCompressionLevel,
	}
	return h.pc.writePacket(resp.encode())
}

// connectionAttributes merges the built-in CLIENT_CONNECT_ATTRS set the
// original MariaDB driver sends (§ SUPPLEMENTED FEATURES) with the
// caller-supplied ones, generating a fresh `_client_session_id` per
// login the way the original mints one per logical connection.
func connectionAttributes(cfg *Config) map[string]string {
	attrs := map[string]string{
		"_client_name":       "gomysql",
		"_client_version":    clientVersion,
		"_os":                runtime.GOOS,
		"_pid":               strconv.Itoa(os.Getpid()),
		"_client_session_id": uuid.NewString(),
	}
	for k, v := range cfg.ConnectionAttributes {
		attrs[k] = v
	}
	return attrs
}

// negotiateAuth processes whatever the server sends in reply to the
// handshake response: immediate OK/ERR, a plugin switch, or one or more
// AUTH_MORE_DATA continuations driven through the plugin's MultiRound
// hook (§4.4).
func (h *handshake) negotiateAuth(authCtx auth.Context) error {
	for {
		payload, err := h.pc.readPacket()
		if err != nil {
			return err
		}
		msg, err := decodeLoginMessage(payload)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case *okMessage:
			h.cc.applyStatus(m.status)
			return nil
		case *errorMessage:
			return m.toServerError()
		case *changeAuthPluginMessage:
			plugin, ok := auth.Lookup(m.pluginName)
			if !ok {
				return &ProtocolError{Op: "auth switch", Err: fmt.Errorf("unsupported auth plugin %q", m.pluginName)}
			}
			if plugin.RequiresSecureTransport() && !authCtx.Secure {
				return fmt.Errorf("mysql: auth plugin %q requires a secure transport", m.pluginName)
			}
			h.plugin = plugin
			h.salt = m.pluginData
			authCtx.Salt = m.pluginData
			resp, err := plugin.Authenticate(authCtx)
			if err != nil {
				return err
			}
			if err := h.pc.writePacket((&authContinuation{data: resp}).encode()); err != nil {
				return err
			}
		case *authMoreDataMessage:
			mr, ok := h.plugin.(auth.MultiRound)
			if !ok {
				return &ProtocolError{Op: "auth more data", Err: fmt.Errorf("plugin %q does not support continuation", h.plugin.Name())}
			}
			resp, done, err := mr.Continue(m.data, authCtx)
			if err != nil {
				return err
			}
			if done && resp == nil {
				continue
			}
			if err := h.pc.writePacket((&authContinuation{data: resp}).encode()); err != nil {
				return err
			}
		default:
			return &ProtocolError{Op: "auth negotiation", Err: fmt.Errorf("unexpected message %T", m)}
		}
	}
}

// fetchPublicKey requests the server's RSA public key via the
// request-public-key byte (0x02) used by both sha256_password and
// caching_sha2_password's full-auth path, reading the PEM blob back out
// of the following AUTH_MORE_DATA.
func (h *handshake) fetchPublicKey() ([]byte, error) {
	if err := h.pc.writePacket([]byte{requestPublicKeyByte}); err != nil {
		return nil, err
	}
	payload, err := h.pc.readPacket()
	if err != nil {
		return nil, err
	}
	msg, err := decodeLoginMessage(payload)
	if err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case *authMoreDataMessage:
		return m.data, nil
	case *errorMessage:
		return nil, m.toServerError()
	default:
		return nil, &ProtocolError{Op: "fetch public key", Err: fmt.Errorf("unexpected message %T", m)}
	}
}

const requestPublicKeyByte = 0x02

// sessionInit runs the deferred post-auth steps the SUPPLEMENTED
// FEATURES section adds over the teacher's bare login(), in this order:
// optional CREATE DATABASE IF NOT EXISTS, one SET SESSION per session
// variable, the deferred USE (only when the database was created here),
// then the lock-wait and statement timeouts. The server time zone is not
// queried here.
func (h *handshake) sessionInit() error {
	var stmts []string
	if h.cfg.Database != "" && h.cfg.CreateDatabaseIfNotExist {
		stmts = append(stmts, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", h.cfg.Database))
	}
	for _, v := range h.cfg.SessionVariables {
		stmts = append(stmts, "SET SESSION "+v)
	}
	if h.cfg.Database != "" && h.cfg.CreateDatabaseIfNotExist {
		stmts = append(stmts, fmt.Sprintf("USE `%s`", h.cfg.Database))
	}
	if h.cfg.LockWaitTimeout > 0 {
		stmts = append(stmts, fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", int(h.cfg.LockWaitTimeout.Seconds())))
	}
	if h.cfg.StatementTimeout > 0 {
		if h.cc.isMariaDB {
			// MariaDB's max_statement_time is seconds, not milliseconds.
			stmts = append(stmts, fmt.Sprintf("SET SESSION max_statement_time = %g", h.cfg.StatementTimeout.Seconds()))
		} else {
			stmts = append(stmts, fmt.Sprintf("SET SESSION max_execution_time = %d", h.cfg.StatementTimeout.Milliseconds()))
		}
	}

	for _, stmt := range stmts {
		if err := h.runStatement(stmt); err != nil {
			return err
		}
	}
	if h.cfg.Database != "" {
		h.cc.currentSchema = h.cfg.Database
	}
	return nil
}

// runStatement executes one session-init statement as a bare COM_QUERY
// and discards its result, used only for fire-and-forget SET/USE/CREATE
// statements that never return rows.
func (h *handshake) runStatement(sql string) error {
	h.pc.resetSequence()
	if err := h.pc.writePacket((&textQueryMessage{sql: sql}).encode()); err != nil {
		return err
	}
	payload, err := h.pc.readPacket()
	if err != nil {
		return err
	}
	msg, err := decodeCommandMessage(payload, h.cc)
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case *okMessage:
		h.cc.applyStatus(m.status)
		return nil
	case *errorMessage:
		return m.toServerError()
	default:
		return &ProtocolError{Op: "session init", Err: fmt.Errorf("statement %q returned a result set", sql)}
	}
}
