package mysql

import (
	"context"
	"fmt"
	"net"

	"github.com/flowsql/gomysql/auth"
	"github.com/flowsql/gomysql/cache"
	"github.com/flowsql/gomysql/codec"
	"github.com/sirupsen/logrus"
)

// Conn is one logical connection: the framed transport, the shared
// connection context, and the request-queue/exchange core driving it.
// Grounded on the teacher's driver.go conn type, generalized from a
// database/sql/driver.Conn (one blocking call at a time) to the async
// request-queue model of §4.5, since the spec's concurrency model calls
// for overlapping exchanges rather than one fully-serialized call.
type Conn struct {
	cfg *Config
	cc  *connContext
	pc  *packetConn
	q   *queue

	raw       net.Conn
	loginSalt []byte
	log       *logrus.Entry
	registry  *codec.Registry
	prepCache *cache.Cache[*PreparedStatement]
	qryCache  *cache.Cache[[]placeholder]
}

// Connect dials cfg.Address, runs the handshake FSM to completion, and
// returns a Conn ready to accept exchanges.
func Connect(ctx context.Context, cfg *Config) (*Conn, error) {
	network := cfg.Network
	if network == "" {
		network = "tcp"
	}
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	raw, err := dialer.DialContext(ctx, network, cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("mysql: dial %s: %w", cfg.Address, err)
	}
	if tcpConn, ok := raw.(*net.TCPConn); ok {
		if cfg.TCPNoDelay {
			_ = tcpConn.SetNoDelay(true)
		}
		if cfg.TCPKeepAlive > 0 {
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(cfg.TCPKeepAlive)
		}
	}

	c := &Conn{
		cfg: cfg,
		cc:  newConnContext(cfg),
		pc:  newPacketConn(raw),
		raw: raw,
		log: logrus.WithField("component", "mysql.Conn"),
	}

	hs := newHandshake(c.pc, raw, cfg, c.cc)
	if err := hs.run(); err != nil {
		raw.Close()
		c.log.WithError(err).Warn("handshake failed")
		return nil, err
	}
	c.raw = hs.conn
	c.loginSalt = hs.salt

	if err := c.maybeUpgradeCompression(); err != nil {
		raw.Close()
		return nil, err
	}

	c.q = newQueue(c.pc)
	c.log.WithFields(logrus.Fields{
		"connection_id":  c.cc.connectionID,
		"server_version": c.cc.serverVersion,
		"mariadb":        c.cc.isMariaDB,
	}).Debug("connected")
	return c, nil
}

func (c *Conn) maybeUpgradeCompression() error {
	var algo CompressionAlgorithm
	switch {
	case c.cc.capability.Has(CapZstdCompressionAlgorithm) && hasCompression(c.cfg.CompressionAlgorithms, compressionZstd):
		algo = compressionZstd
	case c.cc.capability.Has(CapCompress) && hasCompression(c.cfg.CompressionAlgorithms, compressionZlib):
		algo = compressionZlib
	default:
		return nil
	}
	cc, err := newCompressedConn(c.raw, algo, c.cfg.ZstdCompressionLevel)
	if err != nil {
		return err
	}
	c.pc.upgrade(cc)
	return nil
}

// Close runs the §4.5 shutdown sequence and releases the transport.
func (c *Conn) Close() error {
	qerr := c.q.close()
	if err := c.raw.Close(); err != nil && qerr == nil {
		return err
	}
	return qerr
}

// Ping issues COM_PING and waits for the OK response (§4.3).
func (c *Conn) Ping(ctx context.Context) error {
	_, err := c.simpleExchange(ctx, (&pingMessage{}).encode())
	return err
}

// ResetSession issues COM_RESET_CONNECTION (§ SUPPLEMENTED FEATURES):
// clears session state (transaction, temp tables, prepared statements,
// user variables) while keeping the TCP connection and authentication
// in place, cheaper than a full reconnect for pool reuse.
func (c *Conn) ResetSession(ctx context.Context) error {
	msg, err := c.simpleExchange(ctx, (&resetConnectionMessage{}).encode())
	if err != nil {
		return err
	}
	if ok, isOK := msg.(*okMessage); isOK {
		c.cc.applyStatus(ok.status)
	}
	return nil
}

// ChangeUser issues COM_CHANGE_USER, re-authenticating as a different
// user without reconnecting (§ SUPPLEMENTED FEATURES). The auth
// response is built with mysql_native_password against the salt issued
// at login time; a server that wants a different plugin for the new
// user drives an auth-switch exchange, which COM_CHANGE_USER frames
// differently from the login-time one and is not modeled here since no
// pack example exercises it.
func (c *Conn) ChangeUser(ctx context.Context, user, password, database string) error {
	plugin, ok := auth.Lookup("mysql_native_password")
	if !ok {
		plugin = auth.NoAuth{}
	}
	authResp, err := plugin.Authenticate(auth.Context{Password: password, Salt: c.loginSalt})
	if err != nil {
		return err
	}
	msg := &changeUserMessage{
		user:         user,
		authResponse: authResp,
		database:     database,
		collation:    byte(c.cfg.collationID()),
		pluginName:   plugin.Name(),
		attributes:   c.cfg.ConnectionAttributes,
		capability:   c.cc.capability,
	}
	resp, err := c.simpleExchange(ctx, msg.encode())
	if err != nil {
		return err
	}
	if ok, isOK := resp.(*okMessage); isOK {
		c.cc.applyStatus(ok.status)
	}
	c.cc.currentSchema = database
	return nil
}

// simpleExchange runs a single request/single-terminal-response
// exchange (OK or ERR, nothing streamed), used by the command-phase
// helpers above.
func (c *Conn) simpleExchange(ctx context.Context, payload []byte) (ServerMessage, error) {
	ex := newExchange(ctx,
		func(pc *packetConn) error { return pc.writePacket(payload) },
		func(p []byte) (ServerMessage, error) { return decodeCommandMessage(p, c.cc) },
		isTerminalSimpleMessage,
	)
	c.q.submitExchange(ex)
	var last ServerMessage
	for msg := range ex.messages {
		last = msg
	}
	if err := ex.wait(); err != nil {
		return nil, err
	}
	if errMsg, ok := last.(*errorMessage); ok {
		return nil, errMsg.toServerError()
	}
	if ok, isOK := last.(*okMessage); isOK {
		c.cc.applyStatus(ok.status)
	}
	return last, nil
}

func isTerminalSimpleMessage(msg ServerMessage) bool {
	switch msg.(type) {
	case *okMessage, *errorMessage:
		return true
	default:
		return false
	}
}

