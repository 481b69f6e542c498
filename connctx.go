package mysql

import (
	"time"

	"github.com/flowsql/gomysql/collation"
)

// ServerStatus is the status bitfield carried by OK/EOF messages (§3
// Connection context). A fresh value from any OK/EOF strictly overrides
// whatever the connection context held before (§8 idempotent-override
// property).
type ServerStatus uint16

const (
	StatusInTrans            ServerStatus = 0x0001
	StatusAutocommit         ServerStatus = 0x0002
	StatusMoreResultsExists  ServerStatus = 0x0008
	StatusNoGoodIndexUsed    ServerStatus = 0x0010
	StatusNoIndexUsed        ServerStatus = 0x0020
	StatusCursorExists       ServerStatus = 0x0040
	StatusLastRowSent        ServerStatus = 0x0080
	StatusDBDropped          ServerStatus = 0x0100
	StatusNoBackslashEscapes ServerStatus = 0x0200
	StatusMetadataChanged    ServerStatus = 0x0400
	StatusQueryWasSlow       ServerStatus = 0x0800
	StatusPSOutParams        ServerStatus = 0x1000
	StatusInTransReadonly    ServerStatus = 0x2000
	StatusSessionStateChanged ServerStatus = 0x4000
)

func (s ServerStatus) Has(bit ServerStatus) bool { return s&bit == bit }

// ZeroDatePolicy controls how all-zero DATE/DATETIME/TIMESTAMP wire
// values decode (§4.7).
type ZeroDatePolicy int

const (
	ZeroDateUseNull ZeroDatePolicy = iota
	ZeroDateUseRound
	ZeroDateException
)

// connContext is the per-connection shared state of §3: negotiated
// capability, server identity, live status bits, collations, timezone,
// and the handful of driver policies that affect decoding. It is
// mutated only on handshake completion and by OK/EOF/session-track
// messages, all on the connection's single event-loop goroutine, so no
// locking is required (§5 Scheduling model).
type connContext struct {
	connectionID uint32
	serverVersion string
	isMariaDB     bool

	capability Capability
	status     ServerStatus

	clientCollation collation.ID
	serverCollation collation.ID

	timeZone *time.Location

	zeroDatePolicy   ZeroDatePolicy
	localInfileRoot  string
	localInfileBufSz int
	preserveInstants bool

	currentSchema string
}

func newConnContext(cfg *Config) *connContext {
	return &connContext{
		clientCollation:  cfg.collationID(),
		zeroDatePolicy:   cfg.ZeroDate,
		localInfileRoot:  cfg.AllowLocalInfilePath,
		localInfileBufSz: cfg.localInfileBufferSizeOrDefault(),
		preserveInstants: cfg.PreserveInstants,
		timeZone:         time.Local,
	}
}

// applyStatus overrides the live status bits; called as a side effect of
// decoding any OK/EOF message (§4.2).
func (c *connContext) applyStatus(s ServerStatus) {
	c.status = s
}

func (c *connContext) inTransaction() bool {
	return c.status.Has(StatusInTrans)
}

func (c *connContext) noBackslashEscapes() bool {
	return c.status.Has(StatusNoBackslashEscapes)
}
