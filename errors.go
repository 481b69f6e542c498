package mysql

import "fmt"

// ErrorKind classifies a failure the way §7 describes: a small, stable
// taxonomy applications can switch on instead of parsing messages or
// MySQL error codes themselves.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindPermissionDenied
	KindBadGrammar
	KindDataIntegrityViolation
	KindRollback
	KindTimeout
	KindTransientResource
	KindNonTransientResource
	KindProtocolError
	KindConnectionClosed
)

func (k ErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindBadGrammar:
		return "bad_grammar"
	case KindDataIntegrityViolation:
		return "data_integrity_violation"
	case KindRollback:
		return "rollback"
	case KindTimeout:
		return "timeout"
	case KindTransientResource:
		return "transient_resource"
	case KindNonTransientResource:
		return "non_transient_resource"
	case KindProtocolError:
		return "protocol_error"
	case KindConnectionClosed:
		return "connection_closed"
	default:
		return "unknown"
	}
}

// ProtocolError is raised by the framing/decoder layer. It is always
// fatal to the connection (§7 Propagation): the caller must force-close.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("mysql: protocol error during %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func (e *ProtocolError) Kind() ErrorKind { return KindProtocolError }

// ConnectionClosedError completes queued/in-flight exchanges after a
// fatal close. Expected distinguishes a caller-requested Close() from an
// unexpected transport failure (§7 Propagation).
type ConnectionClosedError struct {
	Expected bool
	Cause    error
}

func (e *ConnectionClosedError) Error() string {
	if e.Expected {
		return "mysql: connection closed"
	}
	return fmt.Sprintf("mysql: connection closed unexpectedly: %v", e.Cause)
}

func (e *ConnectionClosedError) Unwrap() error { return e.Cause }

func (e *ConnectionClosedError) Kind() ErrorKind { return KindConnectionClosed }

// ServerError wraps an ERR_Packet translated per §4.9/§7: MySQL error
// code first, then SQL-state class prefix. SQL is attached at the
// statement-execution boundary, since the protocol layer has no SQL
// context of its own.
type ServerError struct {
	Code     uint16
	SQLState string // 5 ASCII chars, or "" when protocol41 is not negotiated
	Message  string
	SQL      string
}

func (e *ServerError) Error() string {
	if e.SQL != "" {
		return fmt.Sprintf("mysql: error %d (%s): %s [SQL: %s]", e.Code, e.SQLState, e.Message, e.SQL)
	}
	return fmt.Sprintf("mysql: error %d (%s): %s", e.Code, e.SQLState, e.Message)
}

// WithSQL returns a copy of e with SQL attached, for the statement flows
// to call just before surfacing the error to the caller.
func (e *ServerError) WithSQL(sql string) *ServerError {
	cp := *e
	cp.SQL = sql
	return &cp
}

var permissionDeniedCodes = codeSet(1044, 1045, 1095, 1142, 1143, 1227, 1370, 1698, 1873)
var badGrammarCodes = codeSet(1050, 1051, 1054, 1064, 1146, 1247, 1304, 1305, 1630)
var integrityCodes = codeSet(1022, 1048, 1062, 1169, 1215, 1216, 1217, 1364, 1451, 1452, 1557, 1859)
var rollbackCodes = codeSet(1613)
var timeoutCodes = codeSet(1205, 1907, 3024, 1969, 1968)
var transientCodes = codeSet(1159, 1161, 1213, 1317)

func codeSet(codes ...uint16) map[uint16]struct{} {
	m := make(map[uint16]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}

// Kind classifies a ServerError per §7: code first, then SQL-state
// prefix, falling back to NonTransientResource.
func (e *ServerError) Kind() ErrorKind {
	switch {
	case has(permissionDeniedCodes, e.Code):
		return KindPermissionDenied
	case has(badGrammarCodes, e.Code):
		return KindBadGrammar
	case has(integrityCodes, e.Code):
		return KindDataIntegrityViolation
	case has(rollbackCodes, e.Code):
		return KindRollback
	case has(timeoutCodes, e.Code):
		return KindTimeout
	case has(transientCodes, e.Code):
		return KindTransientResource
	}
	if len(e.SQLState) >= 2 {
		switch e.SQLState[:2] {
		case "42":
			return KindBadGrammar
		case "23":
			return KindDataIntegrityViolation
		case "40":
			return KindRollback
		}
	}
	return KindNonTransientResource
}

func has(set map[uint16]struct{}, code uint16) bool {
	_, ok := set[code]
	return ok
}
