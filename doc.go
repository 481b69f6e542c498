// Package mysql implements the connection-lifecycle engine of a MySQL /
// MariaDB wire-protocol client: framing, handshake and authentication,
// request/response exchange, text and server-prepared statement
// execution, and the value codecs that move data between the wire and
// application types.
//
// The package does not provide a query-builder or result-mapping API;
// callers drive Conn directly with SQL text or prepared statements and
// consume Rows/FieldValue streams.
package mysql
