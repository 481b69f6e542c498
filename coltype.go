package mysql

// Column type codes, per MySQL's field_types.h. Grounded on the
// teacher's constant.go ColType* block, extended with the codes the
// teacher left for "later" (JSON, NEWDECIMAL, ENUM, SET, the BLOB
// family, BIT, GEOMETRY) since the value codec registry needs all of
// them to decode a real result set.
const (
	colTypeDecimal  byte = 0x00
	colTypeTiny     byte = 0x01
	colTypeShort    byte = 0x02
	colTypeLong     byte = 0x03
	colTypeFloat    byte = 0x04
	colTypeDouble   byte = 0x05
	colTypeNull     byte = 0x06
	colTypeTimestamp byte = 0x07
	colTypeLongLong byte = 0x08
	colTypeInt24    byte = 0x09
	colTypeDate     byte = 0x0a
	colTypeTime     byte = 0x0b
	colTypeDateTime byte = 0x0c
	colTypeYear     byte = 0x0d
	colTypeNewDate  byte = 0x0e
	colTypeVarChar  byte = 0x0f
	colTypeBit      byte = 0x10
	colTypeJSON        byte = 0xf5
	colTypeNewDecimal  byte = 0xf6
	colTypeEnum        byte = 0xf7
	colTypeSet         byte = 0xf8
	colTypeTinyBLOB    byte = 0xf9
	colTypeMediumBLOB  byte = 0xfa
	colTypeLongBLOB    byte = 0xfb
	colTypeBLOB        byte = 0xfc
	colTypeVarString   byte = 0xfd
	colTypeString      byte = 0xfe
	colTypeGeometry    byte = 0xff
)

const (
	colFlagNotNull     uint16 = 1 << 0
	colFlagPriKey      uint16 = 1 << 1
	colFlagUniqueKey   uint16 = 1 << 2
	colFlagMultipleKey uint16 = 1 << 3
	colFlagBlob        uint16 = 1 << 4
	colFlagUnsigned    uint16 = 1 << 5
	colFlagZerofill    uint16 = 1 << 6
	colFlagBinary      uint16 = 1 << 7
	colFlagEnum        uint16 = 1 << 8
	colFlagAutoIncr    uint16 = 1 << 9
	colFlagTimestamp   uint16 = 1 << 10
	colFlagSet         uint16 = 1 << 11
)
