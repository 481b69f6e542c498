package codec

// Column type codes, duplicated from the root package's coltype.go
// rather than imported, since this package must not depend on mysql
// (§9 design notes: codecs take explicit parameters instead of a
// connection/root-package handle).
const (
	colTypeDecimal    byte = 0x00
	colTypeTiny       byte = 0x01
	colTypeShort      byte = 0x02
	colTypeLong       byte = 0x03
	colTypeFloat      byte = 0x04
	colTypeDouble     byte = 0x05
	colTypeNull       byte = 0x06
	colTypeTimestamp  byte = 0x07
	colTypeLongLong   byte = 0x08
	colTypeInt24      byte = 0x09
	colTypeDate       byte = 0x0a
	colTypeTime       byte = 0x0b
	colTypeDateTime   byte = 0x0c
	colTypeYear       byte = 0x0d
	colTypeNewDate    byte = 0x0e
	colTypeVarChar    byte = 0x0f
	colTypeBit        byte = 0x10
	colTypeJSON       byte = 0xf5
	colTypeNewDecimal byte = 0xf6
	colTypeEnum       byte = 0xf7
	colTypeSet        byte = 0xf8
	colTypeTinyBLOB   byte = 0xf9
	colTypeMediumBLOB byte = 0xfa
	colTypeLongBLOB   byte = 0xfb
	colTypeBLOB       byte = 0xfc
	colTypeVarString  byte = 0xfd
	colTypeString     byte = 0xfe
	colTypeGeometry   byte = 0xff
)
