// Package collation maps between the small integer collation ids MySQL
// and MariaDB send on the wire and the character set each implies.
//
// Grounded on vitessio-vitess's go/mysql/collations package (collation.go,
// 8bit.go), which keeps a similar id/name/charset table; this is a
// deliberately small subset (the handful of collations any client
// actually negotiates) rather than vitess's full Unicode collation-order
// machinery, which this driver has no use for — it never compares or
// sorts strings server-side, only needs the id to pick an encoding.
package collation

// ID is a MySQL/MariaDB collation id as sent in the handshake and in
// column-definition metadata.
type ID uint16

// Info describes one collation entry.
type Info struct {
	ID      ID
	Name    string
	Charset string
	// MaxLen is the maximum number of bytes one character can occupy in
	// this charset, needed to size LOCAL INFILE and string buffers.
	MaxLen int
}

// Well-known ids. This is not an exhaustive table of MySQL's ~300
// collations; entries are added as a real deployment needs them.
const (
	Big5ChineseCI   ID = 1
	Latin1Swedish   ID = 8
	ASCIIGeneralCI  ID = 11
	Latin1German2CI ID = 31
	UTF8GeneralCI   ID = 33
	UTF8Bin         ID = 83
	Binary          ID = 63
	UTF8mb4General  ID = 45
	UTF8mb4Bin      ID = 46
	UTF8mb4Unicode  ID = 224
	UTF8mb40900AICI ID = 255
)

var table = map[ID]Info{
	Big5ChineseCI:   {Big5ChineseCI, "big5_chinese_ci", "big5", 2},
	Latin1Swedish:   {Latin1Swedish, "latin1_swedish_ci", "latin1", 1},
	ASCIIGeneralCI:  {ASCIIGeneralCI, "ascii_general_ci", "ascii", 1},
	Latin1German2CI: {Latin1German2CI, "latin1_german2_ci", "latin1", 1},
	UTF8GeneralCI:   {UTF8GeneralCI, "utf8_general_ci", "utf8", 3},
	UTF8Bin:         {UTF8Bin, "utf8_bin", "utf8", 3},
	Binary:          {Binary, "binary", "binary", 1},
	UTF8mb4General:  {UTF8mb4General, "utf8mb4_general_ci", "utf8mb4", 4},
	UTF8mb4Bin:       {UTF8mb4Bin, "utf8mb4_bin", "utf8mb4", 4},
	UTF8mb4Unicode:   {UTF8mb4Unicode, "utf8mb4_unicode_ci", "utf8mb4", 4},
	UTF8mb40900AICI:  {UTF8mb40900AICI, "utf8mb4_0900_ai_ci", "utf8mb4", 4},
}

// ByID looks up a collation by its wire id, returning ok=false for ids
// this table does not carry (the caller should fall back to treating the
// column as opaque bytes rather than failing the whole decode).
func ByID(id ID) (Info, bool) {
	info, ok := table[id]
	return info, ok
}

// Default is the collation this driver requests when the caller does not
// pick one explicitly (§4.4: "defaults to UTF-8-mb4").
const Default = UTF8mb4General

// IsMultiByte reports whether values in this collation's charset may
// need more than one byte per character, relevant to LOCAL INFILE buffer
// sizing and string codec length checks.
func (i Info) IsMultiByte() bool {
	return i.MaxLen > 1
}
