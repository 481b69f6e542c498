package mysql

// decodePhase tags which exchange phase a server payload is being
// decoded under, since the same leading byte means different things in
// different phases (§4.2). Modeled as a tagged variant rather than an
// interpreter hierarchy per §9 design notes ("Polymorphic decode
// contexts").
type decodePhase int

const (
	phaseLogin decodePhase = iota
	phaseCommand
	phasePrepareResponse
	phasePreparedParamMeta
	phasePreparedColumnMeta
	phaseResultColumnMeta
	phaseResultRow
	phaseFetchRow
)

// decodeContext carries the active phase plus the bits of state the
// decoder needs to disambiguate within a phase: how many column
// definitions remain before the synthetic metadata-bundle message is
// emitted, and whether the row stream is binary (prepared) or text
// (simple query).
type decodeContext struct {
	phase decodePhase

	expectColumns   int
	columnsSeen     int
	deprecateEOF    bool
	binaryRows      bool
	columnDefs      []*columnDefinition

	// pendingColumns stashes COM_STMT_PREPARE's numColumns across the
	// parameter-definition stream, since the column-definition stream
	// (if any) only starts once the parameter stream finishes.
	pendingColumns int
}

func newLoginContext() *decodeContext {
	return &decodeContext{phase: phaseLogin}
}

func newCommandContext() *decodeContext {
	return &decodeContext{phase: phaseCommand}
}

func (d *decodeContext) startColumnMeta(expect int, deprecateEOF, binary bool) {
	d.phase = phaseResultColumnMeta
	d.expectColumns = expect
	d.columnsSeen = 0
	d.deprecateEOF = deprecateEOF
	d.binaryRows = binary
	d.columnDefs = make([]*columnDefinition, 0, expect)
}

// addColumn records one column-definition message and reports whether
// the metadata bundle is now complete under deprecate-EOF (§4.2
// "Metadata streaming").
func (d *decodeContext) addColumn(col *columnDefinition) (bundleComplete bool) {
	d.columnDefs = append(d.columnDefs, col)
	d.columnsSeen++
	if d.deprecateEOF && d.columnsSeen == d.expectColumns {
		d.phase = phaseResultRow
		return true
	}
	return false
}

// completeViaEOF is called when the terminal EOF of the metadata stream
// arrives in non-deprecate-EOF mode.
func (d *decodeContext) completeViaEOF() {
	d.phase = phaseResultRow
}
