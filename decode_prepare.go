package mysql

import "fmt"

// decodePrepareMessage drives the COM_STMT_PREPARE response sequence of
// §4.6 step 2: PREPARED_OK, then (if any) a parameter-definition
// stream, then (if any) a column-definition stream. Each stream ends
// in its own synthetic bundle message so Conn.Prepare can tell which
// one just completed without re-deriving it from dc's already-advanced
// state.
func decodePrepareMessage(payload []byte, cc *connContext, dc *decodeContext) (ServerMessage, error) {
	switch dc.phase {
	case phasePrepareResponse:
		return decodePreparedOK(payload, cc, dc)
	case phasePreparedParamMeta, phasePreparedColumnMeta:
		return decodePrepareMetaStream(payload, cc, dc)
	default:
		return nil, &ProtocolError{Op: "decode prepare response", Err: fmt.Errorf("unexpected decode phase %d", dc.phase)}
	}
}

func decodePreparedOK(payload []byte, cc *connContext, dc *decodeContext) (ServerMessage, error) {
	if len(payload) == 0 {
		return nil, &ProtocolError{Op: "decode prepared ok", Err: fmt.Errorf("empty payload")}
	}
	if payload[0] == 0xff {
		return decodeError(payload, cc.capability.Has(CapProtocol41))
	}
	r := newReader(payload)
	if _, err := r.byte(); err != nil { // status, always 0x00
		return nil, &ProtocolError{Op: "decode prepared ok", Err: err}
	}
	statementID, err := r.uint32()
	if err != nil {
		return nil, &ProtocolError{Op: "decode prepared ok", Err: err}
	}
	numColumns, err := r.uint16()
	if err != nil {
		return nil, &ProtocolError{Op: "decode prepared ok", Err: err}
	}
	numParams, err := r.uint16()
	if err != nil {
		return nil, &ProtocolError{Op: "decode prepared ok", Err: err}
	}
	if err := r.skip(1); err != nil { // reserved
		return nil, &ProtocolError{Op: "decode prepared ok", Err: err}
	}
	var warnings uint16
	if r.len() >= 2 {
		warnings, _ = r.uint16()
	}

	dc.deprecateEOF = cc.capability.Has(CapDeprecateEOF)
	dc.pendingColumns = int(numColumns)
	switch {
	case numParams > 0:
		dc.phase = phasePreparedParamMeta
		dc.expectColumns = int(numParams)
		dc.columnsSeen = 0
		dc.columnDefs = make([]*columnDefinition, 0, numParams)
	case numColumns > 0:
		dc.phase = phasePreparedColumnMeta
		dc.expectColumns = int(numColumns)
		dc.columnsSeen = 0
		dc.columnDefs = make([]*columnDefinition, 0, numColumns)
		dc.pendingColumns = 0
	default:
		dc.phase = phaseCommand
	}

	return &preparedOKMessage{statementID: statementID, numColumns: numColumns, numParams: numParams, warnings: warnings}, nil
}

// decodePrepareMetaStream consumes one column-definition message of
// whichever stream dc.phase names, emitting a metadataBundle once that
// stream is complete. A bundle completing the parameter stream starts
// the column stream (if dc.pendingColumns > 0) or ends the exchange;
// a bundle completing the column stream always ends the exchange.
func decodePrepareMetaStream(payload []byte, cc *connContext, dc *decodeContext) (ServerMessage, error) {
	if dc.columnsSeen < dc.expectColumns {
		col, err := decodeColumnDefinition(payload)
		if err != nil {
			return nil, err
		}
		dc.columnDefs = append(dc.columnDefs, col)
		dc.columnsSeen++
		if dc.deprecateEOF && dc.columnsSeen == dc.expectColumns {
			return finishPrepareStream(dc)
		}
		return col, nil
	}

	if _, err := decodeEOF(payload, cc.capability.Has(CapProtocol41)); err != nil {
		return nil, err
	}
	return finishPrepareStream(dc)
}

func finishPrepareStream(dc *decodeContext) (ServerMessage, error) {
	wasParamStream := dc.phase == phasePreparedParamMeta
	bundle := &metadataBundle{columns: dc.columnDefs}

	if wasParamStream && dc.pendingColumns > 0 {
		dc.phase = phasePreparedColumnMeta
		dc.expectColumns = dc.pendingColumns
		dc.columnsSeen = 0
		dc.columnDefs = make([]*columnDefinition, 0, dc.pendingColumns)
		dc.pendingColumns = 0
		bundle.final = false
	} else {
		dc.phase = phaseCommand
		bundle.final = true
	}
	return bundle, nil
}

// decodeFetchRow decodes one payload of a COM_STMT_FETCH response:
// binary rows terminated by an EOF carrying SERVER_STATUS_LAST_ROW_SENT
// once the cursor is exhausted, or an ERROR (§4.6 cursor/fetch flow).
// There is no column-count/column-definition stream here; dc.columnDefs
// is seeded by the caller from the statement's cached column metadata.
func decodeFetchRow(payload []byte, cc *connContext, dc *decodeContext) (ServerMessage, error) {
	if len(payload) == 0 {
		return nil, &ProtocolError{Op: "decode fetch row", Err: fmt.Errorf("empty payload")}
	}
	switch payload[0] {
	case 0xff:
		return decodeError(payload, cc.capability.Has(CapProtocol41))
	case 0xfe:
		if len(payload) < 9 {
			return decodeEOF(payload, cc.capability.Has(CapProtocol41))
		}
		return decodeBinaryRow(payload, dc.columnDefs)
	default:
		return decodeBinaryRow(payload, dc.columnDefs)
	}
}

func isTerminalFetchMessage(msg ServerMessage) bool {
	switch msg.(type) {
	case *eofMessage, *errorMessage:
		return true
	default:
		return false
	}
}

func isTerminalPrepareMessage(msg ServerMessage) bool {
	switch m := msg.(type) {
	case *errorMessage:
		return true
	case *preparedOKMessage:
		return m.numParams == 0 && m.numColumns == 0
	case *metadataBundle:
		return m.final
	default:
		return false
	}
}
