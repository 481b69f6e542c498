package mysql

import "fmt"

// decodeResultMessage dispatches one payload of a statement-execution
// exchange according to dc's current phase, advancing dc as the
// column-metadata and row streams progress (§4.2, §4.6). It is the
// context-sensitive decoder the request-queue drives for every
// exchange that may return a result set.
func decodeResultMessage(payload []byte, cc *connContext, dc *decodeContext) (ServerMessage, error) {
	switch dc.phase {
	case phaseCommand:
		return decodeAtCommandPhase(payload, cc, dc)
	case phaseResultColumnMeta:
		return decodeAtColumnMetaPhase(payload, cc, dc)
	case phaseResultRow:
		return decodeAtRowPhase(payload, cc, dc)
	default:
		return nil, &ProtocolError{Op: "decode result message", Err: fmt.Errorf("unexpected decode phase %d", dc.phase)}
	}
}

func decodeAtCommandPhase(payload []byte, cc *connContext, dc *decodeContext) (ServerMessage, error) {
	msg, err := decodeCommandMessage(payload, cc)
	if err != nil {
		return nil, err
	}
	if cm, ok := msg.(*columnCountMessage); ok {
		dc.startColumnMeta(int(cm.count), cc.capability.Has(CapDeprecateEOF), dc.binaryRows)
	}
	return msg, nil
}

func decodeAtColumnMetaPhase(payload []byte, cc *connContext, dc *decodeContext) (ServerMessage, error) {
	if dc.columnsSeen < dc.expectColumns {
		col, err := decodeColumnDefinition(payload)
		if err != nil {
			return nil, err
		}
		bundleComplete := dc.addColumn(col)
		if bundleComplete {
			return &metadataBundle{columns: dc.columnDefs}, nil
		}
		return col, nil
	}
	// Non-deprecate-EOF mode: the terminal EOF of the metadata stream.
	if _, err := decodeEOF(payload, cc.capability.Has(CapProtocol41)); err != nil {
		return nil, err
	}
	dc.completeViaEOF()
	return &metadataBundle{columns: dc.columnDefs}, nil
}

func decodeAtRowPhase(payload []byte, cc *connContext, dc *decodeContext) (ServerMessage, error) {
	if len(payload) == 0 {
		return nil, &ProtocolError{Op: "decode row", Err: fmt.Errorf("empty payload")}
	}
	switch payload[0] {
	case 0xff:
		return decodeError(payload, cc.capability.Has(CapProtocol41))
	case 0x00:
		// In the row phase a leading 0x00 is the binary-row packet header
		// or, for text rows, an empty first field; the terminal OK under
		// deprecate-EOF starts with 0xfe instead (handled below).
		if dc.binaryRows {
			return decodeBinaryRow(payload, dc.columnDefs)
		}
		return decodeTextRow(payload, len(dc.columnDefs))
	case 0xfe:
		if cc.capability.Has(CapDeprecateEOF) {
			return decodeOK(payload, cc.capability.Has(CapProtocol41))
		}
		if len(payload) < 9 {
			return decodeEOF(payload, cc.capability.Has(CapProtocol41))
		}
		if dc.binaryRows {
			return decodeBinaryRow(payload, dc.columnDefs)
		}
		return decodeTextRow(payload, len(dc.columnDefs))
	default:
		if dc.binaryRows {
			return decodeBinaryRow(payload, dc.columnDefs)
		}
		return decodeTextRow(payload, len(dc.columnDefs))
	}
}

// reenterCommandPhase is called once a terminal OK/EOF with
// MORE_RESULTS_EXISTS set has been delivered, so the next payload is
// decoded as a fresh column-count (§4.6 multi-result repeat).
func reenterCommandPhase(dc *decodeContext) {
	dc.phase = phaseCommand
	dc.columnDefs = nil
	dc.columnsSeen = 0
	dc.expectColumns = 0
}

func isTerminalResultMessage(msg ServerMessage, cc *connContext) bool {
	switch m := msg.(type) {
	case *errorMessage:
		return true
	case *okMessage:
		return !m.status.Has(StatusMoreResultsExists)
	case *eofMessage:
		return !m.status.Has(StatusMoreResultsExists)
	default:
		return false
	}
}
