package rpl

// rawSubOption is a single undecoded RPL suboption: a type and its
// payload, with the type/length header already stripped.
type rawSubOption struct {
	Type    uint8
	Payload []byte
}

// decodeSubOptions walks buf, a sequence of RPL suboptions, and returns
// each one's type and payload. A lone 0x00 byte is PAD1 (length 1, no
// payload, RFC 6550 section 6.7.1); every other suboption is
// [type:1][length:1][payload:length]. decodeSubOptions returns
// errMalformedMessage if a suboption's declared length would read past
// the end of buf, matching spec.md section 4.1's "malformed length ...
// aborts processing".
func decodeSubOptions(buf []byte) (opts []rawSubOption, err error) {
	for i := 0; i < len(buf); {
		typ := buf[i]
		if typ == subOptPad1 {
			i++

			continue
		}

		if i+2 > len(buf) {
			return nil, errMalformedMessage
		}

		length := int(buf[i+1])
		start := i + 2
		end := start + length
		if end > len(buf) {
			return nil, errMalformedMessage
		}

		opts = append(opts, rawSubOption{
			Type:    typ,
			Payload: buf[start:end],
		})
		i = end
	}

	return opts, nil
}

// appendSubOption appends a [type:1][length:1][payload] suboption to dst
// and returns the result.
func appendSubOption(dst []byte, typ uint8, payload []byte) []byte {
	dst = append(dst, typ, byte(len(payload)))

	return append(dst, payload...)
}

// requireFixedLen returns errMalformedMessage if body isn't exactly n
// bytes long, matching spec.md section 4.1's "fixed-length mismatch"
// malformed case for the DAG Configuration and Prefix Information
// suboptions.
func requireFixedLen(body []byte, n int) error {
	if len(body) != n {
		return errMalformedMessage
	}

	return nil
}
