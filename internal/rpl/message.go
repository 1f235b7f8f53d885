// Package rpl's wire codec. Every message shares ICMPv6 type 155
// (spec.md section 4.1); Code distinguishes DIS/DIO/DAO/DAO-ACK/DCO/
// DCO-ACK. All multi-byte integers are big-endian.
package rpl

import (
	"encoding/binary"
	"fmt"
)

// DIS is a DODAG Information Solicitation. No suboption carried in a DIS
// is currently interpreted (spec.md section 4.1), so Options preserves
// whatever trailing bytes followed the fixed header, verbatim, for
// round-tripping.
type DIS struct {
	Flags   uint8
	Options []byte
}

// EncodeDIS appends dis's wire form to dst and returns the result.
func EncodeDIS(dst []byte, dis DIS) []byte {
	dst = append(dst, dis.Flags, 0)

	return append(dst, dis.Options...)
}

// DecodeDIS decodes a DIS payload.
func DecodeDIS(payload []byte) (dis DIS, err error) {
	if len(payload) < 2 {
		return DIS{}, errMalformedMessage
	}

	return DIS{
		Flags:   payload[0],
		Options: append([]byte(nil), payload[2:]...),
	}, nil
}

// DIO is a DODAG Information Object.
type DIO struct {
	InstanceID uint8
	Version    uint8
	Rank       uint16
	Grounded   bool
	MOP        ModeOfOperation
	Preference uint8
	DTSN       uint8
	DODAGID    [16]byte

	// Config, Metric, and Prefix are nil when the corresponding suboption
	// was absent.
	Config *DAGConfiguration
	Metric *MetricContainer
	Prefix *PrefixInformation

	// RouteInfo holds zero or more Route Information suboptions, in the
	// order they appeared.
	RouteInfo []RouteInformation
}

// dioFixedLen is the length of a DIO's fixed header (instance_id through
// dodagid).
const dioFixedLen = 1 + 1 + 2 + 1 + 1 + 1 + 1 + 16

// EncodeDIO appends dio's wire form, including its suboptions, to dst and
// returns the result.
func EncodeDIO(dst []byte, dio DIO) []byte {
	flags := uint8(0)
	if dio.Grounded {
		flags |= 0x80
	}
	flags |= uint8(dio.MOP&0x7) << 3
	flags |= dio.Preference & 0x7

	header := make([]byte, dioFixedLen)
	header[0] = dio.InstanceID
	header[1] = dio.Version
	binary.BigEndian.PutUint16(header[2:4], dio.Rank)
	header[4] = flags
	header[5] = dio.DTSN
	header[6] = 0 // flags (reserved in this revision)
	header[7] = 0 // reserved
	copy(header[8:24], dio.DODAGID[:])

	dst = append(dst, header...)

	if dio.Config != nil {
		dst = dio.Config.encode(dst)
	}

	if dio.Metric != nil {
		dst = dio.Metric.encode(dst)
	}

	for _, ri := range dio.RouteInfo {
		dst = ri.encode(dst)
	}

	if dio.Prefix != nil {
		dst = dio.Prefix.encode(dst)
	}

	return dst
}

// DecodeDIO decodes a DIO payload, including its suboptions. Unknown
// suboption types are skipped, per spec.md section 4.1.
func DecodeDIO(payload []byte) (dio DIO, err error) {
	if len(payload) < dioFixedLen {
		return DIO{}, errMalformedMessage
	}

	flags := payload[4]
	dio = DIO{
		InstanceID: payload[0],
		Version:    payload[1],
		Rank:       binary.BigEndian.Uint16(payload[2:4]),
		Grounded:   flags&0x80 != 0,
		MOP:        ModeOfOperation(flags>>3) & 0x7,
		Preference: flags & 0x7,
		DTSN:       payload[5],
	}
	copy(dio.DODAGID[:], payload[8:24])

	opts, err := decodeSubOptions(payload[dioFixedLen:])
	if err != nil {
		return DIO{}, err
	}

	for _, opt := range opts {
		switch opt.Type {
		case subOptPad1, subOptPadN:
			// Padding: PAD1 is consumed by decodeSubOptions; PadN is
			// skipped here.
		case subOptDAGMetricContainer:
			mc, mcErr := decodeMetricContainer(opt.Payload)
			if mcErr != nil {
				return DIO{}, mcErr
			}
			dio.Metric = &mc
		case subOptRouteInformation:
			ri, riErr := decodeRouteInformation(opt.Payload)
			if riErr != nil {
				return DIO{}, riErr
			}
			dio.RouteInfo = append(dio.RouteInfo, ri)
		case subOptDAGConfiguration:
			dc, dcErr := decodeDAGConfiguration(opt.Payload)
			if dcErr != nil {
				return DIO{}, dcErr
			}
			dio.Config = &dc
		case subOptPrefixInformation:
			pi, piErr := decodePrefixInformation(opt.Payload)
			if piErr != nil {
				return DIO{}, piErr
			}
			dio.Prefix = &pi
		default:
			// Unrecognised suboption type; skip it.
		}
	}

	return dio, nil
}

// DAGConfiguration is the DAG Configuration suboption (RFC 6550 section
// 6.7.6), fixed at 14 bytes.
type DAGConfiguration struct {
	Authoritative       bool
	PathControlSize     uint8
	DIOIntervalDoubling uint8
	DIOIntervalMin      uint8
	DIORedundancy       uint8
	MaxRankIncrease     uint16
	MinHopRankIncrease  uint16
	OCP                 uint16
	DefaultLifetime     uint8
	LifetimeUnit        uint16
}

const dagConfigurationLen = 14

func (dc DAGConfiguration) encode(dst []byte) []byte {
	body := make([]byte, dagConfigurationLen)

	flags := dc.PathControlSize & 0x7
	if dc.Authoritative {
		flags |= 0x80
	}
	body[0] = flags
	body[1] = dc.DIOIntervalDoubling
	body[2] = dc.DIOIntervalMin
	body[3] = dc.DIORedundancy
	binary.BigEndian.PutUint16(body[4:6], dc.MaxRankIncrease)
	binary.BigEndian.PutUint16(body[6:8], dc.MinHopRankIncrease)
	binary.BigEndian.PutUint16(body[8:10], dc.OCP)
	body[10] = 0 // reserved
	body[11] = dc.DefaultLifetime
	binary.BigEndian.PutUint16(body[12:14], dc.LifetimeUnit)

	return appendSubOption(dst, subOptDAGConfiguration, body)
}

func decodeDAGConfiguration(body []byte) (dc DAGConfiguration, err error) {
	if err = requireFixedLen(body, dagConfigurationLen); err != nil {
		return DAGConfiguration{}, err
	}

	return DAGConfiguration{
		Authoritative:       body[0]&0x80 != 0,
		PathControlSize:     body[0] & 0x7,
		DIOIntervalDoubling: body[1],
		DIOIntervalMin:      body[2],
		DIORedundancy:       body[3],
		MaxRankIncrease:     binary.BigEndian.Uint16(body[4:6]),
		MinHopRankIncrease:  binary.BigEndian.Uint16(body[6:8]),
		OCP:                 binary.BigEndian.Uint16(body[8:10]),
		DefaultLifetime:     body[11],
		LifetimeUnit:        binary.BigEndian.Uint16(body[12:14]),
	}, nil
}

// PrefixInformation is the Prefix Information suboption (RFC 6550 section
// 6.7.7 / RFC 4861 section 4.6.2), fixed at 30 bytes.
type PrefixInformation struct {
	PrefixLength  uint8
	OnLink        bool
	Autonomous    bool
	RouterAddress bool
	ValidLifetime uint32
	PrefLifetime  uint32
	Prefix        [16]byte
}

const prefixInformationLen = 30

func (pi PrefixInformation) encode(dst []byte) []byte {
	body := make([]byte, prefixInformationLen)

	body[0] = pi.PrefixLength
	flags := uint8(0)
	if pi.OnLink {
		flags |= 0x80
	}
	if pi.Autonomous {
		flags |= 0x40
	}
	if pi.RouterAddress {
		flags |= 0x20
	}
	body[1] = flags
	binary.BigEndian.PutUint32(body[2:6], pi.ValidLifetime)
	binary.BigEndian.PutUint32(body[6:10], pi.PrefLifetime)
	// body[10:14] reserved
	copy(body[14:30], pi.Prefix[:])

	return appendSubOption(dst, subOptPrefixInformation, body)
}

func decodePrefixInformation(body []byte) (pi PrefixInformation, err error) {
	if err = requireFixedLen(body, prefixInformationLen); err != nil {
		return PrefixInformation{}, err
	}

	pi = PrefixInformation{
		PrefixLength:  body[0],
		OnLink:        body[1]&0x80 != 0,
		Autonomous:    body[1]&0x40 != 0,
		RouterAddress: body[1]&0x20 != 0,
		ValidLifetime: binary.BigEndian.Uint32(body[2:6]),
		PrefLifetime:  binary.BigEndian.Uint32(body[6:10]),
	}
	copy(pi.Prefix[:], body[14:30])

	return pi, nil
}

// RouteInformation is a Route Information suboption (RFC 6550 section
// 6.7.2). Its Prefix is the shortest byte slice covering PrefixLength
// bits, per RFC: empty for a 0-length prefix, 8 bytes for 1-64 bits, or
// 16 bytes for 65-128 bits.
type RouteInformation struct {
	PrefixLength  uint8
	Preference    uint8
	RouteLifetime uint32
	Prefix        []byte
}

func prefixByteLen(prefixLength uint8) int {
	switch {
	case prefixLength == 0:
		return 0
	case prefixLength <= 64:
		return 8
	default:
		return 16
	}
}

func (ri RouteInformation) encode(dst []byte) []byte {
	n := prefixByteLen(ri.PrefixLength)
	body := make([]byte, 6+n)
	body[0] = ri.PrefixLength
	body[1] = ri.Preference & 0x18
	binary.BigEndian.PutUint32(body[2:6], ri.RouteLifetime)
	copy(body[6:], ri.Prefix)

	return appendSubOption(dst, subOptRouteInformation, body)
}

func decodeRouteInformation(body []byte) (ri RouteInformation, err error) {
	if len(body) < 6 {
		return RouteInformation{}, errMalformedMessage
	}

	prefixLength := body[0]
	want := prefixByteLen(prefixLength)
	if len(body) != 6+want {
		return RouteInformation{}, errMalformedMessage
	}

	return RouteInformation{
		PrefixLength:  prefixLength,
		Preference:    body[1] & 0x18,
		RouteLifetime: binary.BigEndian.Uint32(body[2:6]),
		Prefix:        append([]byte(nil), body[6:]...),
	}, nil
}

// Target is the RPL Target suboption (RFC 6550 section 6.7.7).
type Target struct {
	PrefixLength uint8
	Prefix       []byte
}

func (tg Target) encode(dst []byte) []byte {
	n := prefixByteLen(tg.PrefixLength)
	body := make([]byte, 2+n)
	body[0] = 0 // flags, reserved
	body[1] = tg.PrefixLength
	copy(body[2:], tg.Prefix)

	return appendSubOption(dst, subOptTarget, body)
}

func decodeTarget(body []byte) (tg Target, err error) {
	if len(body) < 2 {
		return Target{}, errMalformedMessage
	}

	prefixLength := body[1]
	want := prefixByteLen(prefixLength)
	if len(body) != 2+want {
		return Target{}, errMalformedMessage
	}

	return Target{
		PrefixLength: prefixLength,
		Prefix:       append([]byte(nil), body[2:]...),
	}, nil
}

// Transit is the RPL Transit Information suboption (RFC 6550 section
// 6.7.8). ParentAddress is non-nil only in non-storing mode, where the
// DAO parent's address accompanies the path.
type Transit struct {
	External      bool
	PathControl   uint8
	PathSequence  uint8
	PathLifetime  uint8
	ParentAddress *[16]byte
}

const transitBaseLen = 4

func (tr Transit) encode(dst []byte) []byte {
	n := transitBaseLen
	if tr.ParentAddress != nil {
		n += 16
	}
	body := make([]byte, n)

	flags := uint8(0)
	if tr.External {
		flags |= 0x80
	}
	body[0] = flags
	body[1] = tr.PathControl
	body[2] = tr.PathSequence
	body[3] = tr.PathLifetime
	if tr.ParentAddress != nil {
		copy(body[4:20], tr.ParentAddress[:])
	}

	return appendSubOption(dst, subOptTransit, body)
}

func decodeTransit(body []byte) (tr Transit, err error) {
	if len(body) != transitBaseLen && len(body) != transitBaseLen+16 {
		return Transit{}, errMalformedMessage
	}

	tr = Transit{
		External:     body[0]&0x80 != 0,
		PathControl:  body[1],
		PathSequence: body[2],
		PathLifetime: body[3],
	}
	if len(body) == transitBaseLen+16 {
		var addr [16]byte
		copy(addr[:], body[4:20])
		tr.ParentAddress = &addr
	}

	return tr, nil
}

// DAO is a Destination Advertisement Object. A DAO with a Transit whose
// PathLifetime is zero is a No-Path DAO (spec.md section 4.6 step 5).
type DAO struct {
	InstanceID uint8
	AckRequest bool // K flag
	HasDODAGID bool // D flag
	Sequence   uint8
	DODAGID    [16]byte
	Target     *Target
	Transit    *Transit
}

const daoBaseLen = 4

// EncodeDAO appends dao's wire form to dst and returns the result.
func EncodeDAO(dst []byte, dao DAO) []byte {
	header := make([]byte, daoBaseLen)
	header[0] = dao.InstanceID

	flags := uint8(0)
	if dao.AckRequest {
		flags |= 0x80
	}
	if dao.HasDODAGID {
		flags |= 0x40
	}
	header[1] = flags
	header[2] = 0 // reserved
	header[3] = dao.Sequence

	dst = append(dst, header...)

	if dao.HasDODAGID {
		dst = append(dst, dao.DODAGID[:]...)
	}

	if dao.Target != nil {
		dst = dao.Target.encode(dst)
	}

	if dao.Transit != nil {
		dst = dao.Transit.encode(dst)
	}

	return dst
}

// DecodeDAO decodes a DAO payload, including its suboptions.
func DecodeDAO(payload []byte) (dao DAO, err error) {
	if len(payload) < daoBaseLen {
		return DAO{}, errMalformedMessage
	}

	flags := payload[1]
	dao = DAO{
		InstanceID: payload[0],
		AckRequest: flags&0x80 != 0,
		HasDODAGID: flags&0x40 != 0,
		Sequence:   payload[3],
	}

	rest := payload[daoBaseLen:]
	if dao.HasDODAGID {
		if len(rest) < 16 {
			return DAO{}, errMalformedMessage
		}
		copy(dao.DODAGID[:], rest[:16])
		rest = rest[16:]
	}

	opts, err := decodeSubOptions(rest)
	if err != nil {
		return DAO{}, err
	}

	for _, opt := range opts {
		switch opt.Type {
		case subOptPad1, subOptPadN:
			// Padding: PAD1 is consumed by decodeSubOptions; PadN is
			// skipped here.
		case subOptTarget:
			tg, tgErr := decodeTarget(opt.Payload)
			if tgErr != nil {
				return DAO{}, tgErr
			}
			t := tg
			dao.Target = &t
		case subOptTransit:
			tr, trErr := decodeTransit(opt.Payload)
			if trErr != nil {
				return DAO{}, trErr
			}
			t := tr
			dao.Transit = &t
		default:
			// Unrecognised suboption type; skip it.
		}
	}

	return dao, nil
}

// DCO is a Destination Cleanup Object. It mirrors DAO's framing
// (spec.md section 4.9); its Transit's PathSequence governs which hop is
// authoritative.
type DCO struct {
	InstanceID uint8
	AckRequest bool
	HasDODAGID bool
	Sequence   uint8
	DODAGID    [16]byte
	Target     *Target
	Transit    *Transit
}

// EncodeDCO appends dco's wire form to dst and returns the result. It
// shares DAO's exact framing.
func EncodeDCO(dst []byte, dco DCO) []byte {
	return EncodeDAO(dst, DAO(dco))
}

// DecodeDCO decodes a DCO payload. A DCO with no Transit suboption is
// malformed (spec.md section 9 open question: PathSequence/PathLifetime
// must not be read uninitialised), since the authoritative path sequence
// lives in the Transit suboption.
func DecodeDCO(payload []byte) (dco DCO, err error) {
	dao, err := DecodeDAO(payload)
	if err != nil {
		return DCO{}, err
	}

	if dao.Transit == nil {
		return DCO{}, fmt.Errorf("dco: missing transit option: %w", errMalformedMessage)
	}

	return DCO(dao), nil
}

// AckMessage is the shared 4-byte wire form of DAO-ACK and DCO-ACK
// (spec.md section 4.1): [instance_id][reserved=0][sequence][status].
type AckMessage struct {
	InstanceID uint8
	Sequence   uint8
	Status     uint8
}

const ackMessageLen = 4

// EncodeAck appends ack's wire form to dst and returns the result. Used
// for both DAO-ACK and DCO-ACK, which share this exact layout.
func EncodeAck(dst []byte, ack AckMessage) []byte {
	return append(dst, ack.InstanceID, 0, ack.Sequence, ack.Status)
}

// DecodeAck decodes a 4-byte DAO-ACK or DCO-ACK payload.
func DecodeAck(payload []byte) (ack AckMessage, err error) {
	if err = requireFixedLen(payload, ackMessageLen); err != nil {
		return AckMessage{}, err
	}

	return AckMessage{
		InstanceID: payload[0],
		Sequence:   payload[2],
		Status:     payload[3],
	}, nil
}
