package rpl

import "encoding/binary"

// MetricContainer is the decoded form of the DAG Metric Container
// suboption (RFC 6551), restricted to the single aggregated ETX or Energy
// value this package's Objective Functions actually consume (spec.md
// section 3: "aggregated metric container (none / ETX / Energy)").
//
// Wire format (4 bytes, following the suboption type/length header):
//
//	[type:1][reserved:1][value:2]
type MetricContainer struct {
	// Type selects which metric Value carries.
	Type MetricContainerType

	// Value is the aggregated path metric: ETX in [ETXDivisor] units, or
	// an opaque energy value in whatever unit the energy-aware OF uses.
	Value uint16
}

// metricContainerLen is the encoded body length of a [MetricContainer].
const metricContainerLen = 4

// encode appends mc's wire form to dst and returns the result.
func (mc MetricContainer) encode(dst []byte) []byte {
	body := make([]byte, metricContainerLen)
	body[0] = byte(mc.Type)
	binary.BigEndian.PutUint16(body[2:4], mc.Value)

	return appendSubOption(dst, subOptDAGMetricContainer, body)
}

// decodeMetricContainer decodes a DAG Metric Container suboption body.
func decodeMetricContainer(body []byte) (mc MetricContainer, err error) {
	if len(body) != metricContainerLen {
		return MetricContainer{}, errMalformedMessage
	}

	return MetricContainer{
		Type:  MetricContainerType(body[0]),
		Value: binary.BigEndian.Uint16(body[2:4]),
	}, nil
}
