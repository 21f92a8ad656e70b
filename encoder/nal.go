// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package encoder

import "bytes"

// H.264 NAL unit types.
const (
	NALTypeIDR = 5
	NALTypeSPS = 7
	NALTypePPS = 8
)

// SplitNALUnits splits an Annex-B byte stream at its start codes. The
// returned units alias data and do not include start codes. Data without
// a start code yields no units.
func SplitNALUnits(data []byte) [][]byte {
	var units [][]byte
	start := -1
	for i := 0; i+2 < len(data); {
		if data[i] == 0 && data[i+1] == 0 && data[i+2] == 1 {
			if start >= 0 {
				units = appendUnit(units, data[start:i])
			}
			i += 3
			start = i
			continue
		}
		i++
	}
	if start >= 0 {
		units = appendUnit(units, data[start:])
	}
	return units
}

// appendUnit drops the zero bytes a 4-byte start code leaves at the end
// of the previous unit.
func appendUnit(units [][]byte, u []byte) [][]byte {
	u = bytes.TrimRight(u, "\x00")
	if len(u) == 0 {
		return units
	}
	return append(units, u)
}

// NALType returns the type of an H.264 NAL unit.
func NALType(nal []byte) int {
	if len(nal) == 0 {
		return 0
	}
	return int(nal[0] & 0x1f)
}

// ParameterSets returns copies of the first SPS and PPS found in an
// Annex-B stream.
func ParameterSets(data []byte) (sps, pps []byte, ok bool) {
	for _, u := range SplitNALUnits(data) {
		switch NALType(u) {
		case NALTypeSPS:
			if sps == nil {
				sps = bytes.Clone(u)
			}
		case NALTypePPS:
			if pps == nil {
				pps = bytes.Clone(u)
			}
		}
		if sps != nil && pps != nil {
			return sps, pps, true
		}
	}
	return nil, nil, false
}
