// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

// QuadVertexCount is the number of vertices of a quad drawn as a
// triangle strip.
const QuadVertexCount = 4

// QuadPositions is the full-viewport quad in NDC, ordered bottom-left,
// bottom-right, top-left, top-right.
var QuadPositions = [8]float32{
	-1, -1,
	1, -1,
	-1, 1,
	1, 1,
}

// QuadTexCoords maps QuadPositions so that texture row t=0 lands at the
// top of the viewport.
var QuadTexCoords = [8]float32{
	0, 1,
	1, 1,
	0, 0,
	1, 0,
}

// QuadBuffer returns vertex buffer contents holding positions followed by
// texture coordinates. Texture coordinates start at QuadTexCoordOffset.
func QuadBuffer() []float32 {
	buf := make([]float32, 0, 16)
	buf = append(buf, QuadPositions[:]...)
	buf = append(buf, QuadTexCoords[:]...)
	return buf
}

// QuadTexCoordOffset is the float offset of texture coordinates in
// QuadBuffer.
const QuadTexCoordOffset = 8

// RegionPositions returns a triangle-strip quad covering the NDC rectangle
// [left, right] x [bottom, top].
func RegionPositions(left, bottom, right, top float32) [8]float32 {
	return [8]float32{
		left, bottom,
		right, bottom,
		left, top,
		right, top,
	}
}
