// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "math"

// Mat4 is a 4x4 column-major matrix. Element (row r, column c) is at
// index c*4+r, matching the layout shaders expect.
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns m × n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for c := range 4 {
		for r := range 4 {
			var sum float32
			for k := range 4 {
				sum += m[k*4+r] * n[c*4+k]
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// Rotate returns m × R where R rotates by angle degrees around the axis
// (x, y, z).
func (m Mat4) Rotate(angle, x, y, z float32) Mat4 {
	return m.Mul(Rotation(angle, x, y, z))
}

// RotateX returns m rotated by angle degrees around the X axis.
func (m Mat4) RotateX(angle float32) Mat4 { return m.Rotate(angle, 1, 0, 0) }

// RotateY returns m rotated by angle degrees around the Y axis.
func (m Mat4) RotateY(angle float32) Mat4 { return m.Rotate(angle, 0, 1, 0) }

// RotateZ returns m rotated by angle degrees around the Z axis.
func (m Mat4) RotateZ(angle float32) Mat4 { return m.Rotate(angle, 0, 0, 1) }

// Rotation returns a rotation of angle degrees around the axis (x, y, z).
// The axis need not be normalized. A zero axis yields the identity.
func Rotation(angle, x, y, z float32) Mat4 {
	length := float32(math.Sqrt(float64(x*x + y*y + z*z)))
	if length == 0 {
		return Identity()
	}
	x, y, z = x/length, y/length, z/length

	s, c := sincosDegrees(angle)
	nc := 1 - c

	return Mat4{
		x*x*nc + c, x*y*nc + z*s, z*x*nc - y*s, 0,
		x*y*nc - z*s, y*y*nc + c, y*z*nc + x*s, 0,
		z*x*nc + y*s, y*z*nc - x*s, z*z*nc + c, 0,
		0, 0, 0, 1,
	}
}

// Ortho returns an orthographic projection.
func Ortho(left, right, bottom, top, near, far float32) Mat4 {
	rw := 1 / (right - left)
	rh := 1 / (top - bottom)
	rd := 1 / (far - near)

	var m Mat4
	m[0] = 2 * rw
	m[5] = 2 * rh
	m[10] = -2 * rd
	m[12] = -(right + left) * rw
	m[13] = -(top + bottom) * rh
	m[14] = -(far + near) * rd
	m[15] = 1
	return m
}

// Transform returns m × (x, y, z, w).
func (m Mat4) Transform(x, y, z, w float32) (tx, ty, tz, tw float32) {
	v := [4]float32{x, y, z, w}
	var out [4]float32
	for r := range 4 {
		for k := range 4 {
			out[r] += m[k*4+r] * v[k]
		}
	}
	return out[0], out[1], out[2], out[3]
}

// Array returns the matrix as a plain array for draw commands.
func (m Mat4) Array() [16]float32 { return m }

// sincosDegrees is exact for multiples of 90 degrees so axis-aligned
// flips produce clean matrices.
func sincosDegrees(angle float32) (s, c float32) {
	a := math.Mod(float64(angle), 360)
	if a < 0 {
		a += 360
	}
	switch a {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	rad := a * math.Pi / 180
	return float32(math.Sin(rad)), float32(math.Cos(rad))
}
