package util

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func Sin(x float32) float32 {
	return float32(math.Sin(float64(x)))
}

func Cos(x float32) float32 {
	return float32(math.Cos(float64(x)))
}

func ToRadian(angle float32) float32 {
	return mgl32.DegToRad(angle)
}

func Clamp(value, min, max float64) float64 {
	return math.Min(math.Max(value, min), max)
}
