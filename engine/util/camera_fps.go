package util

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// FPSCamera is a free flying camera. rotatex is the yaw in degrees measured
// from +X towards +Z, rotatey the pitch in degrees.
type FPSCamera struct {
	position    mgl32.Vec3
	cameraFront mgl32.Vec3
	cameraRight mgl32.Vec3
	cameraUp    mgl32.Vec3
	rotatex     float32
	rotatey     float32

	fov          float32
	nearPlane    float32
	farPlane     float32
	windowWidth  int
	windowHeight int
}

func NewFPSCamera(pos mgl32.Vec3, windowWidth, windowHeight int) *FPSCamera {
	f := &FPSCamera{
		position:     pos,
		rotatey:      0,
		rotatex:      -90,
		fov:          70,
		nearPlane:    0.1,
		farPlane:     1024,
		windowWidth:  windowWidth,
		windowHeight: windowHeight,
	}
	f.updateTransform()
	return f
}

func (c *FPSCamera) GetPosition() mgl32.Vec3 {
	return c.position
}

func (c *FPSCamera) GetFront() mgl32.Vec3 {
	return c.cameraFront
}

func (c *FPSCamera) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.position, c.position.Add(c.cameraFront), c.cameraUp)
}

func (c *FPSCamera) GetProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.fov), c.GetAspectRatio(), c.nearPlane, c.farPlane)
}

func (c *FPSCamera) GetProjectionViewMatrix() mgl32.Mat4 {
	return c.GetProjectionMatrix().Mul4(c.GetViewMatrix())
}

func (c *FPSCamera) GetAspectRatio() float32 {
	if c.windowHeight == 0 {
		return 1
	}
	return float32(c.windowWidth) / float32(c.windowHeight)
}

func (c *FPSCamera) GetNearPlaneDist() float32 {
	return c.nearPlane
}

func (c *FPSCamera) GetFarPlaneDist() float32 {
	return c.farPlane
}

func (c *FPSCamera) SetFarPlaneDist(far float32) {
	c.farPlane = far
}

func (c *FPSCamera) SetLookTarget(position mgl32.Vec3) {
	front := position.Sub(c.position).Normalize()
	c.rotatex = mgl32.RadToDeg(float32(math.Atan2(float64(front.Z()), float64(front.X()))))
	c.rotatey = mgl32.RadToDeg(float32(math.Asin(float64(front.Y()))))
	c.updateTransform()
}

// GetRotation returns yaw and pitch in degrees.
func (c *FPSCamera) GetRotation() (float32, float32) {
	return c.rotatex, c.rotatey
}

func (c *FPSCamera) Reposition(pos mgl32.Vec3, rotX float32, rotY float32) {
	c.position = pos
	c.rotatex = rotX
	c.rotatey = rotY
	c.updateTransform()
}

func (c *FPSCamera) SetFOV(fov float32) {
	c.fov = fov
}

func (c *FPSCamera) GetFOV() float32 {
	return c.fov
}

func (c *FPSCamera) updateTransform() {
	if c.rotatey > 89 {
		c.rotatey = 89
	}
	if c.rotatey < -89 {
		c.rotatey = -89
	}
	front := mgl32.Vec3{
		Cos(ToRadian(c.rotatey)) * Cos(ToRadian(c.rotatex)),
		Sin(ToRadian(c.rotatey)),
		Cos(ToRadian(c.rotatey)) * Sin(ToRadian(c.rotatex)),
	}
	c.cameraFront = front.Normalize()
	c.cameraRight = c.cameraFront.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	c.cameraUp = c.cameraRight.Cross(c.cameraFront).Normalize()
}

func (c *FPSCamera) String() string {
	pos := c.position
	return fmt.Sprintf("Pos: (%0.2f, %0.2f, %0.2f) Aim: (%0.2f, %0.2f)", pos.X(), pos.Y(), pos.Z(), c.rotatex, c.rotatey)
}
