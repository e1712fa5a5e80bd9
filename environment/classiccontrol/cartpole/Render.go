package cartpole

import (
	"image"

	"github.com/fogleman/gg"
)

const (
	screenWidth  = 600
	screenHeight = 400
	cartWidth    = 50.0
	cartHeight   = 30.0
	poleWidth    = 10.0
	trackHeight  = 100.0 // height of the track above the bottom edge
)

// Render draws the current state of the Cartpole environment, in the
// same layout gym uses: the track is 2·FailPosition wide and fills the
// width of the image.
func (c *base) Render() (image.Image, error) {
	dc := gg.NewContext(screenWidth, screenHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	scale := screenWidth / (2 * FailPosition)
	poleLength := scale * (2 * c.halfPoleLength)

	state := c.lastStep.Observation
	x, th := state.AtVec(0), state.AtVec(2)

	cartX := x*scale + screenWidth/2.0
	cartY := screenHeight - trackHeight

	// Track
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(0, cartY, screenWidth, cartY)
	dc.Stroke()

	// Cart
	dc.DrawRectangle(cartX-cartWidth/2, cartY-cartHeight/2, cartWidth,
		cartHeight)
	dc.Fill()

	// Pole, rotated about the axle. An angle of 0 points straight up.
	axleY := cartY - cartHeight/4
	dc.Push()
	dc.RotateAbout(th, cartX, axleY)
	dc.SetRGB(0.8, 0.6, 0.4)
	dc.DrawRectangle(cartX-poleWidth/2, axleY-poleLength, poleWidth,
		poleLength)
	dc.Fill()
	dc.Pop()

	// Axle
	dc.SetRGB(0.5, 0.5, 0.8)
	dc.DrawCircle(cartX, axleY, poleWidth/2)
	dc.Fill()

	return dc.Image(), nil
}
