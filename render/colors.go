package render

import "image/color"

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Cyan   = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}

	// BoxGreen is the detection bounding box and label background color
	BoxGreen = color.RGBA{R: 20, G: 220, B: 20, A: 255}

	// postPalette are the colors used for the skeleton/pose
	posePalette = []color.RGBA{
		{R: 255, G: 128, B: 0, A: 255},
		{R: 255, G: 153, B: 51, A: 255},
		{R: 255, G: 178, B: 102, A: 255},
		{R: 230, G: 230, B: 0, A: 255},
		{R: 255, G: 153, B: 255, A: 255},
		{R: 153, G: 204, B: 255, A: 255},
		{R: 255, G: 102, B: 255, A: 255},
		{R: 255, G: 51, B: 255, A: 255},
		{R: 102, G: 178, B: 255, A: 255},
		{R: 51, G: 153, B: 255, A: 255},
		{R: 255, G: 153, B: 153, A: 255},
		{R: 255, G: 102, B: 102, A: 255},
		{R: 255, G: 51, B: 51, A: 255},
		{R: 153, G: 255, B: 153, A: 255},
		{R: 102, G: 255, B: 102, A: 255},
		{R: 51, G: 255, B: 51, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
		{R: 0, G: 0, B: 255, A: 255},
		{R: 255, G: 0, B: 0, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	}

	// keyPointColors are the colors of the 17 skeleton key points (joints)
	keyPointColors = []color.RGBA{
		posePalette[16], posePalette[16], posePalette[16], posePalette[16], posePalette[16],
		posePalette[0], posePalette[0], posePalette[0], posePalette[0], posePalette[0],
		posePalette[0], posePalette[9], posePalette[9], posePalette[9], posePalette[9],
		posePalette[9], posePalette[9],
	}

	// limbColors correspond to the 19 lines drawn between the key points of
	// the skeleton
	limbColors = []color.RGBA{
		posePalette[9], posePalette[9], posePalette[9], posePalette[9], posePalette[7],
		posePalette[7], posePalette[7], posePalette[0], posePalette[0], posePalette[0],
		posePalette[0], posePalette[0], posePalette[16], posePalette[16], posePalette[16],
		posePalette[16], posePalette[16], posePalette[16], posePalette[16],
	}

	// poseClassColors are the bounding box colors of pose estimation classes
	poseClassColors = []color.RGBA{
		{R: 0, G: 0, B: 255, A: 255},   // person
		{R: 255, G: 0, B: 0, A: 255},   // bear
		{R: 0, G: 255, B: 0, A: 255},   // tree
		{R: 255, G: 0, B: 255, A: 255}, // bird
		{R: 0, G: 255, B: 255, A: 255}, // sky
		{R: 255, G: 255, B: 0, A: 255}, // cat
	}
)

// PoseClassColor returns the bounding box color of a pose estimation class
func PoseClassColor(class int) color.RGBA {

	if class < 0 {
		class = -class
	}

	return poseClassColors[class%len(poseClassColors)]
}
