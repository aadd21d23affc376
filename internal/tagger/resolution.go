package tagger

// resolutionLadder holds the standard delivery resolutions, ascending.
var resolutionLadder = [][2]int{
	{426, 240},
	{640, 360},
	{854, 480},
	{1280, 720},
	{1920, 1080},
	{2560, 1440},
	{3840, 2160},
	{7680, 4320},
}

// BucketResolution rounds actual dimensions up to the next ladder entry, so
// a slightly-cropped 1918x1072 file still reads as 1920x1080. Dimensions
// beyond the ladder clamp to its top.
func BucketResolution(width, height int) (int, int) {
	for _, entry := range resolutionLadder {
		if width <= entry[0] && height <= entry[1] {
			return entry[0], entry[1]
		}
	}
	top := resolutionLadder[len(resolutionLadder)-1]
	return top[0], top[1]
}
