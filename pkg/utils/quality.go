package utils

import (
	"github.com/streamhive/live-backend/internal/models"
)

func GetDefaultBitrate(name string) int {
	switch name {
	case "2160p", "4K":
		return 12000
	case "1440p", "2K":
		return 8000
	case models.Quality1080P:
		return 4500
	case models.Quality720P:
		return 2500
	case models.Quality480P:
		return 1000
	case models.Quality360P:
		return 600
	default:
		return 1000
	}
}

func GetDefaultResolution(name string) (width, height int) {
	switch name {
	case "2160p", "4K":
		return 3840, 2160
	case "1440p", "2K":
		return 2560, 1440
	case models.Quality1080P:
		return 1920, 1080
	case models.Quality720P:
		return 1280, 720
	case models.Quality480P:
		return 854, 480
	case models.Quality360P:
		return 640, 360
	default:
		return 854, 480
	}
}

// GetDefaultQualities is the delivery ladder used when a job arrives with no
// explicit quality list.
func GetDefaultQualities() []models.QualityProfile {
	return []models.QualityProfile{
		{
			Name:    models.Quality720P,
			Width:   1280,
			Height:  720,
			Bitrate: 2500,
		},
		{
			Name:    models.Quality480P,
			Width:   854,
			Height:  480,
			Bitrate: 1000,
		},
	}
}

// ProfileForName builds a profile for a named quality using the default
// resolution/bitrate table.
func ProfileForName(name string) models.QualityProfile {
	w, h := GetDefaultResolution(name)
	return models.QualityProfile{
		Name:    name,
		Width:   w,
		Height:  h,
		Bitrate: GetDefaultBitrate(name),
	}
}
