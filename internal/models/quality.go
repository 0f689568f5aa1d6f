package models

// QualityProfile is a named resolution/bitrate target used to produce one
// transcoded output.
type QualityProfile struct {
	Name    string `json:"name" mapstructure:"name" validate:"required"`
	Width   int    `json:"width" mapstructure:"width" validate:"required"`
	Height  int    `json:"height" mapstructure:"height" validate:"required"`
	Bitrate int    `json:"bitrate" mapstructure:"bitrate" validate:"required"`
}

const (
	Quality1080P = "1080p"
	Quality720P  = "720p"
	Quality480P  = "480p"
	Quality360P  = "360p"
)
