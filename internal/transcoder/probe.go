package transcoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UnknownCodec is recorded when no probe result is available.
const UnknownCodec = "unknown"

// ProbeResult is the technical metadata of a video's first video stream.
// Width and Height are the coded dimensions, before rotation.
type ProbeResult struct {
	Width    int
	Height   int
	Duration int // whole seconds
	Codec    string
	Rotation int // degrees
}

// EffectiveDimensions returns the display dimensions: coded dimensions with
// width and height swapped for a quarter-turn rotation.
func (p ProbeResult) EffectiveDimensions() (width, height int) {
	switch abs(p.Rotation) % 360 {
	case 90, 270:
		return p.Height, p.Width
	default:
		return p.Width, p.Height
	}
}

// IsShort reports a vertical video: effective height greater than width.
func (p ProbeResult) IsShort() bool {
	w, h := p.EffectiveDimensions()
	return h > w
}

// Dimensions formats the effective dimensions as "WxH".
func (p ProbeResult) Dimensions() string {
	w, h := p.EffectiveDimensions()
	return fmt.Sprintf("%dx%d", w, h)
}

// flexNumber decodes a JSON number or a numeric string; anything else is 0.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		*f = flexNumber(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	*f = flexNumber(v)
	return nil
}

type probeOutput struct {
	Streams []struct {
		Width     int        `json:"width"`
		Height    int        `json:"height"`
		Duration  flexNumber `json:"duration"`
		CodecName string     `json:"codec_name"`
		Tags      struct {
			Rotate flexNumber `json:"rotate"`
		} `json:"tags"`
		SideDataList []struct {
			Rotation flexNumber `json:"rotation"`
		} `json:"side_data_list"`
		Disposition map[string]flexNumber `json:"disposition"`
	} `json:"streams"`
}

// ParseProbe interprets ffprobe JSON output. Rotation is taken from the
// stream tag, then side data, then disposition; the first non-zero wins.
func ParseProbe(data []byte) (*ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("invalid ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return nil, fmt.Errorf("no video stream")
	}

	s := out.Streams[0]
	res := &ProbeResult{
		Width:    s.Width,
		Height:   s.Height,
		Duration: int(s.Duration),
		Codec:    strings.ToUpper(s.CodecName),
	}
	if res.Codec == "" {
		res.Codec = strings.ToUpper(UnknownCodec)
	}

	res.Rotation = int(s.Tags.Rotate)
	if res.Rotation == 0 {
		for _, sd := range s.SideDataList {
			if sd.Rotation != 0 {
				res.Rotation = int(sd.Rotation)
				break
			}
		}
	}
	if res.Rotation == 0 {
		res.Rotation = int(s.Disposition["rotate"])
	}

	return res, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
