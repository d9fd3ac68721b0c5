package main

import (
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/memmaker/chunkcull/engine/cull"
	"github.com/memmaker/chunkcull/engine/util"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

type frameEntry struct {
	Frame      int            `json:"frame"`
	Pass       uint64         `json:"pass"`
	Fresh      bool           `json:"fresh"`
	Skipped    bool           `json:"skipped,omitempty"`
	Position   mgl32.Vec3     `json:"position"`
	Visible    int            `json:"visible"`
	NeedsBuild int            `json:"needs_build"`
	Stats      cull.PassStats `json:"stats"`
}

type report struct {
	FreshFrames int               `json:"fresh_frames"`
	StaleFrames int               `json:"stale_frames"`
	Frames      []frameEntry      `json:"frames"`
	Timers      []util.TimerState `json:"timers"`
}

func (r *report) add(e frameEntry) {
	if e.Fresh {
		r.FreshFrames++
	} else {
		r.StaleFrames++
	}
	r.Frames = append(r.Frames, e)
}

func (r *report) write(filename string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}
	if err := os.WriteFile(filename, b, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", filename)
	}
	util.LogIOInfo("wrote report", "file", filename, "frames", len(r.Frames))
	return nil
}
