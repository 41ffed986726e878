package opus_test

import (
	"testing"
	"time"

	"github.com/glizzus/opusscan/internal/opus"
	"github.com/google/go-cmp/cmp"
)

func TestParseTOC(t *testing.T) {
	tests := []struct {
		name string
		b    byte
		want opus.TOC
	}{
		{"config0 mono code0", 0x00, opus.TOC{Config: 0, Stereo: false, FrameCountCode: 0}},
		{"config0 stereo code0", 0x04, opus.TOC{Config: 0, Stereo: true, FrameCountCode: 0}},
		{"config1 mono code3", 0x0B, opus.TOC{Config: 1, Stereo: false, FrameCountCode: 3}},
		{"config15 stereo code2", 0x7E, opus.TOC{Config: 15, Stereo: true, FrameCountCode: 2}},
		{"config31 stereo code3", 0xFF, opus.TOC{Config: 31, Stereo: true, FrameCountCode: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := opus.ParseTOC(tt.b)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseTOC(%#02x) mismatch (-want +got):\n%s", tt.b, diff)
			}
			if back := got.Byte(); back != tt.b {
				t.Errorf("ParseTOC(%#02x).Byte() = %#02x", tt.b, back)
			}
		})
	}
}

func TestParseTOCAllBytes(t *testing.T) {
	for i := range 256 {
		b := byte(i)
		if got := opus.ParseTOC(b).Byte(); got != b {
			t.Errorf("ParseTOC(%#02x).Byte() = %#02x", b, got)
		}
	}
}

func TestLookupConfig(t *testing.T) {
	ranges := []struct {
		first, last uint8
		mode        opus.Mode
		bandwidth   opus.Bandwidth
		durations   []time.Duration
	}{
		{0, 3, opus.ModeSILK, opus.BandwidthNB, silkDurations},
		{4, 7, opus.ModeSILK, opus.BandwidthMB, silkDurations},
		{8, 11, opus.ModeSILK, opus.BandwidthWB, silkDurations},
		{12, 13, opus.ModeHybrid, opus.BandwidthSWB, hybridDurations},
		{14, 15, opus.ModeHybrid, opus.BandwidthFB, hybridDurations},
		{16, 19, opus.ModeCELT, opus.BandwidthNB, celtDurations},
		{20, 23, opus.ModeCELT, opus.BandwidthWB, celtDurations},
		{24, 27, opus.ModeCELT, opus.BandwidthSWB, celtDurations},
		{28, 31, opus.ModeCELT, opus.BandwidthFB, celtDurations},
	}

	seen := 0
	for _, r := range ranges {
		for config := r.first; config <= r.last; config++ {
			got, ok := opus.LookupConfig(config)
			if !ok {
				t.Fatalf("LookupConfig(%d) reported no entry", config)
			}
			want := opus.ConfigEntry{
				Mode:          r.mode,
				Bandwidth:     r.bandwidth,
				FrameDuration: r.durations[config-r.first],
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("LookupConfig(%d) mismatch (-want +got):\n%s", config, diff)
			}
			seen++
		}
	}
	if seen != 32 {
		t.Errorf("checked %d configs, want 32", seen)
	}

	if _, ok := opus.LookupConfig(32); ok {
		t.Errorf("LookupConfig(32) reported an entry")
	}
}

var (
	silkDurations   = []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 60 * time.Millisecond}
	hybridDurations = []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	celtDurations   = []time.Duration{2500 * time.Microsecond, 5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond}
)

func TestEnumStrings(t *testing.T) {
	if got := opus.ModeHybrid.String(); got != "Hybrid" {
		t.Errorf("ModeHybrid.String() = %q", got)
	}
	if got := opus.BandwidthSWB.String(); got != "SWB" {
		t.Errorf("BandwidthSWB.String() = %q", got)
	}
	if got := opus.BandwidthFB.AudioBandwidthHz(); got != 20000 {
		t.Errorf("BandwidthFB.AudioBandwidthHz() = %d", got)
	}
}
