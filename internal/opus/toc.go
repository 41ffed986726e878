package opus

import "time"

// Mode is the coding mode selected by a packet's configuration number.
type Mode uint8

const (
	ModeSILK Mode = iota
	ModeHybrid
	ModeCELT
)

func (m Mode) String() string {
	switch m {
	case ModeSILK:
		return "SILK-only"
	case ModeHybrid:
		return "Hybrid"
	case ModeCELT:
		return "CELT-only"
	default:
		return "unknown"
	}
}

// Bandwidth is the audio bandwidth selected by a packet's configuration number.
type Bandwidth uint8

const (
	BandwidthNB Bandwidth = iota
	BandwidthMB
	BandwidthWB
	BandwidthSWB
	BandwidthFB
)

func (b Bandwidth) String() string {
	switch b {
	case BandwidthNB:
		return "NB"
	case BandwidthMB:
		return "MB"
	case BandwidthWB:
		return "WB"
	case BandwidthSWB:
		return "SWB"
	case BandwidthFB:
		return "FB"
	default:
		return "unknown"
	}
}

// AudioBandwidthHz returns the upper edge of the coded audio band.
func (b Bandwidth) AudioBandwidthHz() int {
	switch b {
	case BandwidthNB:
		return 4000
	case BandwidthMB:
		return 6000
	case BandwidthWB:
		return 8000
	case BandwidthSWB:
		return 12000
	case BandwidthFB:
		return 20000
	default:
		return 0
	}
}

// TOC holds the three fields packed into the first byte of every packet.
type TOC struct {
	Config         uint8 // 0-31
	Stereo         bool
	FrameCountCode uint8 // 0-3
}

// ParseTOC splits a TOC byte into its fields. It cannot fail.
func ParseTOC(b byte) TOC {
	return TOC{
		Config:         b >> 3,
		Stereo:         b&0x04 != 0,
		FrameCountCode: b & 0x03,
	}
}

// Byte packs the fields back into a TOC byte.
func (t TOC) Byte() byte {
	b := (t.Config & 0x1F) << 3
	if t.Stereo {
		b |= 0x04
	}
	return b | t.FrameCountCode&0x03
}

// ConfigEntry is one row of the configuration table.
type ConfigEntry struct {
	Mode          Mode
	Bandwidth     Bandwidth
	FrameDuration time.Duration
}

const (
	ms2_5 = 2500 * time.Microsecond
	ms5   = 5 * time.Millisecond
	ms10  = 10 * time.Millisecond
	ms20  = 20 * time.Millisecond
	ms40  = 40 * time.Millisecond
	ms60  = 60 * time.Millisecond
)

// configTable is RFC 6716 section 3.1, indexed by configuration number.
var configTable = [32]ConfigEntry{
	// SILK-only NB, MB, WB
	{ModeSILK, BandwidthNB, ms10}, {ModeSILK, BandwidthNB, ms20}, {ModeSILK, BandwidthNB, ms40}, {ModeSILK, BandwidthNB, ms60},
	{ModeSILK, BandwidthMB, ms10}, {ModeSILK, BandwidthMB, ms20}, {ModeSILK, BandwidthMB, ms40}, {ModeSILK, BandwidthMB, ms60},
	{ModeSILK, BandwidthWB, ms10}, {ModeSILK, BandwidthWB, ms20}, {ModeSILK, BandwidthWB, ms40}, {ModeSILK, BandwidthWB, ms60},
	// Hybrid SWB, FB
	{ModeHybrid, BandwidthSWB, ms10}, {ModeHybrid, BandwidthSWB, ms20},
	{ModeHybrid, BandwidthFB, ms10}, {ModeHybrid, BandwidthFB, ms20},
	// CELT-only NB, WB, SWB, FB
	{ModeCELT, BandwidthNB, ms2_5}, {ModeCELT, BandwidthNB, ms5}, {ModeCELT, BandwidthNB, ms10}, {ModeCELT, BandwidthNB, ms20},
	{ModeCELT, BandwidthWB, ms2_5}, {ModeCELT, BandwidthWB, ms5}, {ModeCELT, BandwidthWB, ms10}, {ModeCELT, BandwidthWB, ms20},
	{ModeCELT, BandwidthSWB, ms2_5}, {ModeCELT, BandwidthSWB, ms5}, {ModeCELT, BandwidthSWB, ms10}, {ModeCELT, BandwidthSWB, ms20},
	{ModeCELT, BandwidthFB, ms2_5}, {ModeCELT, BandwidthFB, ms5}, {ModeCELT, BandwidthFB, ms10}, {ModeCELT, BandwidthFB, ms20},
}

// LookupConfig returns the mode, bandwidth and frame duration for a
// configuration number. It reports false only for config > 31, which a TOC
// byte cannot produce.
func LookupConfig(config uint8) (ConfigEntry, bool) {
	if int(config) >= len(configTable) {
		return ConfigEntry{}, false
	}
	return configTable[config], true
}
