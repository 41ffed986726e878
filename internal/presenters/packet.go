package presenters

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/glizzus/opusscan/internal/ingest"
)

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinSizes(sizes []int) string {
	parts := make([]string, len(sizes))
	for i, s := range sizes {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ", ")
}

// FormatPacket renders one packet as a block of "key: value" lines.
func FormatPacket(rec ingest.Record) string {
	p := rec.Packet
	var sb strings.Builder

	fmt.Fprintf(&sb, "== packet #%d at offset %d ==\n", rec.Seq, rec.Offset)
	fmt.Fprintf(&sb, "toc: 0x%02X\n", p.TOC)
	fmt.Fprintf(&sb, "config: %d (%s, %s, %s)\n", p.Config, p.Mode, p.Bandwidth, p.FrameDuration)
	fmt.Fprintf(&sb, "stereo: %s\n", yesNo(p.Stereo))
	fmt.Fprintf(&sb, "frame count code: %d\n", p.FrameCountCode)
	fmt.Fprintf(&sb, "frames: %d\n", p.FrameCount)
	fmt.Fprintf(&sb, "duration: %s\n", p.Duration())
	if p.Resolved() {
		fmt.Fprintf(&sb, "total size: %d bytes\n", p.TotalSize)
	} else {
		sb.WriteString("total size: unresolved\n")
	}
	fmt.Fprintf(&sb, "payload offset: %d\n", p.PayloadOffset)
	fmt.Fprintf(&sb, "self-delimiting: %s\n", yesNo(p.SelfDelimiting))
	if p.FrameCountCode == 3 {
		if p.CBR {
			sb.WriteString("bitrate: CBR\n")
		} else {
			sb.WriteString("bitrate: VBR\n")
		}
		if p.HasPadding {
			fmt.Fprintf(&sb, "padding: %d bytes\n", p.PaddingSize)
		} else {
			sb.WriteString("padding: none\n")
		}
	}
	if p.FrameSizes != nil {
		fmt.Fprintf(&sb, "frame sizes: %s\n", joinSizes(p.FrameSizes))
	}
	return sb.String()
}

// FormatSummary renders the totals of a run on one line.
func FormatSummary(sum ingest.Summary) string {
	return fmt.Sprintf(
		"found %d packets in %d bytes (%d unresolved, %d invalid, %d bytes skipped)\n",
		sum.Packets,
		sum.Bytes,
		sum.Unresolved,
		sum.Invalid,
		sum.SkippedBytes,
	)
}
