package sink

import (
	"context"
	"fmt"

	"github.com/glizzus/opusscan/internal/ingest"
	"github.com/glizzus/opusscan/internal/repository"
)

// ArchiveHandler stores the packets of one scan run.
type ArchiveHandler struct {
	archiver repository.PacketArchiver
	runID    string
}

// NewArchiveHandler records the start of run and returns a handler that
// archives packets under it.
func NewArchiveHandler(ctx context.Context, archiver repository.PacketArchiver, run repository.ScanRun) (*ArchiveHandler, error) {
	if err := archiver.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	return &ArchiveHandler{archiver: archiver, runID: run.ID}, nil
}

func (h *ArchiveHandler) HandlePackets(ctx context.Context, records ...ingest.Record) error {
	if err := h.archiver.SavePackets(ctx, h.runID, records...); err != nil {
		return fmt.Errorf("failed to archive packets for run %s: %w", h.runID, err)
	}
	return nil
}

// Finish stores the totals of the run.
func (h *ArchiveHandler) Finish(ctx context.Context, sum ingest.Summary) error {
	return h.archiver.FinishRun(ctx, h.runID, sum)
}

var _ ingest.Handler = (*ArchiveHandler)(nil)
