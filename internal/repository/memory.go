package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/glizzus/opusscan/internal/ingest"
)

// MemoryPacketArchiver keeps runs and packets in memory.
type MemoryPacketArchiver struct {
	mu      sync.Mutex
	runs    map[string]*ScanRun
	packets map[string][]ingest.Record
}

func NewMemoryPacketArchiver() *MemoryPacketArchiver {
	return &MemoryPacketArchiver{
		runs:    make(map[string]*ScanRun),
		packets: make(map[string][]ingest.Record),
	}
}

var _ PacketArchiver = (*MemoryPacketArchiver)(nil)

func (a *MemoryPacketArchiver) CreateRun(ctx context.Context, run ScanRun) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.runs[run.ID]; ok {
		return fmt.Errorf("scan run %s already exists", run.ID)
	}
	a.runs[run.ID] = &run
	return nil
}

func (a *MemoryPacketArchiver) SavePackets(ctx context.Context, runID string, records ...ingest.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	run, ok := a.runs[runID]
	if !ok {
		return fmt.Errorf("scan run %s does not exist", runID)
	}
	a.packets[runID] = append(a.packets[runID], records...)
	run.Summary.Packets += len(records)
	return nil
}

func (a *MemoryPacketArchiver) FinishRun(ctx context.Context, runID string, sum ingest.Summary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	run, ok := a.runs[runID]
	if !ok {
		return fmt.Errorf("scan run %s does not exist", runID)
	}
	run.Summary = sum
	now := time.Now()
	run.FinishedAt = &now
	return nil
}

// Run returns a copy of the run and its packets.
func (a *MemoryPacketArchiver) Run(runID string) (ScanRun, []ingest.Record, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	run, ok := a.runs[runID]
	if !ok {
		return ScanRun{}, nil, false
	}
	return *run, append([]ingest.Record(nil), a.packets[runID]...), true
}
