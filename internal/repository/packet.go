package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glizzus/opusscan/internal/ingest"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScanRun is one pass of the scanner over one input.
type ScanRun struct {
	ID         string
	Input      string
	Format     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Summary    ingest.Summary
}

// PacketRow is an archived packet.
type PacketRow struct {
	RunID          string
	Seq            int
	Offset         int64
	TOC            byte
	Config         uint8
	Mode           string
	Bandwidth      string
	FrameDuration  time.Duration
	Stereo         bool
	FrameCountCode uint8
	FrameCount     int
	// FrameSizes is nil for a packet whose boundary was not resolved.
	FrameSizes     []int
	TotalSize      int
	PayloadOffset  int
	SelfDelimiting bool
	CBR            bool
	HasPadding     bool
	PaddingSize    int
}

// PacketArchiver stores scan runs and the packets they found.
type PacketArchiver interface {
	CreateRun(ctx context.Context, run ScanRun) error
	SavePackets(ctx context.Context, runID string, records ...ingest.Record) error
	FinishRun(ctx context.Context, runID string, sum ingest.Summary) error
}

type PostgresPacketRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPacketRepository(db *pgxpool.Pool) *PostgresPacketRepository {
	return &PostgresPacketRepository{db: db}
}

var _ PacketArchiver = (*PostgresPacketRepository)(nil)

var packetColumns = []string{
	"run_id",
	"seq",
	"byte_offset",
	"toc",
	"config",
	"mode",
	"bandwidth",
	"frame_duration_us",
	"stereo",
	"frame_count",
	"frame_sizes",
	"total_size",
	"padding_size",
	"frame_count_code",
	"payload_offset",
	"self_delimiting",
	"cbr",
	"has_padding",
}

// RecordToRowParams flattens a record into the values of packetColumns.
func RecordToRowParams(runID string, rec ingest.Record) []any {
	p := rec.Packet

	var sizes []int32
	if p.FrameSizes != nil {
		sizes = make([]int32, len(p.FrameSizes))
		for i, s := range p.FrameSizes {
			sizes[i] = int32(s)
		}
	}

	return []any{
		runID,
		int32(rec.Seq),
		rec.Offset,
		int16(p.TOC),
		int16(p.Config),
		p.Mode.String(),
		p.Bandwidth.String(),
		int32(p.FrameDuration / time.Microsecond),
		p.Stereo,
		int32(p.FrameCount),
		sizes,
		int32(p.TotalSize),
		int32(p.PaddingSize),
		int16(p.FrameCountCode),
		int32(p.PayloadOffset),
		p.SelfDelimiting,
		p.CBR,
		p.HasPadding,
	}
}

func (r *PostgresPacketRepository) CreateRun(ctx context.Context, run ScanRun) error {
	const query = `
	INSERT INTO scan_run (id, input, format, started_at)
	VALUES ($1, $2, $3, $4)
	`

	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	if _, err := r.db.Exec(ctx, query, run.ID, run.Input, run.Format, startedAt); err != nil {
		return fmt.Errorf("failed to insert scan run: %w", err)
	}
	return nil
}

// SavePackets copies records into the packet table and bumps the run's packet
// count in one transaction.
func (r *PostgresPacketRepository) SavePackets(ctx context.Context, runID string, records ...ingest.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Warn("failed to rollback transaction", slog.Any("error", err))
		}
	}()

	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = RecordToRowParams(runID, rec)
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"opus_packet"}, packetColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy packets: %w", err)
	}

	const updateQuery = `UPDATE scan_run SET packets = packets + $2 WHERE id = $1`
	if _, err := tx.Exec(ctx, updateQuery, runID, copied); err != nil {
		return fmt.Errorf("failed to update packet count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresPacketRepository) FinishRun(ctx context.Context, runID string, sum ingest.Summary) error {
	const query = `
	UPDATE scan_run SET
		finished_at = now(),
		bytes = $2,
		packets = $3,
		unresolved = $4,
		invalid = $5,
		skipped_bytes = $6
	WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, runID, sum.Bytes, sum.Packets, sum.Unresolved, sum.Invalid, sum.SkippedBytes)
	if err != nil {
		return fmt.Errorf("failed to finish scan run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scan run %s does not exist", runID)
	}
	return nil
}

func (r *PostgresPacketRepository) GetRun(ctx context.Context, runID string) (ScanRun, error) {
	const query = `
	SELECT id, input, format, started_at, finished_at,
		bytes, packets, unresolved, invalid, skipped_bytes
	FROM scan_run
	WHERE id = $1
	`

	var run ScanRun
	err := r.db.QueryRow(ctx, query, runID).Scan(
		&run.ID,
		&run.Input,
		&run.Format,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Summary.Bytes,
		&run.Summary.Packets,
		&run.Summary.Unresolved,
		&run.Summary.Invalid,
		&run.Summary.SkippedBytes,
	)
	if err != nil {
		return ScanRun{}, fmt.Errorf("failed to get scan run %s: %w", runID, err)
	}
	return run, nil
}

// ListPackets returns the packets of a run in the order they were found.
func (r *PostgresPacketRepository) ListPackets(ctx context.Context, runID string) ([]PacketRow, error) {
	const query = `
	SELECT run_id, seq, byte_offset, toc, config, mode, bandwidth,
		frame_duration_us, stereo, frame_count, frame_sizes, total_size, padding_size,
		frame_count_code, payload_offset, self_delimiting, cbr, has_padding
	FROM opus_packet
	WHERE run_id = $1
	ORDER BY seq
	`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query packets: %w", err)
	}
	defer rows.Close()

	var packets []PacketRow
	for rows.Next() {
		var (
			row        PacketRow
			toc        int16
			config     int16
			code       int16
			durationUs int32
			sizes      []int32
		)
		if err := rows.Scan(
			&row.RunID,
			&row.Seq,
			&row.Offset,
			&toc,
			&config,
			&row.Mode,
			&row.Bandwidth,
			&durationUs,
			&row.Stereo,
			&row.FrameCount,
			&sizes,
			&row.TotalSize,
			&row.PaddingSize,
			&code,
			&row.PayloadOffset,
			&row.SelfDelimiting,
			&row.CBR,
			&row.HasPadding,
		); err != nil {
			return nil, fmt.Errorf("failed to scan packet row: %w", err)
		}
		row.TOC = byte(toc)
		row.Config = uint8(config)
		row.FrameCountCode = uint8(code)
		row.FrameDuration = time.Duration(durationUs) * time.Microsecond
		if sizes != nil {
			row.FrameSizes = make([]int, len(sizes))
			for i, s := range sizes {
				row.FrameSizes[i] = int(s)
			}
		}
		packets = append(packets, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read packet rows: %w", err)
	}
	return packets, nil
}
