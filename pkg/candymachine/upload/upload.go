// Package upload writes config lines into a candy machine in fixed size chunks, in parallel.
package upload

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/miraland-labs/sugar/pkg/candymachine"
	"github.com/miraland-labs/sugar/pkg/candymachine/client"
	"github.com/miraland-labs/sugar/pkg/candymachine/config"
	"github.com/miraland-labs/sugar/pkg/candymachine/configline"
	"github.com/miraland-labs/sugar/pkg/candymachine/layout"
	"github.com/miraland-labs/sugar/pkg/candymachine/monitor"
	"github.com/miraland-labs/sugar/pkg/candymachine/upload/worker"
)

var ErrChunkAbandoned = errors.New("config line chunk abandoned")

// ChunkError is a chunk the uploader gave up on after exhausting its retries.
type ChunkError struct {
	Start, End int
	Offset     uint64
	Err        error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("config lines %d..%d at offset %d: %s", e.Start, e.End-1, e.Offset, e.Err)
}

func (e *ChunkError) Unwrap() []error {
	return []error{ErrChunkAbandoned, e.Err}
}

type Result struct {
	// Written holds the indices of every line confirmed on chain by this run, ascending.
	Written    []int
	Skipped    int
	Signatures []solana.Signature
}

type Uploader struct {
	ledger    client.Ledger
	codec     configline.Codec
	chunkSize int
	workers   int
	retries   uint8
	lggr      logger.Logger
}

func NewUploader(ledger client.Ledger, l layout.Layout, cfg config.Config, lggr logger.Logger) *Uploader {
	return &Uploader{
		ledger:    ledger,
		codec:     configline.NewCodec(l),
		chunkSize: candymachine.ConfigChunkSize,
		workers:   max(cfg.ParallelLimit(), 1),
		retries:   cfg.UploadRetries(),
		lggr:      logger.Named(lggr, "Uploader"),
	}
}

type chunkJob struct {
	chunk  configline.Chunk
	offset uint64
	data   []byte
	up     *Uploader
	target solana.PublicKey
	done   func(sig solana.Signature, err error)
	once   sync.Once
}

func (j *chunkJob) String() string {
	return fmt.Sprintf("config lines %d..%d", j.chunk.Start, j.chunk.End()-1)
}

// Run sends the chunk. Retries reuse the same offset and bytes.
func (j *chunkJob) Run(ctx context.Context) error {
	sig, err := j.up.ledger.SendBytes(ctx, j.target, j.offset, j.data)
	if err != nil {
		monitor.IncChunkWrite("retry")
		return err
	}
	monitor.IncChunkWrite("ok")
	j.once.Do(func() { j.done(sig, nil) })
	return nil
}

func (j *chunkJob) Abandon(err error) {
	monitor.IncChunkWrite("abandoned")
	j.once.Do(func() {
		j.done(solana.Signature{}, &ChunkError{Start: j.chunk.Start, End: j.chunk.End(), Offset: j.offset, Err: err})
	})
}

// Upload writes lines into candyMachine. onChain reports lines already written; a chunk is skipped
// only when all of its lines are on chain. Every chunk is encoded before anything is sent, so an
// invalid line fails the upload without touching the account. Chunks that exhaust their retries are
// returned as joined *ChunkError values alongside the partial Result.
func (u *Uploader) Upload(ctx context.Context, candyMachine solana.PublicKey, lines []configline.ConfigLine, onChain func(int) bool) (Result, error) {
	if onChain == nil {
		onChain = func(int) bool { return false }
	}

	var (
		result Result
		jobs   []*chunkJob
		encErr error
	)
	for chunk := range configline.Partition(lines, u.chunkSize) {
		if allOnChain(chunk, onChain) {
			result.Skipped += len(chunk.Lines)
			continue
		}
		data, err := u.codec.Encode(chunk)
		if err != nil {
			encErr = errors.Join(encErr, err)
			continue
		}
		jobs = append(jobs, &chunkJob{
			chunk:  chunk,
			offset: u.codec.Address(chunk.Start),
			data:   data,
			up:     u,
			target: candyMachine,
		})
	}
	if encErr != nil {
		return result, encErr
	}
	if len(jobs) == 0 {
		u.lggr.Infow("All config lines already on chain", "candyMachine", candyMachine, "lines", len(lines))
		return result, nil
	}

	group := worker.NewGroup(min(u.workers, len(jobs)), u.retries, u.lggr)
	if err := group.Start(ctx); err != nil {
		return result, err
	}
	defer func() {
		if err := group.Close(); err != nil {
			u.lggr.Errorw("Failed to close worker group", "err", err)
		}
	}()

	chResults := make(chan chunkResult, len(jobs))
	for _, job := range jobs {
		job.done = func(sig solana.Signature, err error) {
			chResults <- chunkResult{chunk: job.chunk, sig: sig, err: err}
		}
	}

	u.lggr.Infow("Writing config lines", "candyMachine", candyMachine, "lines", len(lines), "chunks", len(jobs), "skipped", result.Skipped)
	submitted := 0
	var err error
	for _, job := range jobs {
		if err = group.Do(ctx, job); err != nil {
			break
		}
		submitted++
	}

	var failErr error
Collect:
	for range submitted {
		select {
		case res := <-chResults:
			if res.err != nil {
				failErr = errors.Join(failErr, res.err)
				continue
			}
			result.Signatures = append(result.Signatures, res.sig)
			for i := res.chunk.Start; i < res.chunk.End(); i++ {
				result.Written = append(result.Written, i)
			}
		case <-ctx.Done():
			err = errors.Join(err, ctx.Err())
			break Collect
		}
	}
	slices.Sort(result.Written)

	if failErr != nil {
		u.lggr.Errorw("Some config lines were not written", "candyMachine", candyMachine, "err", failErr)
	}
	return result, errors.Join(err, failErr)
}

type chunkResult struct {
	chunk configline.Chunk
	sig   solana.Signature
	err   error
}

func allOnChain(chunk configline.Chunk, onChain func(int) bool) bool {
	for i := chunk.Start; i < chunk.End(); i++ {
		if !onChain(i) {
			return false
		}
	}
	return true
}
