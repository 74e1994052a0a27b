package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Job is one file to persist. A job with Source set is a byte copy;
// otherwise Data is written.
type Job struct {
	Source string
	Dest   string
	Data   string
}

// Stats counts what Persist wrote.
type Stats struct {
	Copied  int
	Written int
	Bytes   int64
}

// Writer persists jobs in parallel.
type Writer struct {
	workers int
}

// NewWriter returns a Writer running at most workers jobs at once. A value
// below one means runtime.NumCPU().
func NewWriter(workers int) *Writer {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Writer{workers: workers}
}

// Persist runs every job. The first failure cancels the remaining ones and is
// returned; parent directories must already exist.
func (w *Writer) Persist(ctx context.Context, jobs []Job) (Stats, error) {
	var copied, written, size atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if job.Source != "" {
				n, err := copyFile(job.Source, job.Dest)
				if err != nil {
					return err
				}
				copied.Add(1)
				size.Add(n)
				return nil
			}
			if err := writeFile(job.Dest, job.Data); err != nil {
				return err
			}
			written.Add(1)
			size.Add(int64(len(job.Data)))
			return nil
		})
	}
	err := g.Wait()
	return Stats{Copied: int(copied.Load()), Written: int(written.Load()), Bytes: size.Load()}, err
}

func writeFile(dest, data string) error {
	// #nosec G306 -- generated site files are meant to be world readable.
	if err := os.WriteFile(dest, []byte(data), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

func copyFile(src, dest string) (int64, error) {
	// #nosec G304 -- src comes from source discovery under the source root.
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	// #nosec G302 G304 -- dest is mapped under the output root.
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("copy %s to %s: %w", src, dest, err)
	}
	return n, nil
}
