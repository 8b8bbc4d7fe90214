package compare

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/spherical/pdf-diff/internal/domain"
)

// BatchItem is the result of one pair in a batch.
type BatchItem struct {
	Index   int
	Request Request
	Outcome *Outcome
	Err     error
}

// Batch compares every pair on a pool of workers. A failed pair is recorded
// in its item and does not stop the others. Items come back in input order;
// onDone, if set, is called once per pair as it finishes, never concurrently.
func (s *Service) Batch(ctx context.Context, reqs []Request, workers int, onDone func(BatchItem)) []BatchItem {
	if workers < 1 {
		workers = 1
	}
	items := make([]BatchItem, len(reqs))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i, req := range reqs {
		g.Go(func() error {
			item := BatchItem{Index: i, Request: req}
			if err := ctx.Err(); err != nil {
				item.Err = err
			} else {
				item.Outcome, item.Err = s.Compare(ctx, req, nil)
			}
			if item.Err != nil {
				s.logger.Warn().Err(item.Err).
					Str("old", req.OldPath).
					Str("new", req.NewPath).
					Msg("batch pair failed")
			}

			mu.Lock()
			items[i] = item
			if onDone != nil {
				onDone(item)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// PairDirectories matches PDFs with the same file name in two directories.
// Files present on only one side are returned in unmatched.
func PairDirectories(oldDir, newDir string) (pairs []Request, unmatched []string, err error) {
	oldFiles, err := listPDFs(oldDir)
	if err != nil {
		return nil, nil, err
	}
	newFiles, err := listPDFs(newDir)
	if err != nil {
		return nil, nil, err
	}

	for name, oldPath := range oldFiles {
		if newPath, ok := newFiles[name]; ok {
			pairs = append(pairs, Request{OldPath: oldPath, NewPath: newPath})
			continue
		}
		unmatched = append(unmatched, oldPath)
	}
	for name, newPath := range newFiles {
		if _, ok := oldFiles[name]; !ok {
			unmatched = append(unmatched, newPath)
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].OldPath < pairs[j].OldPath })
	sort.Strings(unmatched)
	return pairs, unmatched, nil
}

func listPDFs(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.IOError("read directory "+dir, err)
	}
	files := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files[strings.ToLower(e.Name())] = filepath.Join(dir, e.Name())
	}
	return files, nil
}
