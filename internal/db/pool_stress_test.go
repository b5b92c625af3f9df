package db

import (
	"fmt"
	"sync"
	"testing"
)

// Uploads recorded from the console and the CLI can overlap with the
// history dialog reading. Every writer and reader must share one pool and
// never see a busy error.
func TestConcurrentHistoryAccess(t *testing.T) {
	useTestDB(t)

	const writers, perWriter, readers = 12, 8, 6

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		pools = map[any]bool{}
		errs  = make(chan error, writers*perWriter+readers*perWriter)
	)
	seePool := func() {
		db, err := GetDB()
		if err != nil {
			errs <- err
			return
		}
		mu.Lock()
		pools[db] = true
		mu.Unlock()
	}

	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seePool()
			for i := range perWriter {
				u := Upload{Directory: "builds", FileName: fmt.Sprintf("w%d-%d.apk", w, i), Size: int64(i)}
				if i%4 == 3 {
					u.Error = "directory is locked"
				}
				if _, err := RecordUpload(u); err != nil {
					errs <- fmt.Errorf("writer %d: %w", w, err)
					return
				}
			}
		}()
	}
	for r := range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seePool()
			for range perWriter {
				if _, err := RecentUploads(20); err != nil {
					errs <- fmt.Errorf("reader %d: %w", r, err)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if len(pools) != 1 {
		t.Errorf("GetDB handed out %d pools, want 1", len(pools))
	}

	all, err := RecentUploads(0)
	if err != nil {
		t.Fatalf("RecentUploads: %v", err)
	}
	if len(all) != writers*perWriter {
		t.Errorf("got %d rows, want %d", len(all), writers*perWriter)
	}
	failed := 0
	for _, u := range all {
		if !u.Succeeded() {
			failed++
		}
	}
	if failed != writers*perWriter/4 {
		t.Errorf("got %d failed uploads, want %d", failed, writers*perWriter/4)
	}
}
