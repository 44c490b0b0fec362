package async

import (
	"context"
	"fmt"
	"sync"
)

// Task is one named operation to run concurrently.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel starts every task concurrently and waits for all of them.
// It returns the first error, wrapped with the task name so callers can
// tell which operation failed.
func RunParallel(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := task.Func(ctx); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", task.Name, err)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return firstErr
}
