package async

import (
	"context"
	"testing"
	"time"
)

func TestTasksRunInSpawnOrderWithYield(t *testing.T) {
	s := NewScheduler()
	var order []int
	ch := make(chan struct{})

	for i := 0; i < 3; i++ {
		i := i
		s.Spawn(func(task *Task) error {
			<-ch
			order = append(order, i)
			if err := task.Yield(); err != nil {
				return err
			}
			order = append(order, i+100)
			return nil
		})
	}
	close(ch)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if code := s.Run(ctx); code != 0 {
		t.Fatalf("Run() = %d, want 0", code)
	}

	want := []int{0, 1, 2, 100, 101, 102}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestAwait(t *testing.T) {
	s := NewScheduler()
	var result int
	child := s.Spawn(func(task *Task) error {
		result = 42
		return nil
	})
	parent := s.Spawn(func(task *Task) error {
		return task.Await(child)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if code := s.Run(ctx); code != 0 {
		t.Fatalf("Run() = %d, want 0", code)
	}
	if parent.Err() != nil {
		t.Fatalf("parent.Err() = %v", parent.Err())
	}
	if result != 42 {
		t.Fatalf("result = %d, want 42", result)
	}
}

func TestAwaitFunc(t *testing.T) {
	s := NewScheduler()
	done := make(chan struct{})
	s.Spawn(func(task *Task) error {
		v, err := AwaitFunc(task, func() (int, error) {
			return 7, nil
		})
		if err != nil {
			return err
		}
		if v != 7 {
			t.Errorf("AwaitFunc value = %d, want 7", v)
		}
		close(done)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if code := s.Run(ctx); code != 0 {
		t.Fatalf("Run() = %d, want 0", code)
	}
	select {
	case <-done:
	default:
		t.Fatal("task body did not run to completion")
	}
}

func TestRunCanceledByContext(t *testing.T) {
	s := NewScheduler()
	block := make(chan struct{})
	defer close(block)
	s.Spawn(func(task *Task) error {
		<-block
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if code := s.Run(ctx); code != -1 {
		t.Fatalf("Run() = %d, want -1", code)
	}
}
