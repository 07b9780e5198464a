package jobs

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	delay time.Duration
	ran   chan struct{}
}

func newStubJob(delay time.Duration) *stubJob {
	return &stubJob{delay: delay, ran: make(chan struct{}, 1)}
}

func (j *stubJob) Run(ctx context.Context) error {
	select {
	case j.ran <- struct{}{}:
	default:
	}
	return nil
}

func (j *stubJob) GetNextRunTime() time.Time {
	return time.Now().Add(j.delay)
}

func TestSchedulerRunsRegisteredJob(t *testing.T) {
	scheduler := NewJobScheduler()
	job := newStubJob(5 * time.Millisecond)
	scheduler.Register("stub", job)

	if err := scheduler.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer scheduler.Stop()

	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected job to run after its scheduled time")
	}
}

func TestSchedulerStopCancelsPendingJob(t *testing.T) {
	scheduler := NewJobScheduler()
	job := newStubJob(time.Hour)
	scheduler.Register("stub", job)

	if err := scheduler.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	scheduler.Stop()

	select {
	case <-job.ran:
		t.Fatal("Expected pending job to be cancelled by Stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedulerStartTwiceIsNoOp(t *testing.T) {
	scheduler := NewJobScheduler()
	scheduler.Register("stub", newStubJob(time.Hour))

	if err := scheduler.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		t.Errorf("Expected second Start to be a no-op, got error: %v", err)
	}
	scheduler.Stop()
}
