package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/ehagey/cra-legal-matching/config"
	"github.com/ehagey/cra-legal-matching/model"
)

func TestJobStorePutGet(t *testing.T) {
	store := NewJobStore(&config.StoreConfig{MaxJobs: 10})

	job := model.NewJob("job-1")
	store.Put(job)

	if got := store.Get("job-1"); got != job {
		t.Error("Expected to retrieve the stored job")
	}
	if got := store.Get("missing"); got != nil {
		t.Error("Expected nil for unknown job id")
	}
	if store.Count() != 1 {
		t.Errorf("Expected count 1, got %d", store.Count())
	}
}

func TestJobStoreDelete(t *testing.T) {
	store := NewJobStore(&config.StoreConfig{MaxJobs: 10})
	store.Put(model.NewJob("job-1"))
	store.Delete("job-1")

	if store.Get("job-1") != nil {
		t.Error("Expected job removed")
	}
}

func TestJobStoreEvictsOldest(t *testing.T) {
	store := NewJobStore(&config.StoreConfig{MaxJobs: 3})

	base := time.Now()
	for i := 0; i < 5; i++ {
		job := model.NewJob(fmt.Sprintf("job-%d", i))
		job.CreatedAt = base.Add(time.Duration(i) * time.Second)
		store.Put(job)
	}

	if store.Count() != 3 {
		t.Errorf("Expected count capped at 3, got %d", store.Count())
	}
	if store.Get("job-0") != nil || store.Get("job-1") != nil {
		t.Error("Expected oldest jobs evicted")
	}
	if store.Get("job-4") == nil {
		t.Error("Expected newest job retained")
	}
}

func TestJobStoreSweep(t *testing.T) {
	store := NewJobStore(&config.StoreConfig{MaxJobs: 10, JobTTLMinutes: 60})

	expired := model.NewJob("expired")
	expired.CreatedAt = time.Now().Add(-2 * time.Hour)
	expired.Finish(nil, "")
	store.Put(expired)

	running := model.NewJob("running")
	running.CreatedAt = time.Now().Add(-2 * time.Hour)
	store.Put(running)

	fresh := model.NewJob("fresh")
	fresh.Finish(nil, "")
	store.Put(fresh)

	store.Sweep()

	if store.Get("expired") != nil {
		t.Error("Expected expired finished job evicted")
	}
	if store.Get("running") == nil {
		t.Error("Expected unfinished job retained regardless of age")
	}
	if store.Get("fresh") == nil {
		t.Error("Expected recently finished job retained")
	}
}
