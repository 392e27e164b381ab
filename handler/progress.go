package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ehagey/cra-legal-matching/model"
	"github.com/ehagey/cra-legal-matching/service"
	"github.com/gin-gonic/gin"
)

// ProgressHandler serves the per-job SSE stream
type ProgressHandler struct {
	store *service.JobStore
}

func NewProgressHandler(store *service.JobStore) *ProgressHandler {
	return &ProgressHandler{store: store}
}

// heartbeatInterval keeps idle connections alive through proxies
const heartbeatInterval = time.Second

// Stream opens a Server-Sent Events connection for a job and forwards
// progress snapshots until the terminal event. Buffering is disabled end
// to end so delivery is prompt; a dropped connection does not stop the job.
func (h *ProgressHandler) Stream(c *gin.Context) {
	jobID := c.Param("id")
	job := h.store.Get(jobID)
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	slog.Info("progress stream opened", "job_id", jobID)

	// Send the current state first so a subscriber who connects late (or
	// after the terminal event was queued) is never stale.
	snapshot := job.Snapshot()
	if err := writeEvent(c, snapshot); err != nil {
		return
	}
	if snapshot.Done {
		h.store.Delete(jobID)
		return
	}

	// Events queued before the snapshot was taken are older than what was
	// just written; replaying them would make completed go backwards.
	lastCompleted := snapshot.Completed

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-job.Events():
			if !ok {
				// Channel closed: the terminal event was consumed
				// elsewhere. Emit the final snapshot and stop.
				_ = writeEvent(c, job.Snapshot())
				h.store.Delete(jobID)
				return
			}
			if !ev.Done && ev.Completed < lastCompleted {
				continue
			}
			lastCompleted = ev.Completed
			if err := writeEvent(c, ev); err != nil {
				slog.Warn("progress stream write failed", "job_id", jobID, "error", err)
				return
			}
			if ev.Done {
				slog.Info("progress stream done", "job_id", jobID, "results", len(ev.Results))
				h.store.Delete(jobID)
				return
			}
		case <-ticker.C:
			if err := writeHeartbeat(c); err != nil {
				return
			}
		case <-c.Request.Context().Done():
			// Client went away; the job runs to completion unobserved
			slog.Info("progress stream client disconnected", "job_id", jobID)
			return
		}
	}
}

func writeEvent(c *gin.Context, ev model.ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Writer, "event: progress\ndata: %s\n\n", payload); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

func writeHeartbeat(c *gin.Context) error {
	if _, err := fmt.Fprint(c.Writer, ": heartbeat\n\n"); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}
