package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/foreman/internal/fault"
	"github.com/zulandar/foreman/internal/models"
	"github.com/zulandar/foreman/internal/pipeline"
	"github.com/zulandar/foreman/internal/taskmd"
)

// heartbeatInterval keeps idle event streams open through proxies.
const heartbeatInterval = 15 * time.Second

// subprojectEvent is the wire form of a store change notification.
type subprojectEvent struct {
	Type         string                `json:"type"`
	ProjectID    string                `json:"project_id"`
	SubprojectID string                `json:"subproject_id"`
	Mode         models.SubprojectMode `json:"mode,omitempty"`
	Seq          uint64                `json:"seq"`
	At           time.Time             `json:"at"`
}

// buildResult is the final event of a successful build stream.
type buildResult struct {
	Subproject    *models.Subproject   `json:"subproject"`
	Tasks         []taskmd.Task        `json:"tasks"`
	ProjectStatus models.ProjectStatus `json:"project_status"`
}

func sseHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
}

// build runs the plan-to-build pipeline and streams its progress. The
// guard is checked before the stream opens so rejections get a plain
// status code; closing the stream cancels the run.
func (a *api) build(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	sp, err := a.store.GetSubproject(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if sp.Mode != models.ModePlanned {
		respondError(c, fault.New(fault.InvalidState, "dashboard: build", "subproject %s is %s, not planned", id, sp.Mode))
		return
	}
	if a.orch.Running(id) {
		respondError(c, fault.New(fault.AlreadyRunning, "dashboard: build", "a build is already running for subproject %s", id))
		return
	}

	sseHeaders(c)
	events := make(chan pipeline.Event)
	type outcome struct {
		res *pipeline.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := a.orch.LetsBuildIt(ctx, id, events)
		done <- outcome{res, err}
	}()

	for ev := range events {
		writeSSE(c.Writer, "progress", ev)
		c.Writer.Flush()
	}
	out := <-done
	if out.err != nil {
		// The failed progress event already carried the error.
		return
	}
	writeSSE(c.Writer, "result", buildResult{
		Subproject:    out.res.Subproject,
		Tasks:         out.res.Tasks,
		ProjectStatus: out.res.ProjectStatus,
	})
	c.Writer.Flush()
}

// projectEvents streams subproject changes for one project until the
// client disconnects.
func (a *api) projectEvents(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := a.store.GetProject(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	changes := a.store.WatchSubprojects(ctx, id)
	sseHeaders(c)
	writeSSE(c.Writer, "connected", map[string]string{"project_id": id})
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case ev, ok := <-changes:
			if !ok {
				return
			}
			writeSSE(c.Writer, "subproject", subprojectEvent{
				Type:         string(ev.Type),
				ProjectID:    ev.ProjectID,
				SubprojectID: ev.SubprojectID,
				Mode:         ev.Mode,
				Seq:          ev.Seq,
				At:           ev.At,
			})
			c.Writer.Flush()
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
