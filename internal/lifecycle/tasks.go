package lifecycle

import (
	"context"

	"github.com/zulandar/foreman/internal/fault"
	"github.com/zulandar/foreman/internal/models"
	"github.com/zulandar/foreman/internal/status"
	"github.com/zulandar/foreman/internal/taskmd"
)

// TaskView is a parsed task joined with its tracked state and comments.
type TaskView struct {
	taskmd.Task
	Status   models.TaskState     `json:"status"`
	Comments []models.TaskComment `json:"comments"`
}

// Board is the task view of one subproject. Tasks without a recorded
// status count as todo.
type Board struct {
	Subproject        *models.Subproject `json:"subproject"`
	Tasks             []TaskView         `json:"tasks"`
	Counts            status.Counts      `json:"counts"`
	CompletionPercent int                `json:"completion_percent"`
}

// Tasks builds the board for subprojectID. A planned subproject has no
// tasks yet and yields an empty board.
func (c *Controller) Tasks(ctx context.Context, subprojectID string) (*Board, error) {
	sp, err := c.store.GetSubproject(ctx, subprojectID)
	if err != nil {
		return nil, err
	}
	board := &Board{Subproject: sp, Tasks: []TaskView{}}
	if sp.TasksMarkdown == nil {
		return board, nil
	}

	rows, err := c.store.ListTaskStatuses(ctx, subprojectID)
	if err != nil {
		return nil, err
	}
	comments, err := c.store.ListTaskComments(ctx, subprojectID)
	if err != nil {
		return nil, err
	}
	states := make(map[string]models.TaskState, len(rows))
	for _, r := range rows {
		states[r.TaskID] = r.Status
	}
	byTask := make(map[string][]models.TaskComment)
	for _, cm := range comments {
		byTask[cm.TaskID] = append(byTask[cm.TaskID], cm)
	}

	parsed := taskmd.Parse(*sp.TasksMarkdown)
	effective := make([]models.TaskStatus, 0, len(parsed))
	for _, t := range parsed {
		st, ok := states[t.MarkdownID]
		if !ok {
			st = models.TaskTodo
		}
		cms := byTask[t.MarkdownID]
		if cms == nil {
			cms = []models.TaskComment{}
		}
		board.Tasks = append(board.Tasks, TaskView{Task: t, Status: st, Comments: cms})
		effective = append(effective, models.TaskStatus{SubprojectID: subprojectID, TaskID: t.MarkdownID, Status: st})
	}
	board.Counts = status.CountByStatus(effective)
	board.CompletionPercent = status.CompletionPercent(effective)
	return board, nil
}

// SetTaskStatus records state for a task of subprojectID. The task id must
// be one the parser produces for the subproject's current task markdown.
// Completing every task does not complete the subproject; that takes an
// explicit Transition. Once the subproject is complete its task statuses
// are final. Comments are still accepted.
func (c *Controller) SetTaskStatus(ctx context.Context, subprojectID, taskID string, state models.TaskState) (*models.TaskStatus, error) {
	const op = "lifecycle: set task status"
	sp, err := c.buildingSubproject(ctx, op, subprojectID, taskID)
	if err != nil {
		return nil, err
	}
	if sp.Mode == models.ModeComplete {
		return nil, fault.New(fault.InvalidState, op, "subproject %s is complete; task statuses are final", subprojectID)
	}
	ts, err := c.store.UpsertTaskStatus(ctx, subprojectID, taskID, state)
	if err != nil {
		return nil, err
	}
	c.Rollup(ctx, sp.ProjectID)
	return ts, nil
}

// AddComment attaches a comment to a task of subprojectID.
func (c *Controller) AddComment(ctx context.Context, subprojectID, taskID, content string) (*models.TaskComment, error) {
	if _, err := c.buildingSubproject(ctx, "lifecycle: add comment", subprojectID, taskID); err != nil {
		return nil, err
	}
	return c.store.CreateTaskComment(ctx, subprojectID, taskID, content)
}

// buildingSubproject loads a subproject that has task markdown and checks
// that taskID is one of its parsed tasks.
func (c *Controller) buildingSubproject(ctx context.Context, op, subprojectID, taskID string) (*models.Subproject, error) {
	sp, err := c.store.GetSubproject(ctx, subprojectID)
	if err != nil {
		return nil, err
	}
	if sp.Mode == models.ModePlanned || sp.TasksMarkdown == nil {
		return nil, fault.New(fault.InvalidState, op, "subproject %s has no tasks while planned", subprojectID)
	}
	if _, ok := taskmd.Find(taskmd.Parse(*sp.TasksMarkdown), taskID); !ok {
		return nil, fault.New(fault.NotFound, op, "task %s not found in subproject %s", taskID, subprojectID)
	}
	return sp, nil
}
