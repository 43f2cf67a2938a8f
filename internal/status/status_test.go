package status

import (
	"testing"

	"github.com/zulandar/foreman/internal/models"
)

func statuses(states ...models.TaskState) []models.TaskStatus {
	out := make([]models.TaskStatus, len(states))
	for i, s := range states {
		out[i] = models.TaskStatus{TaskID: "task", Status: s}
	}
	return out
}

func subprojects(modes ...models.SubprojectMode) []models.Subproject {
	out := make([]models.Subproject, len(modes))
	for i, m := range modes {
		out[i] = models.Subproject{Mode: m}
	}
	return out
}

const (
	todo = models.TaskTodo
	prog = models.TaskInProgress
	done = models.TaskDone

	planned  = models.ModePlanned
	build    = models.ModeBuild
	complete = models.ModeComplete
)

func TestSubprojectMode(t *testing.T) {
	tests := []struct {
		name string
		in   []models.TaskStatus
		want models.SubprojectMode
	}{
		{"empty", nil, build},
		{"all done", statuses(done, done), complete},
		{"one done", statuses(done), complete},
		{"mixed", statuses(done, todo), build},
		{"in progress", statuses(prog), build},
		{"all todo", statuses(todo, todo), build},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubprojectMode(tt.in); got != tt.want {
				t.Errorf("SubprojectMode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProjectStatus(t *testing.T) {
	tests := []struct {
		name string
		in   []models.Subproject
		want models.ProjectStatus
	}{
		{"empty", nil, models.ProjectPlanning},
		{"all planned", subprojects(planned, planned), models.ProjectPlanning},
		{"all complete", subprojects(complete, complete), models.ProjectComplete},
		{"any build", subprojects(planned, build), models.ProjectInProgress},
		{"single build", subprojects(build), models.ProjectInProgress},
		{"planned and complete", subprojects(planned, complete), models.ProjectInProgress},
		{"build and complete", subprojects(build, complete), models.ProjectInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProjectStatus(tt.in); got != tt.want {
				t.Errorf("ProjectStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompletionPercent(t *testing.T) {
	tests := []struct {
		name string
		in   []models.TaskStatus
		want int
	}{
		{"empty", nil, 0},
		{"none done", statuses(todo, prog), 0},
		{"half", statuses(done, todo), 50},
		{"one third rounds down", statuses(done, todo, todo), 33},
		{"two thirds rounds up", statuses(done, done, todo), 67},
		{"all", statuses(done, done, done), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompletionPercent(tt.in); got != tt.want {
				t.Errorf("CompletionPercent() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCountByStatus(t *testing.T) {
	got := CountByStatus(statuses(todo, prog, done, done))
	want := Counts{Todo: 1, InProgress: 1, Done: 2, Total: 4}
	if got != want {
		t.Errorf("CountByStatus() = %+v, want %+v", got, want)
	}
	if (CountByStatus(nil) != Counts{}) {
		t.Error("CountByStatus(nil) should be zero")
	}
}
