// Package taskmd parses generated task markdown into structured tasks.
//
// The expected layout is one level-1 heading per task, optional free text,
// and level-2 sections for subtasks and acceptance criteria:
//
//	# Task 1: Import
//
//	Read the uploaded file.
//
//	## Subtasks
//	- Parse header
//
//	## Acceptance Criteria
//	- Rejects empty files
//
// Parsing never fails. Every task gets an id that is stable for the same
// document, which is what TaskStatus and TaskComment rows key on.
package taskmd

import (
	"fmt"
	"regexp"
	"strings"
)

// Task is one parsed task.
type Task struct {
	MarkdownID         string   `json:"markdown_id"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	Subtasks           []string `json:"subtasks"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
}

type section int

const (
	sectionDescription section = iota
	sectionSubtasks
	sectionAcceptance
)

const maxSlugLen = 30

var (
	numberedTitle = regexp.MustCompile(`(?i)^task\s*(\d+)`)
	nonAlnum      = regexp.MustCompile(`[^a-z0-9]+`)
)

// Parse extracts the tasks of markdown in document order.
func Parse(markdown string) []Task {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	markdown = strings.ReplaceAll(markdown, "\r", "\n")

	var (
		tasks   []Task
		cur     *Task
		sect    section
		seenIDs = make(map[string]bool)
	)
	flush := func() {
		if cur != nil {
			tasks = append(tasks, *cur)
			cur = nil
		}
	}

	for _, raw := range strings.Split(markdown, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, "# "):
			flush()
			title := strings.TrimSpace(line[2:])
			ordinal := len(tasks) + 1
			cur = &Task{
				MarkdownID:         uniqueID(DeriveID(ordinal, title), ordinal, seenIDs),
				Title:              title,
				Subtasks:           []string{},
				AcceptanceCriteria: []string{},
			}
			sect = sectionDescription

		case strings.HasPrefix(line, "## "):
			sect = classifySection(line[3:])

		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			if cur == nil {
				continue
			}
			item := strings.TrimSpace(line[2:])
			switch sect {
			case sectionSubtasks:
				cur.Subtasks = append(cur.Subtasks, item)
			case sectionAcceptance:
				cur.AcceptanceCriteria = append(cur.AcceptanceCriteria, item)
			}

		default:
			if cur == nil || sect != sectionDescription {
				continue
			}
			if cur.Description == "" {
				cur.Description = line
			} else {
				cur.Description += "\n" + line
			}
		}
	}
	flush()
	return tasks
}

func classifySection(heading string) section {
	h := strings.ToLower(heading)
	switch {
	case strings.Contains(h, "subtask"):
		return sectionSubtasks
	case strings.Contains(h, "acceptance"), strings.Contains(h, "criteria"):
		return sectionAcceptance
	default:
		return sectionDescription
	}
}

// DeriveID returns the id for a task title at the given 1-based ordinal:
// "task-<N>" for titles that start with "Task <N>", otherwise
// "task-<ordinal>-<slug>". An empty slug keeps the trailing dash so the id
// never collides with a numbered task's "task-<N>".
func DeriveID(ordinal int, title string) string {
	if m := numberedTitle.FindStringSubmatch(title); m != nil {
		return "task-" + m[1]
	}
	return fmt.Sprintf("task-%d-%s", ordinal, Slug(title))
}

// Slug lowercases s, collapses runs of non-alphanumerics to "-", trims
// leading and trailing dashes and truncates to 30 bytes.
func Slug(s string) string {
	slug := nonAlnum.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	return slug
}

func uniqueID(id string, ordinal int, seen map[string]bool) string {
	for seen[id] {
		id = fmt.Sprintf("%s-%d", id, ordinal)
	}
	seen[id] = true
	return id
}

// Find returns the task with markdown id id.
func Find(tasks []Task, id string) (Task, bool) {
	for _, t := range tasks {
		if t.MarkdownID == id {
			return t, true
		}
	}
	return Task{}, false
}

// IDs returns the markdown ids of tasks in order.
func IDs(tasks []Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.MarkdownID
	}
	return ids
}

// Render writes tasks back out in the layout Parse reads. Parsing the
// result yields tasks equal to the input when the input came from Parse.
func Render(tasks []Task) string {
	var b strings.Builder
	for i, t := range tasks {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "# %s\n", t.Title)
		if t.Description != "" {
			fmt.Fprintf(&b, "\n%s\n", t.Description)
		}
		writeList(&b, "Subtasks", t.Subtasks)
		writeList(&b, "Acceptance Criteria", t.AcceptanceCriteria)
	}
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[task-id:\s*([^\]]+)\]`),
	regexp.MustCompile(`(?i)<!--\s*task-id:\s*([^>]+?)\s*-->`),
	regexp.MustCompile(`(?i)task[_\s]*id[_\s]*[:=]\s*(\S+)`),
}

// ExtractTaskID returns an id embedded in markdown as "[task-id: x]",
// "<!-- task-id: x -->" or "task_id: x". Without one it falls back to the
// id derived from title.
func ExtractTaskID(markdown, title string) string {
	for _, re := range idPatterns {
		if m := re.FindStringSubmatch(markdown); m != nil {
			if id := strings.TrimSpace(m[1]); id != "" {
				return id
			}
		}
	}
	return DeriveID(0, title)
}
