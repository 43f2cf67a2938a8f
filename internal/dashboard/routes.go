package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/foreman/internal/fault"
	"github.com/zulandar/foreman/internal/lifecycle"
	"github.com/zulandar/foreman/internal/models"
	"github.com/zulandar/foreman/internal/pipeline"
	"github.com/zulandar/foreman/internal/store"
)

// api carries the handlers' dependencies.
type api struct {
	store *store.Store
	ctrl  *lifecycle.Controller
	orch  *pipeline.Orchestrator
}

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, a *api) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	g := router.Group("/api")

	g.GET("/projects", a.listProjects)
	g.POST("/projects", a.createProject)
	g.GET("/projects/:id", a.getProject)
	g.PATCH("/projects/:id", a.renameProject)
	g.DELETE("/projects/:id", a.deleteProject)
	g.GET("/projects/:id/subprojects", a.listSubprojects)
	g.POST("/projects/:id/subprojects", a.createSubproject)
	g.GET("/projects/:id/events", a.projectEvents)

	g.GET("/subprojects/:id", a.getSubproject)
	g.PATCH("/subprojects/:id", a.renameSubproject)
	g.DELETE("/subprojects/:id", a.deleteSubproject)
	g.GET("/subprojects/:id/notes", a.listNotes)
	g.POST("/subprojects/:id/notes", a.createNote)
	g.POST("/subprojects/:id/build", a.build)
	g.POST("/subprojects/:id/transition", a.transition)
	g.GET("/subprojects/:id/tasks", a.tasks)
	g.PUT("/subprojects/:id/tasks/:taskId/status", a.setTaskStatus)
	g.POST("/subprojects/:id/tasks/:taskId/comments", a.addComment)
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

type noteRequest struct {
	Type    models.NoteType `json:"type"`
	Content string          `json:"content" binding:"required"`
}

type modeRequest struct {
	Mode models.SubprojectMode `json:"mode" binding:"required"`
}

type statusRequest struct {
	Status models.TaskState `json:"status" binding:"required"`
}

type commentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (a *api) listProjects(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		projects []models.Project
		err      error
	)
	if s := c.Query("status"); s != "" {
		projects, err = a.store.ListProjectsByStatus(ctx, models.ProjectStatus(s))
	} else {
		projects, err = a.store.ListProjects(ctx)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (a *api) createProject(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "dashboard: create project", err)
		return
	}
	p, err := a.store.CreateProject(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (a *api) getProject(c *gin.Context) {
	p, err := a.store.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *api) renameProject(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "dashboard: rename project", err)
		return
	}
	p, err := a.store.UpdateProject(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *api) deleteProject(c *gin.Context) {
	if err := a.store.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) listSubprojects(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := a.store.GetProject(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	sps, err := a.store.ListSubprojects(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sps)
}

func (a *api) createSubproject(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "dashboard: create subproject", err)
		return
	}
	sp, err := a.ctrl.CreateSubproject(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sp)
}

func (a *api) getSubproject(c *gin.Context) {
	sp, err := a.store.GetSubproject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sp)
}

func (a *api) renameSubproject(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "dashboard: rename subproject", err)
		return
	}
	sp, err := a.store.UpdateSubprojectName(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sp)
}

func (a *api) deleteSubproject(c *gin.Context) {
	id := c.Param("id")
	if a.orch.Running(id) {
		respondError(c, fault.New(fault.AlreadyRunning, "dashboard: delete subproject",
			"a build is running for subproject %s", id))
		return
	}
	if err := a.ctrl.DeleteSubproject(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) listNotes(c *gin.Context) {
	ctx := c.Request.Context()
	order := store.Ascending
	switch c.DefaultQuery("order", "asc") {
	case "asc":
	case "desc":
		order = store.Descending
	default:
		respondError(c, fault.New(fault.Permanent, "dashboard: list notes", "order must be asc or desc"))
		return
	}
	id := c.Param("id")
	if _, err := a.store.GetSubproject(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	notes, err := a.store.ListNotes(ctx, id, order)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (a *api) createNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "dashboard: create note", err)
		return
	}
	if req.Type == "" {
		req.Type = models.NoteText
	}
	n, err := a.store.CreateNote(c.Request.Context(), c.Param("id"), req.Type, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (a *api) transition(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "dashboard: transition", err)
		return
	}
	sp, err := a.ctrl.Transition(c.Request.Context(), c.Param("id"), req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sp)
}

func (a *api) tasks(c *gin.Context) {
	board, err := a.ctrl.Tasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (a *api) setTaskStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "dashboard: set task status", err)
		return
	}
	ts, err := a.ctrl.SetTaskStatus(c.Request.Context(), c.Param("id"), c.Param("taskId"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ts)
}

func (a *api) addComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "dashboard: add comment", err)
		return
	}
	cm, err := a.ctrl.AddComment(c.Request.Context(), c.Param("id"), c.Param("taskId"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}
