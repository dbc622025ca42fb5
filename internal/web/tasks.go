package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"operaflow/internal/csvio"
	"operaflow/internal/events"
	"operaflow/internal/model"
	"operaflow/internal/store"
)

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, fmt.Sprintf("invalid task id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

type taskQuery struct {
	AffaireID *int64 `form:"affaire_id"`
	Status    string `form:"statut"`
	From      string `form:"from"`
	To        string `form:"to"`
	Query     string `form:"q"`
}

func (s *Server) listTasks(c *gin.Context) {
	var q taskQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	f := store.Filter{AffaireID: q.AffaireID, From: q.From, To: q.To, Query: q.Query}
	if strings.TrimSpace(q.Status) != "" {
		st, err := model.ParseStatus(q.Status)
		if err != nil {
			s.fail(c, err)
			return
		}
		f.Status = st
	}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := model.ParseDate(d); err != nil {
			s.fail(c, err)
			return
		}
	}
	tasks, err := s.backend.ListTasks(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, tasks)
}

func (s *Server) getTask(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	t, err := s.backend.GetTask(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

func (s *Server) createTask(c *gin.Context) {
	var in model.Task
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	in.ID = 0
	t, err := s.backend.CreateTask(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, t)
}

func (s *Server) deleteTask(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := s.backend.DeleteTask(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type datesRequest struct {
	TaskID int64  `json:"task_id"`
	Start  string `json:"date_debut_plan" binding:"required"`
	End    string `json:"date_fin_plan" binding:"required"`
}

func (s *Server) updateDates(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var in datesRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if in.TaskID != 0 && in.TaskID != id {
		badRequest(c, "task_id does not match the path")
		return
	}
	t, err := s.backend.UpdateDates(c.Request.Context(), model.DateUpdate{TaskID: id, Start: in.Start, End: in.End})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

type progressRequest struct {
	TaskID   int64 `json:"task_id"`
	Progress *int  `json:"avancement" binding:"required"`
}

func (s *Server) updateProgress(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var in progressRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if in.TaskID != 0 && in.TaskID != id {
		badRequest(c, "task_id does not match the path")
		return
	}
	t, err := s.backend.UpdateProgress(c.Request.Context(), model.ProgressUpdate{TaskID: id, Progress: *in.Progress})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

type batchRequest struct {
	Items []model.DateUpdate `json:"items" binding:"required"`
}

func (s *Server) batchUpdateDates(c *gin.Context) {
	var in batchRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	results, err := s.backend.BatchUpdateDates(c.Request.Context(), in.Items)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, results)
}

func (s *Server) listTaskEvents(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if _, err := s.backend.GetTask(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	evs, err := s.backend.ListTaskEvents(c.Request.Context(), id, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, evs)
}

func (s *Server) exportTasks(c *gin.Context) {
	tasks, err := s.backend.ListTasks(c.Request.Context(), store.Filter{})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="taches.csv"`)
	c.Status(http.StatusOK)
	if err := csvio.Export(c.Writer, tasks); err != nil {
		s.logger.WithError(err).Warn("csv export interrupted")
	}
}

func (s *Server) importTasks(c *gin.Context) {
	res, err := csvio.Import(c.Request.Context(), c.Request.Body, s.backend)
	if err != nil {
		s.fail(c, err)
		return
	}
	if res.Imported > 0 && s.cfg.Bus != nil {
		s.cfg.Bus.Publish(events.Event{Topic: events.TasksImported, Count: res.Imported})
	}
	ok(c, http.StatusOK, res)
}

func (s *Server) listAffaires(c *gin.Context) {
	list, err := s.backend.ListAffaires(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

func (s *Server) createAffaire(c *gin.Context) {
	var in model.Affaire
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	in.ID = 0
	a, err := s.backend.CreateAffaire(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, a)
}
