package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/MihkelHunter/dayplanner/internal/remote"
	"github.com/MihkelHunter/dayplanner/internal/todo"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// listTasks serves GET /tasks?page=&limit= in stored order.
func (s *Server) listTasks(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", defaultPageSize)
	if page < 1 || limit < 1 {
		return fail(c, fiber.StatusBadRequest, "bad_request", "page and limit must be positive")
	}
	limit = min(limit, maxPageSize)

	tasks, err := s.repo.List(c.UserContext())
	if err != nil {
		return err
	}
	total := len(tasks)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	items := make([]remote.Task, 0, end-start)
	for _, t := range tasks[start:end] {
		items = append(items, s.mapper.FromTask(t))
	}
	return ok(c, fiber.StatusOK, remote.Page[remote.Task]{
		Items: items,
		Pagination: remote.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	})
}

func (s *Server) getTask(c *fiber.Ctx) error {
	id := c.Params("id")
	tasks, err := s.repo.List(c.UserContext())
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ID == id {
			return ok(c, fiber.StatusOK, s.mapper.FromTask(t))
		}
	}
	return fmt.Errorf("%w: %s", todo.ErrNotFound, id)
}

func (s *Server) createTask(c *fiber.Ctx) error {
	var body remote.CreateTaskBody
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	t, err := s.repo.Create(c.UserContext(), s.mapper.FromCreateBody(body))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, s.mapper.FromTask(t))
}

func (s *Server) updateTask(c *fiber.Ctx) error {
	var body remote.UpdateTaskBody
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	req := s.mapper.FromUpdateBody(body)
	if err := req.Validate(); err != nil {
		return err
	}
	t, err := s.repo.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, s.mapper.FromTask(t))
}

func (s *Server) toggleTask(c *fiber.Ctx) error {
	t, err := s.repo.Toggle(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, s.mapper.FromTask(t))
}

func (s *Server) deleteTask(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.repo.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, struct {
		ID string `json:"id"`
	}{ID: id})
}

func (s *Server) summary(c *fiber.Ctx) error {
	if p, isProvider := s.repo.(todo.SummaryProvider); isProvider {
		sum, err := p.Summary(c.UserContext())
		if err != nil {
			return err
		}
		return ok(c, fiber.StatusOK, sum)
	}
	tasks, err := s.repo.List(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, todo.Summarize(tasks, s.mapper.Now()))
}
