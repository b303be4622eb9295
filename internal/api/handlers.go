package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dyluth/warren/internal/assign"
	"github.com/dyluth/warren/internal/tasks"
	"github.com/dyluth/warren/internal/users"
	"github.com/dyluth/warren/internal/validation"
	"github.com/dyluth/warren/pkg/board"
)

type errorResponse struct {
	Message string `json:"message"`
}

// conflictResponse is the 409 body for a rejected stale write. ServerVersion
// carries the authoritative record so the client can reconcile and retry.
type conflictResponse struct {
	Message       string      `json:"message"`
	ServerVersion *board.Task `json:"server_version"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *board.User `json:"user"`
}

type createTaskRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      board.Status   `json:"status"`
	Priority    board.Priority `json:"priority"`
	AssignedTo  string         `json:"assigned_to"`
}

type updateTaskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Status      *board.Status   `json:"status"`
	Priority    *board.Priority `json:"priority"`
	AssignedTo  *string         `json:"assigned_to"`

	// The updated_at_ms value the client last observed. Zero skips the
	// conflict check.
	LastSeenUpdatedAtMs int64 `json:"last_seen_updated_at_ms"`
}

type smartAssignResponse struct {
	Task    *board.Task `json:"task"`
	Changed bool        `json:"changed"`
}

func postSignup(svc *users.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req credentialsRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		}

		user, err := svc.Register(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			var reg *users.RegistrationError
			switch {
			case errors.Is(err, users.ErrEmailTaken), errors.As(err, &reg):
				return c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
			default:
				c.Logger().Error(err)
				return c.JSON(http.StatusInternalServerError, errorResponse{Message: "internal server error"})
			}
		}

		return c.JSON(http.StatusCreated, user)
	}
}

func postLogin(svc *users.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req credentialsRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		}

		token, user, err := svc.Login(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, users.ErrInvalidCredentials) {
				return c.JSON(http.StatusUnauthorized, errorResponse{Message: err.Error()})
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Message: "internal server error"})
		}

		return c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
	}
}

func getUsers(svc *users.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := svc.List(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Message: "internal server error"})
		}
		return c.JSON(http.StatusOK, list)
	}
}

func getTasks(svc *tasks.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := svc.List(c.Request().Context())
		if err != nil {
			return writeTaskError(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func getTask(svc *tasks.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, err := svc.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeTaskError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func postTask(svc *tasks.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTaskRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		}
		if req.Status == "" {
			req.Status = board.StatusTodo
		}
		if req.Priority == "" {
			req.Priority = board.PriorityMedium
		}

		task, err := svc.Create(c.Request().Context(), tasks.CreateRequest{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
			AssignedTo:  req.AssignedTo,
		}, actorID(c))
		if err != nil {
			return writeTaskError(c, err)
		}

		return c.JSON(http.StatusCreated, task)
	}
}

func putTask(svc *tasks.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateTaskRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		}

		task, err := svc.Update(c.Request().Context(), c.Param("id"), tasks.Patch{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
			AssignedTo:  req.AssignedTo,
		}, req.LastSeenUpdatedAtMs, actorID(c))
		if err != nil {
			return writeTaskError(c, err)
		}

		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(svc *tasks.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.Delete(c.Request().Context(), c.Param("id"), actorID(c)); err != nil {
			return writeTaskError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func postSmartAssign(svc *tasks.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, changed, err := svc.SmartAssign(c.Request().Context(), c.Param("id"), actorID(c))
		if err != nil {
			return writeTaskError(c, err)
		}
		return c.JSON(http.StatusOK, smartAssignResponse{Task: task, Changed: changed})
	}
}

func getActivity(svc *tasks.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 20
		if raw := c.QueryParam("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid limit"})
			}
			limit = parsed
		}

		entries, err := svc.Recorder().Recent(c.Request().Context(), limit)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Message: "internal server error"})
		}
		return c.JSON(http.StatusOK, entries)
	}
}

func healthz(client *board.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := client.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, errorResponse{Message: "board store unreachable"})
		}
		return c.NoContent(http.StatusOK)
	}
}

// writeTaskError maps mutation pipeline errors onto HTTP statuses.
func writeTaskError(c echo.Context, err error) error {
	var (
		conflict *tasks.ConflictError
		invalid  *tasks.InvalidInputError
		reserved *validation.ReservedNameError
		dup      *validation.DuplicateTitleError
		notFound *tasks.NotFoundError
	)
	switch {
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, conflictResponse{
			Message:       conflict.Error(),
			ServerVersion: conflict.Current,
		})
	case errors.As(err, &invalid), errors.As(err, &reserved), errors.As(err, &dup):
		return c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
	case errors.As(err, &notFound), errors.Is(err, assign.ErrNoEligibleUser):
		return c.JSON(http.StatusNotFound, errorResponse{Message: err.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}
