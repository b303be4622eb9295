// Package api exposes the board over HTTP: auth, task CRUD, smart
// assignment, the activity feed, and a server-sent-events stream of board
// changes.
package api

import (
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/dyluth/warren/internal/tasks"
	"github.com/dyluth/warren/internal/users"
	"github.com/dyluth/warren/pkg/board"
)

// Deps carries the wired services the API serves.
type Deps struct {
	Users *users.Service
	Tasks *tasks.Service
	Board *board.Client
	Log   *log.Logger
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, deps Deps) {
	authed := requireAuth(deps.Users)

	e.POST("/api/auth/signup", postSignup(deps.Users))
	e.POST("/api/auth/login", postLogin(deps.Users))
	e.GET("/api/auth/users", getUsers(deps.Users), authed)

	e.GET("/api/tasks", getTasks(deps.Tasks), authed)
	e.GET("/api/tasks/:id", getTask(deps.Tasks), authed)
	e.POST("/api/tasks", postTask(deps.Tasks), authed)
	e.PUT("/api/tasks/:id", putTask(deps.Tasks), authed)
	e.DELETE("/api/tasks/:id", deleteTask(deps.Tasks), authed)
	e.POST("/api/tasks/:id/smart-assign", postSmartAssign(deps.Tasks), authed)

	e.GET("/api/activity", getActivity(deps.Tasks), authed)
	e.GET("/api/stream", streamEvents(deps.Board, deps.Log), authed)

	e.GET("/healthz", healthz(deps.Board))
}
