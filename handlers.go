package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nearword/internal/session"
)

// homeHandler renders the main game page.
func (app *App) homeHandler(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"title":   PageTitle,
		"message": PageMessage,
		"game":    buildGameView(app.Controller.View()),
	})
}

// gameStateHandler returns the current view as JSON, or as the board fragment for HTMX.
func (app *App) gameStateHandler(c *gin.Context) {
	game := buildGameView(app.Controller.View())
	if c.GetHeader("HX-Request") == "true" {
		c.HTML(http.StatusOK, "game-content", gin.H{"game": game})
		return
	}
	c.JSON(http.StatusOK, game)
}

// newGameHandler checks the game service and starts a fresh daily game.
func (app *App) newGameHandler(c *gin.Context) {
	logInfo("New game requested from %s", c.ClientIP())
	err := app.Controller.Initialize(c.Request.Context())
	app.respond(c, err, nil)
}

// guessHandler submits the "guess" form value.
func (app *App) guessHandler(c *gin.Context) {
	err := app.Controller.SubmitGuess(c.Request.Context(), c.PostForm("guess"))
	app.respond(c, err, nil)
}

// clueHandler asks the game service for the next clue.
func (app *App) clueHandler(c *gin.Context) {
	err := app.Controller.RequestClue(c.Request.Context())
	app.respond(c, err, nil)
}

// giveUpHandler reveals the word and starts the next game.
func (app *App) giveUpHandler(c *gin.Context) {
	result, err := app.Controller.GiveUp(c.Request.Context())
	extra := gin.H{}
	if result != nil {
		extra["revealed"] = result
	}
	app.respond(c, err, extra)
}

// refreshHandler reloads the session from the game service.
func (app *App) refreshHandler(c *gin.Context) {
	err := app.Controller.Refresh(c.Request.Context())
	app.respond(c, err, nil)
}

// eventsHandler streams view snapshots and notices as server-sent events.
func (app *App) eventsHandler(c *gin.Context) {
	views, cancelViews := app.Controller.Subscribe()
	defer cancelViews()
	notices, cancelNotices := app.Notices.subscribe()
	defer cancelNotices()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case v, ok := <-views:
			if !ok {
				return false
			}
			c.SSEvent("view", buildGameView(v))
			return true
		case n, ok := <-notices:
			if !ok {
				return false
			}
			c.SSEvent(n.Kind, n)
			return true
		}
	})
}

// healthzHandler returns a JSON health check with server stats.
func (app *App) healthzHandler(c *gin.Context) {
	v := app.Controller.View()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"env":         map[bool]string{true: "production", false: "development"}[app.IsProduction],
		"lifecycle":   v.Lifecycle.String(),
		"guess_count": v.GuessCount,
		"uptime":      formatUptime(time.Since(app.StartTime)),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// respond writes the outcome of a player action in the format the caller asked for:
// the board fragment for HTMX, JSON for API clients and a redirect for plain forms.
func (app *App) respond(c *gin.Context, err error, extra gin.H) {
	game := buildGameView(app.Controller.View())
	errMsg := userMessage(err)
	if err != nil && !errors.Is(err, session.ErrBusy) {
		logWarn("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	switch {
	case c.GetHeader("HX-Request") == "true":
		if errMsg != "" {
			payload := map[string]string{"server_error": errMsg}
			if b, jerr := json.Marshal(payload); jerr == nil {
				c.Header("HX-Trigger", string(b))
			} else {
				logWarn("Failed to marshal HX-Trigger payload: %v", jerr)
			}
		}
		c.HTML(http.StatusOK, "game-content", gin.H{"game": game, "error": errMsg})
	case wantsJSON(c):
		body := gin.H{"game": game}
		for k, v := range extra {
			body[k] = v
		}
		if errMsg != "" {
			body["error"] = errMsg
		}
		c.JSON(errorStatus(err), body)
	default:
		c.Redirect(http.StatusSeeOther, RouteHome)
	}
}

func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}
