package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tavern-bot/internal/domain"
	"tavern-bot/internal/services"
	"tavern-bot/pkg/logger"
)

// AdminHandler exposes the operator surface: scheduled-message CRUD and
// price catalog writes. The chat commands cover the everyday paths; this is
// for the person running the bot.
type AdminHandler struct {
	scheduler domain.MessageScheduler
	prices    *services.PriceService
	log       logger.Logger
}

type AddScheduleRequest struct {
	Body      string    `json:"body"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	StartAt   time.Time `json:"start_at"`
	Interval  string    `json:"interval"`
}

type ScheduleResponse struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	StartAt   time.Time `json:"start_at"`
	Interval  string    `json:"interval"`
	NextAt    time.Time `json:"next_at"`
}

type UpsertItemRequest struct {
	Key         string `json:"key"`
	Category    string `json:"category"`
	AverageCost int64  `json:"average_cost"`
	LowCost     int64  `json:"low_cost"`
	HighCost    int64  `json:"high_cost"`
	Restricted  bool   `json:"restricted"`
}

func NewAdminHandler(scheduler domain.MessageScheduler, prices *services.PriceService, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		scheduler: scheduler,
		prices:    prices,
		log:       log,
	}
}

func (h *AdminHandler) Register(g *echo.Group) {
	g.GET("/schedules", h.ListSchedules)
	g.POST("/schedules", h.AddSchedule)
	g.DELETE("/schedules/:id", h.RemoveSchedule)
	g.PUT("/items/:key", h.UpsertItem)
}

func (h *AdminHandler) ListSchedules(c echo.Context) error {
	jobs := h.scheduler.Jobs()

	out := make([]ScheduleResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, ScheduleResponse{
			ID:        job.ID,
			Body:      job.Body,
			GuildID:   job.GuildID,
			ChannelID: job.ChannelID,
			StartAt:   job.StartAt,
			Interval:  job.Interval.String(),
			NextAt:    job.NextAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) AddSchedule(c echo.Context) error {
	var req AddScheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if req.Body == "" || req.GuildID == "" || req.ChannelID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "body, guild_id and channel_id are required"})
	}

	interval := time.Duration(0)
	if req.Interval != "" && req.Interval != "0" {
		var err error
		interval, err = time.ParseDuration(req.Interval)
		if err != nil || interval < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid interval"})
		}
	}

	id, err := h.scheduler.Add(c.Request().Context(), req.Body, req.GuildID, req.ChannelID, req.StartAt, interval)
	if err != nil {
		h.log.Error("Failed to add schedule", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to add schedule"})
	}

	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h *AdminHandler) RemoveSchedule(c echo.Context) error {
	id := c.Param("id")

	if !h.scheduler.Remove(c.Request().Context(), id) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No such schedule"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) UpsertItem(c echo.Context) error {
	var req UpsertItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	req.Key = c.Param("key")

	item := &domain.PricedItem{
		Key:         req.Key,
		Category:    req.Category,
		AverageCost: req.AverageCost,
		LowCost:     req.LowCost,
		HighCost:    req.HighCost,
		Restricted:  req.Restricted,
	}
	if err := h.prices.UpsertItem(c.Request().Context(), item); err != nil {
		h.log.Error("Failed to upsert item", "key", req.Key, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to upsert item"})
	}

	return c.JSON(http.StatusOK, map[string]string{"key": item.Key})
}
