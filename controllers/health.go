package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

func Health(store Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		state := "up"
		if err := store.Ping(ctx); err != nil {
			state = "down"
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Retail Sales API is running",
			"store":   state,
		})
	}
}
