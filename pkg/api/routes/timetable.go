package routes

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/publictransport/timetables/pkg/engine"
	"github.com/publictransport/timetables/pkg/sourcename"
)

// QueryTimeout bounds how long a request waits for a provider
var QueryTimeout = 30 * time.Second

func TimetableRouter(router fiber.Router, timetableEngine *engine.Engine) {
	router.Get("/", func(c *fiber.Ctx) error {
		return getTimetable(c, timetableEngine)
	})
}

func getTimetable(c *fiber.Ctx, timetableEngine *engine.Engine) error {
	source := c.Query("source")
	if source == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameter source must be a source name",
		})
	}

	stopIndex := c.QueryInt("stop_index", 0)
	groups := []string{"basic"}
	if c.QueryBool("detailed", false) {
		groups = append(groups, "detailed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), QueryTimeout)
	defer cancel()

	result, err := timetableEngine.Query(ctx, source, stopIndex)
	if err != nil {
		c.SendStatus(statusFor(err))
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if result.Error != "" {
		c.Status(fiber.StatusBadGateway)
	}

	resultReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, result)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce timetable",
		})
	}

	return c.JSON(fiber.Map{
		"source":       resultReduced,
		"color_groups": colorGroupViews(result.ColorGroups),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownProvider), errors.Is(err, engine.ErrUnknownSource):
		return fiber.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, sourcename.ErrEmpty), errors.Is(err, sourcename.ErrUnknownType),
		errors.Is(err, sourcename.ErrMissingProvider), errors.Is(err, sourcename.ErrInvalidValue):
		return fiber.StatusBadRequest
	}

	return fiber.StatusUnprocessableEntity
}
