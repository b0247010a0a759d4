package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/publictransport/timetables/pkg/colorgroups"
	"github.com/publictransport/timetables/pkg/engine"
)

type colorGroup struct {
	Color       string `json:"color"`
	Target      string `json:"target"`
	DisplayText string `json:"display_text"`
	FilterOut   bool   `json:"filter_out"`
	Filter      string `json:"filter"`
}

func ColorGroupsRouter(router fiber.Router, timetableEngine *engine.Engine) {
	router.Get("/", func(c *fiber.Ctx) error {
		return listColorGroups(c, timetableEngine)
	})
	router.Post("/toggle", func(c *fiber.Ctx) error {
		return toggleColorGroup(c, timetableEngine)
	})
}

func listColorGroups(c *fiber.Ctx, timetableEngine *engine.Engine) error {
	source, err := timetableEngine.Source(c.Query("source"), c.QueryInt("stop_index", 0))
	if err != nil {
		c.SendStatus(statusFor(err))
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(colorGroupViews(source.ColorGroups))
}

func colorGroupViews(settings colorgroups.SettingsList) []colorGroup {
	groups := []colorGroup{}
	for _, group := range settings {
		groups = append(groups, colorGroup{
			Color:       colorgroups.Hex(group.Color),
			Target:      group.Target,
			DisplayText: group.DisplayText,
			FilterOut:   group.FilterOut,
			Filter:      group.Filters.String(),
		})
	}

	return groups
}

func toggleColorGroup(c *fiber.Ctx, timetableEngine *engine.Engine) error {
	if err := timetableEngine.ToggleColorGroup(c.Query("source"), c.Query("color")); err != nil {
		c.SendStatus(statusFor(err))
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return listColorGroups(c, timetableEngine)
}
