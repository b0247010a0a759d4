package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/publictransport/timetables/pkg/accessorinfo"
	"github.com/publictransport/timetables/pkg/engine"
)

type providerFeatures struct {
	Departures      bool `json:"departures"`
	Journeys        bool `json:"journeys"`
	StopSuggestions bool `json:"stop_suggestions"`
}

func ProvidersRouter(router fiber.Router, timetableEngine *engine.Engine) {
	router.Get("/", func(c *fiber.Ctx) error {
		return listProviders(c, timetableEngine)
	})
	router.Get("/:id", func(c *fiber.Ctx) error {
		return getProvider(c, timetableEngine)
	})
}

func listProviders(c *fiber.Ctx, timetableEngine *engine.Engine) error {
	providersReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, timetableEngine.Providers())

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce providers",
		})
	}

	return c.JSON(providersReduced)
}

func getProvider(c *fiber.Ctx, timetableEngine *engine.Engine) error {
	info, exists := timetableEngine.Provider(c.Params("id"))
	if !exists {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find provider matching the id",
		})
	}

	providerReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, info)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce provider",
		})
	}

	return c.JSON(fiber.Map{
		"provider": providerReduced,
		"name":     info.Name(c.Query("lang", "en")),
		"features": featuresOf(info),
	})
}

func featuresOf(info *accessorinfo.AccessorInfo) providerFeatures {
	return providerFeatures{
		Departures:      true,
		Journeys:        info.SupportsJourneys(),
		StopSuggestions: info.SupportsStopSuggestions(),
	}
}
