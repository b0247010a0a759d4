package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/publictransport/timetables/pkg/api/routes"
	"github.com/publictransport/timetables/pkg/engine"
)

func NewApp(timetableEngine *engine.Engine) *fiber.App {
	webApp := fiber.New(fiber.Config{DisableStartupMessage: true})
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.ProvidersRouter(group.Group("/providers"), timetableEngine)
	routes.TimetableRouter(group.Group("/timetable"), timetableEngine)
	routes.ColorGroupsRouter(group.Group("/colorgroups"), timetableEngine)

	return webApp
}

func SetupServer(listen string, timetableEngine *engine.Engine) error {
	return NewApp(timetableEngine).Listen(listen)
}
