package bootstrap

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	httpadapter "github.com/DaveBieleveld/TrackTime365/adapter/in/http"
	"github.com/DaveBieleveld/TrackTime365/infra/middleware"
)

// NewStatusServer builds the fiber app serving health, sync status and the
// read API over the mirrored store.
func NewStatusServer(deps *Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: deps.Config.IsProduction(),

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		ServerHeader:       "",
		DisableDefaultDate: true,
	})

	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())

	httpadapter.NewHealthHandler(deps.Pool, deps.Redis).Register(app)
	httpadapter.NewStatusHandler(deps.SyncService, deps.Stats).Register(app)
	httpadapter.NewQueryHandler(deps.QueryService).Register(app)

	return app
}
