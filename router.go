package main

import (
	"affiliate/app"
	"affiliate/internal/middleware"
	"affiliate/pkg/config"
	"affiliate/pkg/docstore"
	"affiliate/pkg/events"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

type dependencies struct {
	config    *config.AppConfig
	store     *docstore.Store
	publisher events.Publisher
	images    app.ImageStorage
	recorder  *app.ClickRecorder
	logger    *zap.Logger
}

func newApp(deps dependencies) *fiber.App {
	server := fiber.New(fiber.Config{
		IdleTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Concurrency:  256 * 1024,
		// Request values outlive the handler in the click recorder.
		Immutable:    true,
		BodyLimit:    6 * 1024 * 1024,
		ErrorHandler: writeError,
	})

	server.Use(recover.New())
	server.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS,HEAD",
		AllowHeaders: "*",
	}))
	server.Use(middleware.NewRequestLoggerMiddleware(deps.logger))

	serviceName := deps.config.ServiceName

	rootHandler := app.RootHandler{}
	diagnosticsHandler := app.NewDiagnosticsHandler(deps.store, deps.config.DatabaseURL != "", deps.config.DatabaseName)
	createCategoryHandler := app.NewCreateCategoryHandler(deps.store, deps.publisher, serviceName)
	getCategoriesHandler := app.NewGetCategoriesHandler(deps.store)
	createProductHandler := app.NewCreateProductHandler(deps.store, deps.publisher, serviceName)
	getProductsHandler := app.NewGetProductsHandler(deps.store)
	recordClickHandler := app.NewRecordClickHandler(deps.store)
	redirectHandler := app.NewRedirectHandler(deps.store, deps.recorder)
	uploadImageHandler := app.NewUploadImageHandler(deps.images)

	server.Get("/", handle[app.RootRequest, app.RootResponse](rootHandler))
	server.Get("/test", handle[app.DiagnosticsRequest, app.DiagnosticsResponse](diagnosticsHandler))
	server.Get("/r/:product_id", handle[app.RedirectRequest, app.RedirectResponse](redirectHandler))

	api := server.Group("/api")
	api.Post("/categories", handle[app.CreateCategoryRequest, app.CreatedResponse](createCategoryHandler))
	api.Get("/categories", handle[app.GetCategoriesRequest, app.GetCategoriesResponse](getCategoriesHandler))
	api.Post("/products", handle[app.CreateProductRequest, app.CreatedResponse](createProductHandler))
	api.Get("/products", handle[app.GetProductsRequest, app.GetProductsResponse](getProductsHandler))
	api.Post("/clicks", handle[app.RecordClickRequest, app.CreatedResponse](recordClickHandler))
	api.Post("/images", uploadImage(uploadImageHandler))

	return server
}

// uploadImage reads the multipart "image" field. A missing file reaches the
// handler as an empty request, which rejects it.
func uploadImage(handler *app.UploadImageHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req app.UploadImageRequest

		if file, err := c.FormFile("image"); err == nil {
			f, err := file.Open()
			if err != nil {
				return writeError(c, err)
			}
			defer f.Close()

			data, err := io.ReadAll(f)
			if err != nil {
				return writeError(c, err)
			}

			req = app.UploadImageRequest{
				FileName:    file.Filename,
				ContentType: file.Header.Get(fiber.HeaderContentType),
				Data:        data,
			}
		}

		res, err := handler.Handle(c.UserContext(), &req)
		if err != nil {
			return writeError(c, err)
		}

		return writeResponse(c, res)
	}
}
