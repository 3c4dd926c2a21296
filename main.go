package main

import (
	"affiliate/app"
	"affiliate/infra"
	"affiliate/infra/rabbitmq"
	"affiliate/pkg/aws"
	"affiliate/pkg/config"
	"affiliate/pkg/docstore"
	"affiliate/pkg/events"
	"affiliate/pkg/httperror"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Request any
type Response any

type HandlerInterface[R Request, Res Response] interface {
	Handle(ctx context.Context, req *R) (*Res, error)
}

// statusCoder lets a response pick a status other than 200.
type statusCoder interface {
	StatusCode() int
}

// redirecter turns a response into a 307 to its location.
type redirecter interface {
	RedirectLocation() string
}

func handle[R Request, Res Response](handler HandlerInterface[R, Res]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req R

		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
			if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
				return writeError(c, httperror.UnprocessableEntity(
					"request.invalid_body",
					"Invalid body",
					fiber.Map{"error": err.Error()},
				))
			}
		default:
			if err := c.QueryParser(&req); err != nil {
				return writeError(c, httperror.UnprocessableEntity(
					"request.invalid_query_params",
					"Invalid query params",
					fiber.Map{"error": err.Error()},
				))
			}
		}

		if err := c.ParamsParser(&req); err != nil {
			return writeError(c, httperror.UnprocessableEntity(
				"request.invalid_path_params",
				"Invalid path params",
				fiber.Map{"error": err.Error()},
			))
		}

		res, err := handler.Handle(c.UserContext(), &req)
		if err != nil {
			return writeError(c, err)
		}

		return writeResponse(c, res)
	}
}

func writeResponse(c *fiber.Ctx, res any) error {
	if r, ok := res.(redirecter); ok {
		return c.Redirect(r.RedirectLocation(), fiber.StatusTemporaryRedirect)
	}

	if s, ok := res.(statusCoder); ok {
		c.Status(s.StatusCode())
	}

	return c.JSON(res)
}

func main() {
	appConfig := config.Read()

	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if appConfig.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	}
	logger, _ := zapConfig.Build()
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	zap.L().Info("app starting...",
		zap.String("env", appConfig.AppEnv),
		zap.String("storeDriver", appConfig.StoreDriver),
		zap.Bool("databaseUrlSet", appConfig.DatabaseURL != ""),
	)

	store := infra.OpenStore(context.Background(), appConfig)

	var publisher events.Publisher
	if appConfig.RabbitMQURL != "" {
		p, err := rabbitmq.NewPublisher(appConfig.RabbitMQURL, appConfig.ServiceName, events.CatalogExchange, events.ClickExchange)
		if err != nil {
			zap.L().Error("Event publishing disabled", zap.Error(err))
		} else {
			publisher = p
		}
	}

	var images app.ImageStorage
	if appConfig.AWSBucket != "" {
		images = aws.NewS3Bucket(appConfig)
	}

	var sink app.ClickSink = app.NewStoreClickSink(store)
	if publisher != nil {
		sink = app.NewPublisherClickSink(publisher, appConfig.ServiceName)
	}
	recorder := app.NewClickRecorder(sink, appConfig.ClickTimeout)

	server := newApp(dependencies{
		config:    appConfig,
		store:     store,
		publisher: publisher,
		images:    images,
		recorder:  recorder,
		logger:    zap.L(),
	})

	go func() {
		if err := server.Listen(fmt.Sprintf("0.0.0.0:%s", appConfig.Port)); err != nil {
			zap.L().Error("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	zap.L().Info("Server started on port", zap.String("port", appConfig.Port))

	gracefulShutdown(server, recorder, store, publisher)
}

func gracefulShutdown(server *fiber.App, recorder *app.ClickRecorder, store *docstore.Store, publisher events.Publisher) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	zap.L().Info("Shutting down server...")

	if err := server.ShutdownWithTimeout(5 * time.Second); err != nil {
		zap.L().Error("Error during server shutdown", zap.Error(err))
	}

	// Let in-flight clicks land before their sink goes away.
	recorder.Wait()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			zap.L().Error("Error closing event publisher", zap.Error(err))
		}
	}

	if err := store.Close(); err != nil {
		zap.L().Error("Error closing document store", zap.Error(err))
	}

	zap.L().Info("Server gracefully stopped")
}

func writeError(c *fiber.Ctx, err error) error {
	var httpErr *httperror.Error
	if errors.As(err, &httpErr) {
		payload := fiber.Map{
			"code":    httpErr.Code,
			"message": httpErr.Message,
		}

		if httpErr.Details != nil {
			payload["details"] = httpErr.Details
		}

		if httpErr.Status >= fiber.StatusInternalServerError {
			zap.L().Error("Handler returned server error", zap.String("code", httpErr.Code), zap.Error(httpErr))
		} else {
			zap.L().Warn("Handler returned client error", zap.String("code", httpErr.Code), zap.Error(httpErr))
		}

		return c.Status(httpErr.Status).JSON(payload)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := "request.invalid"
		if fiberErr.Code == fiber.StatusNotFound {
			code = "route.not_found"
		}

		zap.L().Warn("Fiber error", zap.String("message", fiberErr.Message), zap.Error(err))
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"code":    code,
			"message": fiberErr.Message,
		})
	}

	zap.L().Error("Unhandled error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"code":    "internal_server_error",
		"message": "Internal server error.",
	})
}
