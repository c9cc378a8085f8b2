// Package server exposes the aggregation pipeline as a JSON HTTP API.
package server

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/packfeed/packfeed/internal/aggregator"
	"github.com/packfeed/packfeed/internal/content"
	"github.com/packfeed/packfeed/internal/metrics"
)

// ContentFetcher runs one aggregation.
type ContentFetcher interface {
	Fetch(ctx context.Context, req aggregator.Request) (*aggregator.Result, error)
}

// Credentials reports which provider credentials are configured.
type Credentials struct {
	YouTube bool `json:"youtube"`
	Twitter bool `json:"twitter"`
}

type ServerConfig struct {
	// Pipeline serves /api/content
	Pipeline ContentFetcher

	// Descriptors listed by /api/debug
	Sources content.Sources

	Credentials Credentials

	// Upper bound for one aggregation request
	FetchTimeout time.Duration

	Logger log.FieldLogger
}

type contentResponse struct {
	Success   bool                 `json:"success"`
	Count     int                  `json:"count"`
	Items     []content.Item       `json:"items"`
	Timestamp time.Time            `json:"timestamp"`
	Breakdown aggregator.Breakdown `json:"breakdown"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type debugResponse struct {
	Credentials Credentials     `json:"credentials"`
	Sources     content.Sources `json:"sources"`
	Counts      map[string]int  `json:"counts"`
}

// Server returns a fiber.App serving the content API.
func Server(config *ServerConfig) *fiber.App {
	logger := config.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "packfeed",
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			logger.WithFields(log.Fields{
				"path":  c.Path(),
				"panic": e,
			}).Error("Recovered from panic in handler")
		},
	}))
	app.Use(requestid.New(requestid.ConfigDefault))

	// Log every request with its latency
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		metrics.HTTPRequests.WithLabelValues(c.Route().Path, strconv.Itoa(status)).Inc()
		logger.WithFields(log.Fields{
			"method":     c.Method(),
			"route":      c.Route().Path,
			"status":     status,
			"latency":    time.Since(start),
			"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
		}).Info("Request")
		return err
	})

	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/api/content", contentHandler(config, logger))

	app.Get("/api/debug", func(c *fiber.Ctx) error {
		return c.JSON(debugResponse{
			Credentials: config.Credentials,
			Sources:     config.Sources,
			Counts: map[string]int{
				"youtube":  len(config.Sources.YouTube),
				"twitter":  len(config.Sources.Twitter),
				"podcasts": len(config.Sources.Podcasts),
			},
		})
	})

	return app
}

func contentHandler(config *ServerConfig, logger log.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		source, err := content.ParseSource(c.Query("source"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
		}
		sport, err := content.ParseSport(c.Query("sport"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
		}

		ctx := c.UserContext()
		if config.FetchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, config.FetchTimeout)
			defer cancel()
		}

		result, err := config.Pipeline.Fetch(ctx, aggregator.Request{Source: source, Sport: sport})
		if err != nil {
			logger.WithFields(log.Fields{
				"source": source,
				"sport":  sport,
				"error":  err,
			}).Error("Error fetching content")

			return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{
				Error:   "Failed to fetch content",
				Message: err.Error(),
			})
		}

		return c.JSON(contentResponse{
			Success:   true,
			Count:     result.Count,
			Items:     result.Items,
			Timestamp: result.FetchedAt,
			Breakdown: result.Breakdown,
		})
	}
}
