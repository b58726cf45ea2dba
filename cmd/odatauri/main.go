package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/gofiber/fiber/v2"
	"github.com/odatakit/odatauri/builder"
	"github.com/odatakit/odatauri/config"
	"github.com/odatakit/odatauri/odataerr"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	maxInputLength = 1024 * 1024 // 1MB
	maxParamLength = 1024        // 1KB
)

type globals struct {
	Config   string   `kong:"short='c',help='YAML configuration file containing services and global settings'"`
	Services []string `kong:"short='s',help='Individual YAML service files to load (supports glob patterns like dir/*.yaml)'"`
	LogLevel *string  `kong:"short='l',help='Log level (debug, info, warn, error)'"`
}

type appConfig struct {
	globals

	Serve   serveCmd   `kong:"cmd,default='1',help='Serve the URI building endpoints over HTTP'"`
	Render  renderCmd  `kong:"cmd,help='Render a URI description document as a request URI'"`
	Literal literalCmd `kong:"cmd,help='Convert URI literals and print the results as a table'"`
}

type serveCmd struct {
	Port *int `kong:"short='p',help='Port to listen on'"`
}

type renderCmd struct {
	Service   string `kong:"arg,help='ID of the service to render for'"`
	File      string `kong:"arg,type='existingfile',help='JSON or YAML document describing the URI'"`
	Delimiter string `kong:"short='d',help='Key delimiter override (parentheses, slash)'"`
	Format    string `kong:"short='f',help='Document format (json, yaml); derived from the file extension if empty'"`
}

type literalCmd struct {
	Service  string   `kong:"arg,help='ID of the service whose types are used'"`
	Literals []string `kong:"arg,help='URI literals to convert'"`
	Type     string   `kong:"short='t',help='Qualified type name the literals are read as'"`
}

// literalRequest is the body of POST /:service/literal
type literalRequest struct {
	Literal string `json:"literal"`
	Type    string `json:"type,omitempty"`
}

func parseConfig() (*appConfig, *kong.Context) {
	cfg := &appConfig{}

	desc := config.Description
	desc += " [" + config.Version + "]"

	ctx := kong.Parse(cfg,
		kong.Name(config.Title),
		kong.Description(desc),
		kong.UsageOnError(),
	)
	if ctx.Error != nil {
		fmt.Fprintln(os.Stderr, ctx.Error)
		os.Exit(1)
	}
	return cfg, ctx
}

func setupLogger(level string) {
	// Parse log level
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Error().Err(err).Str("level", level).Msg("Invalid log level, defaulting to info")
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// setupFiberLogger configures fiber's logger middleware to integrate with zerolog
func setupFiberLogger() fiber.Handler {
	// Only enable HTTP request logging if log level is debug or info
	if zerolog.GlobalLevel() > zerolog.InfoLevel {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		// Determine log level based on status code
		logEvent := log.Info()
		if status >= 400 && status < 500 {
			logEvent = log.Warn()
		} else if status >= 500 {
			logEvent = log.Error()
		}

		logEvent.
			Int("status", status).
			Dur("latency", latency).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Str("user_agent", c.Get("User-Agent")).
			Msg("HTTP request")

		return err
	}
}

// load reads the configuration and creates the builder. The log level
// is set up from the configuration unless overridden by flag.
func (g *globals) load() (*config.Config, *builder.Builder, error) {
	if g.Config == "" && len(g.Services) == 0 {
		return nil, nil, fmt.Errorf("at least one configuration source must be provided: use -c for main config file or -s for service files")
	}

	expanded, err := expandGlobs(g.Services)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadFromSources(g.Config, expanded)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if g.LogLevel != nil {
		level = *g.LogLevel
	}
	setupLogger(level)

	b, err := builder.NewBuilder(cfg.Services)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create builder: %w", err)
	}
	return cfg, b, nil
}

func main() {
	cfg, ctx := parseConfig()

	if err := ctx.Run(&cfg.globals); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

// Run starts the HTTP service and blocks until interrupted
func (s *serveCmd) Run(g *globals) error {
	cfg, b, err := g.load()
	if err != nil {
		return err
	}

	finalPort := cfg.Port
	if s.Port != nil {
		finalPort = *s.Port
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             maxInputLength,
	})

	app.Use(setupFiberLogger())

	setupRoutes(app, b)

	go func() {
		log.Info().Int("port", finalPort).Msg("Starting server")
		fmt.Printf("Starting server port=%d\n", finalPort)

		for _, service := range cfg.Services {
			log.Info().Str("id", service.ID).Str("desc", service.Description).Msg("Loaded service")
			fmt.Printf("Loaded service desc=%s id=%s\n",
				formatConsoleField(service.Description),
				service.ID,
			)
		}

		if err := app.Listen(fmt.Sprintf(":%d", finalPort)); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down server")
	return app.Shutdown()
}

// Run prints the URI described by the document file
func (r *renderCmd) Run(g *globals) error {
	_, b, err := g.load()
	if err != nil {
		return err
	}

	format := r.Format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(r.File), ".")
	}
	return renderDocument(os.Stdout, b, r.Service, r.File, format, r.Delimiter)
}

// Run prints a conversion table of the given literals
func (l *literalCmd) Run(g *globals) error {
	_, b, err := g.load()
	if err != nil {
		return err
	}
	return writeLiteralTable(os.Stdout, b, l.Service, l.Type, l.Literals)
}

func renderDocument(w io.Writer, b *builder.Builder, serviceID, file, format, delimiter string) error {
	f, err := builder.ParseFormat(format)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read document '%s': %w", file, err)
	}

	result, err := b.BuildURI(serviceID, builder.BuildOptions{Format: f, Delimiter: delimiter}, data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, result)
	return err
}

// writeLiteralTable converts every literal and writes the results as a
// markdown table. Failed conversions are listed, not returned.
func writeLiteralTable(w io.Writer, b *builder.Builder, serviceID, typeName string, literals []string) error {
	if _, ok := b.Service(serviceID); !ok {
		return fmt.Errorf("service with ID %s not found", serviceID)
	}

	alignment := []tw.Align{tw.AlignNone, tw.AlignNone, tw.AlignNone, tw.AlignNone, tw.AlignNone}
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"Input", "Type", "Literal", "JSON", "Status"})

	failed := 0
	for _, text := range literals {
		conv, err := b.ConvertLiteral(serviceID, text, typeName)
		if err != nil {
			failed++
			status := color.RedString("error")
			if kind := odataerr.KindOf(err); kind != "" {
				status = color.RedString(string(kind))
			}
			if err := table.Append([]string{text, typeName, "", "", status + ": " + err.Error()}); err != nil {
				return err
			}
			continue
		}
		if err := table.Append([]string{text, conv.TypeName, conv.Literal, conv.JSON, color.GreenString("ok")}); err != nil {
			return err
		}
	}

	if err := table.Render(); err != nil {
		return err
	}

	summary := color.GreenString("%d converted", len(literals)-failed)
	if failed > 0 {
		summary += ", " + color.RedString("%d failed", failed)
	}
	_, err := fmt.Fprintf(w, "\n_%s_\n", summary)
	return err
}

func setupRoutes(app *fiber.App, b *builder.Builder) {
	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/services", handleServices(b))

	app.Post("/:service/uri", handleBuildURI(b))
	app.Post("/:service/literal", handleConvertLiteral(b))
	app.Get("/:service/metadata", handleMetadata(b))
}

func handleServices(b *builder.Builder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		services := make([]fiber.Map, 0)
		for _, id := range b.ServiceIDs() {
			s, _ := b.Service(id)
			services = append(services, fiber.Map{
				"id":           s.ID,
				"desc":         s.Description,
				"serviceRoot":  s.ServiceRoot,
				"keyDelimiter": s.KeyDelimiter,
			})
		}
		return c.JSON(services)
	}
}

func handleBuildURI(b *builder.Builder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		serviceID := c.Params("service")
		delimiter := c.Query("delimiter", "")
		format := c.Query("format", "json")

		if err := validateInput(serviceID, delimiter, format); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if _, ok := b.Service(serviceID); !ok {
			return serviceNotFound(c, serviceID)
		}

		f, err := builder.ParseFormat(format)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		result, err := b.BuildURI(serviceID, builder.BuildOptions{Format: f, Delimiter: delimiter}, c.Body())
		if err != nil {
			log.Warn().Err(err).Str("service", serviceID).Msg("Failed to build URI")
			return errorResponse(c, err)
		}

		return c.JSON(fiber.Map{
			"uri": result,
		})
	}
}

func handleConvertLiteral(b *builder.Builder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		serviceID := c.Params("service")

		var req literalRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON in request body",
			})
		}
		if err := validateInput(serviceID, req.Type); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if _, ok := b.Service(serviceID); !ok {
			return serviceNotFound(c, serviceID)
		}

		conv, err := b.ConvertLiteral(serviceID, req.Literal, req.Type)
		if err != nil {
			log.Warn().Err(err).Str("service", serviceID).Str("literal", req.Literal).Msg("Failed to convert literal")
			return errorResponse(c, err)
		}

		result := fiber.Map{
			"input":   conv.Input,
			"type":    conv.TypeName,
			"literal": conv.Literal,
		}
		if conv.JSON != "" {
			result["value"] = json.RawMessage(conv.JSON)
		}
		return c.JSON(result)
	}
}

func handleMetadata(b *builder.Builder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		serviceID := c.Params("service")
		if err := validateInput(serviceID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		s, ok := b.Service(serviceID)
		if !ok {
			return serviceNotFound(c, serviceID)
		}

		metadata, err := b.MetadataDocumentURI(serviceID)
		if err != nil {
			return errorResponse(c, err)
		}

		return c.JSON(fiber.Map{
			"id":           s.ID,
			"serviceRoot":  s.ServiceRoot,
			"keyDelimiter": s.KeyDelimiter,
			"metadata":     metadata,
		})
	}
}

func serviceNotFound(c *fiber.Ctx, serviceID string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": fmt.Sprintf("service with ID %s not found", serviceID),
	})
}

// errorResponse reports a failed conversion. Every failure is caused by
// the request, so the kind is passed on to the client.
func errorResponse(c *fiber.Ctx, err error) error {
	body := fiber.Map{
		"error": err.Error(),
	}
	if kind := odataerr.KindOf(err); kind != "" {
		body["kind"] = string(kind)
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}

// validateInput checks the length and characters of request parameters
func validateInput(params ...string) error {
	for _, value := range params {
		if len(value) > maxParamLength {
			return fmt.Errorf("parameter too long (max %d bytes)", maxParamLength)
		}
		if strings.ContainsAny(value, "<>{}[]\\") {
			return fmt.Errorf("parameter contains invalid characters")
		}
	}
	return nil
}

func formatConsoleField(value string) string {
	if strings.ContainsAny(value, " \t") {
		return strconv.Quote(value)
	}
	return value
}

// expandGlobs expands glob patterns in the slice of file paths
func expandGlobs(patterns []string) ([]string, error) {
	var expanded []string

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to expand glob pattern '%s': %w", pattern, err)
		}

		// If no matches found, treat as literal filename (consistent with shell behavior)
		if len(matches) == 0 {
			log.Warn().Str("pattern", pattern).Msg("Glob pattern matched no files, treating as literal filename")
			expanded = append(expanded, pattern)
		} else {
			expanded = append(expanded, matches...)
		}
	}

	return expanded, nil
}
