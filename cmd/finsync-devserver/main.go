// Command finsync-devserver runs the in-memory reference backend.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"finsync/internal/cli"
	"finsync/internal/devserver"
	"finsync/internal/log"
)

func main() {
	var (
		port    = flag.String("port", "", "listen port (defaults to FINSYNC_DEVSERVER_PORT)")
		rpm     = flag.Int("rpm", 600, "requests per minute per client IP; 0 disables limiting")
		origins = flag.String("origins", "", "comma separated CORS origins; empty allows all")
		debug   = flag.Bool("debug", false, "gin debug mode")
	)
	flag.Parse()

	cfg := cli.MustConfig()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentDevServer)

	if !*debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if *port == "" {
		*port = cfg.DevServerPort
	}
	var allow []string
	if *origins != "" {
		allow = strings.Split(*origins, ",")
	}

	srv := devserver.New(devserver.Config{
		RequestsPerMinute: *rpm,
		AllowOrigins:      allow,
		Logger:            logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func(context.Context) {
		logger.Info("Dev server stopping", "requests_served", srv.Requests())
	})

	logger.Info("Starting finsync dev server", log.FieldOperation, log.OpStartup, "port", *port, "rate_limit", *rpm)
	if err := srv.Run(ctx, ":"+*port); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", *port)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
}
