package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := loadConfig(&opts)
	check(err)

	log, err := newLogger(cfg.Log.Level, cfg.Log.Format)
	check(err)
	defer log.Sync()

	fs, err := newFilesystem(cfg.Root)
	check(err)

	srv := newServer(fs, cfg.MaxDepth, log)

	// no write timeout, media downloads can take arbitrarily long
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("server started",
			zap.String("listen", cfg.Listen),
			zap.String("root", fs.path),
		)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

func check(err error) {
	if err == nil {
		return
	}

	fatal("%v", err)
}

func fatal(fmsg string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+fmsg+"\n", v...)
	os.Exit(1)
}
