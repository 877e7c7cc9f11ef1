package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tracelab/trcd/pkg/config"
	"github.com/tracelab/trcd/pkg/events"
	"github.com/tracelab/trcd/pkg/scope"
)

var (
	conf      config.Config
	hub       = events.NewEventHub()
	scheduler *Scheduler

	// newSource builds the acquisition source for a session. A function var
	// so tests can substitute a scripted source.
	newSource = func() scope.Source { return scope.NewSimSource() }
)

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/config", getConfig)
	router.GET("/max-measurements", getMaxMeasurements)
	router.PUT("/max-measurements", setMaxMeasurements)
	router.PUT("/dark-current", setDarkCurrent)
	router.PUT("/save", setSave)
	router.GET("/session", getSession)
	router.POST("/session/start", postSessionStart)
	router.POST("/session/stop", postSessionStop)
	router.POST("/session/reset-averages", postResetAverages)
	router.GET("/snapshot", getSnapshot)
	router.GET("/time-axis", getTimeAxis)
	router.PUT("/schedule", setSchedule)
	router.POST("/schedule/postpone", postSchedulePostpone)
	router.POST("/schedule/skip", postScheduleSkip)
	router.GET("/ws", getWS)
	router.GET("/version", getVersion)

	return router
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	router := setupRoutes()

	fileConf, err := config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	conf = fileConf
	logrus.WithFields(fileConf.LogrusFields()).Infof("config loaded")

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.Infof("config reloaded")
		}
	}()

	scheduler = NewScheduler(
		startSession,
		sessionPreCheck,
		func(data any) {
			logrus.WithField("runAt", data).Info("scheduled session upcoming")
		},
		func(data any) {
			logrus.WithField("error", data).Error("scheduled session failed")
		},
	)

	if err := setupMQTT(); err != nil {
		// The bridge is optional; a broken broker must not keep the
		// instrument offline.
		logrus.Errorf("mqtt bridge unavailable: %v", err)
	}

	srv := &http.Server{
		Handler: router,
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, chaning permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	if err := stopSession(); err != nil && !errors.Is(err, ErrSessionNotRunning) {
		logrus.Errorf("failed to stop session before exiting: %v", err)
	}

	scheduler.Stop()

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	shutdownMQTT()

	logrus.Info("exiting")
	return nil
}
