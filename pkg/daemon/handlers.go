package daemon

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tracelab/trcd/pkg/config"
	"github.com/tracelab/trcd/pkg/version"
)

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getMaxMeasurements(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, conf.MaxMeasurements())
}

func setMaxMeasurements(c *gin.Context) {
	var m int
	if err := c.BindJSON(&m); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if m < 1 {
		err := fmt.Errorf("max measurements must be at least 1, got %d", m)
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	conf.SetMaxMeasurements(m)
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("set max measurements to %d", m)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set max measurements to %d. Takes effect on the next session.", m))
}

// darkCurrentRequest carries the per-channel constants. A null field
// disables compensation for that channel.
type darkCurrentRequest struct {
	Par  *float64 `json:"par"`
	Perp *float64 `json:"perp"`
	Ref  *float64 `json:"ref"`
}

func setDarkCurrent(c *gin.Context) {
	var d darkCurrentRequest
	if err := c.BindJSON(&d); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	conf.SetDarkCurrentPar(d.Par)
	conf.SetDarkCurrentPerp(d.Perp)
	conf.SetDarkCurrentRef(d.Ref)
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"par":  d.Par,
		"perp": d.Perp,
		"ref":  d.Ref,
	}).Info("set dark current")

	c.IndentedJSON(http.StatusCreated, "ok")
}

type saveRequest struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir,omitempty"`
}

func setSave(c *gin.Context) {
	var s saveRequest
	if err := c.BindJSON(&s); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	conf.SetSaveEnabled(s.Enabled)
	if s.Dir != "" {
		conf.SetSaveDir(s.Dir)
	}
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("set save enabled to %t (dir %s)", s.Enabled, conf.SaveDir())

	msg := "saving disabled"
	if s.Enabled {
		msg = fmt.Sprintf("saving to %s. The directory is cleared when a session starts.", conf.SaveDir())
	}
	c.IndentedJSON(http.StatusCreated, msg)
}

func getSession(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, getSessionStatus())
}

func postSessionStart(c *gin.Context) {
	if err := startSession(); err != nil {
		logrus.Errorf("startSession failed: %v", err)
		status := http.StatusInternalServerError
		if err == ErrSessionRunning {
			status = http.StatusConflict
		}
		c.IndentedJSON(status, err.Error())
		_ = c.AbortWithError(status, err)
		return
	}

	c.IndentedJSON(http.StatusCreated, "session started")
}

func postSessionStop(c *gin.Context) {
	if err := stopSession(); err != nil {
		status := http.StatusInternalServerError
		if err == ErrSessionNotRunning {
			status = http.StatusConflict
		}
		c.IndentedJSON(status, err.Error())
		_ = c.AbortWithError(status, err)
		return
	}

	c.IndentedJSON(http.StatusOK, "session stopped")
}

func postResetAverages(c *gin.Context) {
	if err := resetAverages(); err != nil {
		status := http.StatusInternalServerError
		if err == ErrSessionNotRunning {
			status = http.StatusConflict
		}
		c.IndentedJSON(status, err.Error())
		_ = c.AbortWithError(status, err)
		return
	}

	c.IndentedJSON(http.StatusOK, "averages will reset on the next completed measurement")
}

func getSnapshot(c *gin.Context) {
	snap := latestSnapshot()
	if snap == nil {
		c.IndentedJSON(http.StatusNotFound, "no snapshot available")
		return
	}
	c.IndentedJSON(http.StatusOK, snap)
}

func getTimeAxis(c *gin.Context) {
	axis := sessionTimeAxis()
	if axis == nil {
		c.IndentedJSON(http.StatusNotFound, "no session running")
		return
	}
	c.IndentedJSON(http.StatusOK, axis)
}

func setSchedule(c *gin.Context) {
	var expr string
	if err := c.BindJSON(&expr); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if expr == "" {
		scheduler.Stop()
		logrus.Info("session schedule disabled")
		c.IndentedJSON(http.StatusOK, "schedule disabled")
		return
	}

	if err := scheduler.Schedule(expr); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	scheduler.Start()

	next, _ := scheduler.Status()
	logrus.WithField("nextRun", next).Info("session scheduled")

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("next session at %s", next.Format(time.DateTime)))
}

func postSchedulePostpone(c *gin.Context) {
	var minutes int
	if err := c.BindJSON(&minutes); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := scheduler.Postpone(time.Duration(minutes) * time.Minute); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	c.IndentedJSON(http.StatusOK, fmt.Sprintf("next session postponed by %d minutes", minutes))
}

func postScheduleSkip(c *gin.Context) {
	if err := scheduler.Skip(); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	c.IndentedJSON(http.StatusOK, "next scheduled session skipped")
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
