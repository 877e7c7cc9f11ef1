package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tracelab/trcd/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		MaxMeasurements: ptr.To(1000),
		SaveEnabled:     ptr.To(false),
		SaveDir:         ptr.To("./measurements"),
		MQTTTopic:       ptr.To("trcd/snapshot"),
		// No dark-current defaults: compensation stays off until the user
		// measures the constants for their detectors.
		AllowNonRootAccess: ptr.To(false),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = defaultFileConfig
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	MaxMeasurements    *int     `json:"maxMeasurements,omitempty"`
	DarkCurrentPar     *float64 `json:"darkCurrentPar,omitempty"`
	DarkCurrentPerp    *float64 `json:"darkCurrentPerp,omitempty"`
	DarkCurrentRef     *float64 `json:"darkCurrentRef,omitempty"`
	SaveEnabled        *bool    `json:"saveEnabled,omitempty"`
	SaveDir            *string  `json:"saveDir,omitempty"`
	MQTTBroker         *string  `json:"mqttBroker,omitempty"`
	MQTTTopic          *string  `json:"mqttTopic,omitempty"`
	AllowNonRootAccess *bool    `json:"allowNonRootAccess,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		MaxMeasurements:    ptr.To(c.MaxMeasurements()),
		DarkCurrentPar:     c.DarkCurrentPar(),
		DarkCurrentPerp:    c.DarkCurrentPerp(),
		DarkCurrentRef:     c.DarkCurrentRef(),
		SaveEnabled:        ptr.To(c.SaveEnabled()),
		SaveDir:            ptr.To(c.SaveDir()),
		MQTTTopic:          ptr.To(c.MQTTTopic()),
		AllowNonRootAccess: ptr.To(c.AllowNonRootAccess()),
	}
	if b := c.MQTTBroker(); b != "" {
		rawConfig.MQTTBroker = ptr.To(b)
	}

	return rawConfig, nil
}

func (f *File) MaxMeasurements() int {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var max int

	if f.c.MaxMeasurements != nil {
		max = *f.c.MaxMeasurements
	} else {
		max = *defaultFileConfig.MaxMeasurements
	}

	return max
}

func (f *File) DarkCurrentPar() *float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.c.DarkCurrentPar
}

func (f *File) DarkCurrentPerp() *float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.c.DarkCurrentPerp
}

func (f *File) DarkCurrentRef() *float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.c.DarkCurrentRef
}

func (f *File) SaveEnabled() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var save bool

	if f.c.SaveEnabled != nil {
		save = *f.c.SaveEnabled
	} else {
		save = *defaultFileConfig.SaveEnabled
	}

	return save
}

func (f *File) SaveDir() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var dir string

	if f.c.SaveDir != nil {
		dir = *f.c.SaveDir
	} else {
		dir = *defaultFileConfig.SaveDir
	}

	return dir
}

func (f *File) MQTTBroker() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	// No default: an empty broker disables the MQTT bridge.
	if f.c.MQTTBroker != nil {
		return *f.c.MQTTBroker
	}

	return ""
}

func (f *File) MQTTTopic() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var topic string

	if f.c.MQTTTopic != nil {
		topic = *f.c.MQTTTopic
	} else {
		topic = *defaultFileConfig.MQTTTopic
	}

	return topic
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var allowNonRootAccess bool

	if f.c.AllowNonRootAccess != nil {
		allowNonRootAccess = *f.c.AllowNonRootAccess
	} else {
		allowNonRootAccess = *defaultFileConfig.AllowNonRootAccess
	}

	return allowNonRootAccess
}

func (f *File) SetMaxMeasurements(i int) {
	if f.c == nil {
		panic("config is nil")
	}

	if i < 0 {
		panic("max measurements must not be negative")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.MaxMeasurements = &i
}

func (f *File) SetDarkCurrentPar(v *float64) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.DarkCurrentPar = v
}

func (f *File) SetDarkCurrentPerp(v *float64) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.DarkCurrentPerp = v
}

func (f *File) SetDarkCurrentRef(v *float64) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.DarkCurrentRef = v
}

func (f *File) SetSaveEnabled(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.SaveEnabled = &b
}

func (f *File) SetSaveDir(dir string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.SaveDir = &dir
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.AllowNonRootAccess = &b
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}
	configString := string(b)

	if strings.TrimSpace(configString) == "" {
		// If the file is empty, return the empty config.
		// Do not make f.c a nil.
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	fields := logrus.Fields{
		"maxMeasurements":    f.MaxMeasurements(),
		"saveEnabled":        f.SaveEnabled(),
		"saveDir":            f.SaveDir(),
		"mqttBroker":         f.MQTTBroker(),
		"mqttTopic":          f.MQTTTopic(),
		"allowNonRootAccess": f.AllowNonRootAccess(),
	}
	if v := f.DarkCurrentPar(); v != nil {
		fields["darkCurrentPar"] = *v
	}
	if v := f.DarkCurrentPerp(); v != nil {
		fields["darkCurrentPerp"] = *v
	}
	if v := f.DarkCurrentRef(); v != nil {
		fields["darkCurrentRef"] = *v
	}

	return fields
}
