package config

type Config interface {
	MaxMeasurements() int
	DarkCurrentPar() *float64
	DarkCurrentPerp() *float64
	DarkCurrentRef() *float64
	SaveEnabled() bool
	SaveDir() string
	MQTTBroker() string
	MQTTTopic() string
	AllowNonRootAccess() bool

	SetMaxMeasurements(int)
	SetDarkCurrentPar(*float64)
	SetDarkCurrentPerp(*float64)
	SetDarkCurrentRef(*float64)
	SetSaveEnabled(bool)
	SetSaveDir(string)
	SetAllowNonRootAccess(bool)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
