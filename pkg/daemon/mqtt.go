package daemon

import (
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/tracelab/trcd/pkg/trace"
)

var mqttClient mqtt.Client

// setupMQTT connects the snapshot bridge when a broker is configured. An
// empty broker leaves the bridge disabled.
func setupMQTT() error {
	broker := conf.MQTTBroker()
	if broker == "" {
		logrus.Debug("no mqtt broker configured, bridge disabled")
		return nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("trcd-daemon").
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	mqttClient = client

	logrus.WithFields(logrus.Fields{
		"broker": broker,
		"topic":  conf.MQTTTopic(),
	}).Info("connected to mqtt broker")

	return nil
}

// publishMQTTSnapshot forwards one completed measurement to the configured
// topic, retained so late subscribers see the latest measurement. Publish
// failures are logged and dropped; the acquisition loop must not stall on a
// flaky broker.
func publishMQTTSnapshot(snap *trace.Snapshot) {
	if mqttClient == nil {
		return
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		logrus.Errorf("failed to marshal snapshot for mqtt: %v", err)
		return
	}

	publishMQTT(conf.MQTTTopic(), payload)
}

// publishMQTTEvent forwards a session event on the events subtopic.
func publishMQTTEvent(name string, payload any) {
	if mqttClient == nil {
		return
	}

	b, err := json.Marshal(map[string]any{"event": name, "data": payload})
	if err != nil {
		logrus.Errorf("failed to marshal %s event for mqtt: %v", name, err)
		return
	}

	publishMQTT(conf.MQTTTopic()+"/events", b)
}

func publishMQTT(topic string, payload []byte) {
	token := mqttClient.Publish(topic, 0, true, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			logrus.Errorf("mqtt publish failed: %v", token.Error())
		}
	}()
}

func shutdownMQTT() {
	if mqttClient == nil {
		return
	}
	mqttClient.Disconnect(250)
	mqttClient = nil
}
