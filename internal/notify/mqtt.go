package notify

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// MQTTSink publishes side effects as JSON messages under a topic prefix:
// <prefix>/notices, <prefix>/cues and <prefix>/refresh.
type MQTTSink struct {
	pub    Publisher
	prefix string
}

// Publisher is the part of mqtt.Client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// ConnectMQTT connects to broker and returns a sink publishing under prefix.
func ConnectMQTT(broker, clientID, prefix string) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return NewMQTTSink(client, prefix), nil
}

// NewMQTTSink wraps an already connected publisher.
func NewMQTTSink(pub Publisher, prefix string) *MQTTSink {
	return &MQTTSink{pub: pub, prefix: prefix}
}

// Close disconnects, waiting up to 250ms for in-flight messages.
func (s *MQTTSink) Close() {
	if c, ok := s.pub.(mqtt.Client); ok {
		c.Disconnect(250)
	}
}

func (s *MQTTSink) Notify(n Notice) {
	publish(s.pub, s.prefix+"/notices", n)
}

func (s *MQTTSink) Cue(vehicleID, cue string) {
	publish(s.pub, s.prefix+"/cues", map[string]string{"vehicle_id": vehicleID, "cue": cue})
}

func (s *MQTTSink) Refresh(vehicleID string) {
	publish(s.pub, s.prefix+"/refresh", map[string]string{"vehicle_id": vehicleID})
}

// publish sends at QoS 0 and does not wait for delivery.
func publish(p Publisher, topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).WithField("topic", topic).Error("Failed to marshal MQTT payload")
		return
	}
	token := p.Publish(topic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).WithField("topic", topic).Warn("MQTT publish failed")
		}
	}()
}
