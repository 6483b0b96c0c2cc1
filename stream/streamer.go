package stream

import (
	"fmt"

	"github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// Publisher is the part of an MQTT client the streamer needs.
type Publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Streamer publishes dash patterns as binary over MQTT, one topic per layer.
type Streamer struct {
	client Publisher
	topic  string
	qos    byte
}

// NewStreamer creates an instance of a Streamer publishing under topic.
func NewStreamer(client Publisher, topic string, qos byte) *Streamer {
	s := new(Streamer)
	s.client = client
	s.topic = topic
	s.qos = qos
	return s
}

// Topic returns the topic patterns for layerID are published on.
func (s *Streamer) Topic(layerID string) string {
	return s.topic + "/" + layerID
}

// SetDashPattern sends the pattern as binary to the layer's topic. It does
// not wait for the broker; delivery failures are logged when the token completes.
func (s *Streamer) SetDashPattern(layerID string, p Pattern) error {
	if !s.client.IsConnected() {
		return fmt.Errorf("%w: mqtt not connected", ErrSinkUnavailable)
	}

	b, _ := p.MarshalBinary()
	topic := s.Topic(layerID)
	token := s.client.Publish(topic, s.qos, false, b)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			logrus.WithFields(logrus.Fields{"topic": topic, "error": err}).Warn("Publish failed")
		}
	}()
	return nil
}
