package broker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/angas/skyphase/convert"
	"github.com/angas/skyphase/engine"
	"github.com/angas/skyphase/solar"
	"github.com/angas/skyphase/types/maybe"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

// Payload is the retained message for the state topic.
type Payload struct {
	Status      engine.Status        `json:"status"`
	Error       string               `json:"error,omitempty"`
	Place       maybe.Maybe[string]  `json:"place"`
	Temperature maybe.Maybe[float64] `json:"temperature"`
	TempUnit    string               `json:"tempUnit"`
	WindSpeed   maybe.Maybe[float64] `json:"windSpeed"`
	WindUnit    string               `json:"windUnit"`
	WindFrom    maybe.Maybe[string]  `json:"windFrom"`
	Description maybe.Maybe[string]  `json:"description"`
	UvSeverity  maybe.Maybe[string]  `json:"uvSeverity"`
	Phase       solar.Phase          `json:"phase"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

func NewPayload(s engine.State, now time.Time) Payload {
	p := Payload{
		Status:    s.Status,
		Error:     s.Message,
		TempUnit:  string(s.TempUnit),
		WindUnit:  string(s.WindUnit),
		Phase:     engine.AppearanceOf(s, now).Phase,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Snapshot.IsValid() {
		snap := s.Snapshot.Value()
		p.Place = maybe.Some(snap.LocationName)
		if snap.Current.IsValid() {
			cur := snap.Current.Value()
			p.Temperature = maybe.Some(convert.OneDecimal(cur.Temperature))
			p.WindSpeed = maybe.Some(convert.OneDecimal(cur.WindSpeed))
			p.WindFrom = maybe.Some(convert.CompassPoint(cur.WindDirection))
			p.Description = maybe.Some(cur.Description)
			p.UvSeverity = maybe.Some(cur.UvSeverity)
		}
	} else if s.Place.IsValid() {
		p.Place = maybe.Some(s.Place.Value().Name)
	}
	return p
}

// Publisher sends every state, retained, to a single topic.
type Publisher struct {
	client mqtt.Client
	topic  string
	logger *slog.Logger
	now    func() time.Time
}

func New(host string, port int16, username string, password string, topic string) *Publisher {
	logger := slog.Default().With("module", "broker")
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", host, port))
	opts.SetClientID(fmt.Sprintf("skyphase-%d", time.Now().Unix()))
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	mqttLogger := slog.Default().With("module", "mqtt")
	mqtt.CRITICAL = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.WARN = newMqttLogger(mqttLogger, slog.LevelWarn)

	return newPublisher(mqtt.NewClient(opts), topic, logger)
}

func newPublisher(client mqtt.Client, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, topic: topic, logger: logger, now: time.Now}
}

// Connect starts connecting in the background, the client keeps retrying
// until the broker is reachable.
func (p *Publisher) Connect() {
	p.logger.Debug("connecting MQTT client", slog.String("topic", p.topic))
	p.client.Connect()
}

func (p *Publisher) Disconnect() {
	p.logger.Info("disconnecting MQTT client")
	p.client.Disconnect(250)
}

// Publish is meant as an engine listener and never blocks on the broker.
func (p *Publisher) Publish(s engine.State) {
	if !p.client.IsConnected() {
		p.logger.Debug("MQTT not connected, state not published", slog.Uint64("seq", s.Seq))
		return
	}

	payload, err := json.Marshal(NewPayload(s, p.now()))
	if err != nil {
		p.logger.Error("state encoding failed", slog.Any("error", err))
		return
	}

	token := p.client.Publish(p.topic, 1, true, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			p.logger.Warn("timeout when publishing state", slog.String("topic", p.topic))
		} else if token.Error() != nil {
			p.logger.Warn("error when publishing state", slog.String("topic", p.topic), slog.Any("error", token.Error()))
		}
	}()
}
