package config

import (
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	mu sync.Mutex `yaml:"-"`

	NodeID       string `yaml:"node_id"`
	DatabasePath string `yaml:"database_path"`

	Web         WebConfig         `yaml:"web"`
	Messaging   MessagingConfig   `yaml:"messaging"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Bot         BotConfig         `yaml:"bot"`
}

// WebConfig defines the companion API server settings.
type WebConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	SessionSecret     string `yaml:"session_secret"`
	AdminUser         string `yaml:"admin_user"`
	AdminPasswordHash string `yaml:"admin_password_hash"`
}

// MessagingConfig defines the messaging backend carrying gateway traffic.
type MessagingConfig struct {
	Backend             string        `yaml:"backend"` // "mqtt" or "kafka"
	MQTT                MQTTConfig    `yaml:"mqtt"`
	Kafka               KafkaConfig   `yaml:"kafka"`
	EventsTopic         string        `yaml:"events_topic"`  // inbound conversation events
	RepliesTopic        string        `yaml:"replies_topic"` // outbound replies
	FleetTopic          string        `yaml:"fleet_topic"`   // upstream fleet events
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
}

// MQTTConfig defines MQTT broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

// KafkaConfig defines Kafka broker settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
}

// RecognitionConfig points at the image-recognition services.
// Empty URLs disable the corresponding capability.
type RecognitionConfig struct {
	CodeURL  string        `yaml:"code_url"`
	GaugeURL string        `yaml:"gauge_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// BotConfig defines conversation-facing settings.
type BotConfig struct {
	EntryURL   string `yaml:"entry_url"` // base URL for registration deep links
	CancelWord string `yaml:"cancel_word"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		NodeID:       "fleetbot-1",
		DatabasePath: "fleetbot.db",
		Web: WebConfig{
			Host:      "0.0.0.0",
			Port:      8082,
			AdminUser: "admin",
		},
		Messaging: MessagingConfig{
			Backend:             "mqtt",
			EventsTopic:         "fleetbot/events",
			RepliesTopic:        "fleetbot/replies",
			FleetTopic:          "fleet/shifts",
			OutboxDrainInterval: 5 * time.Second,
			MQTT: MQTTConfig{
				Broker: "localhost",
				Port:   1883,
			},
		},
		Recognition: RecognitionConfig{
			Timeout: 15 * time.Second,
		},
		Bot: BotConfig{
			EntryURL:   "https://t.me/fleetbot",
			CancelWord: "cancel",
		},
	}
}

// Load reads a YAML config file. If the file doesn't exist, defaults are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to a YAML file.
func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ClientID returns the configured MQTT client ID, or derives one from the node ID.
func (c *Config) ClientID() string {
	if c.Messaging.MQTT.ClientID != "" {
		return c.Messaging.MQTT.ClientID
	}
	return c.NodeID
}

// KafkaGroupID returns the consumer group, defaulting to the node ID so each
// gateway node receives the full event stream.
func (c *Config) KafkaGroupID() string {
	if c.Messaging.Kafka.GroupID != "" {
		return c.Messaging.Kafka.GroupID
	}
	return c.NodeID
}
