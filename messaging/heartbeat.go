package messaging

import (
	"log"
	"os"
	"sync"
	"time"

	"fleetbot/wire"
)

// Heartbeater sends gateway.hello on startup and gateway.heartbeat
// periodically so upstream consumers can track node liveness.
type Heartbeater struct {
	client    *Client
	nodeID    string
	version   string
	topic     string
	interval  time.Duration
	startTime time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewHeartbeater creates a heartbeater for the given node identity.
func NewHeartbeater(client *Client, nodeID, version, topic string) *Heartbeater {
	return &Heartbeater{
		client:   client,
		nodeID:   nodeID,
		version:  version,
		topic:    topic,
		interval: 60 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start sends an initial hello and begins the heartbeat loop.
func (h *Heartbeater) Start() {
	h.startTime = time.Now()
	h.sendHello()
	go h.loop()
}

// Stop halts the heartbeat loop.
func (h *Heartbeater) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

func (h *Heartbeater) sendHello() {
	hostname, _ := os.Hostname()
	env, err := wire.NewEnvelope(
		wire.TypeGatewayHello,
		wire.Address{Role: wire.RoleHub, Node: h.nodeID},
		wire.Address{Role: wire.RoleGateway, Node: wire.NodeBroadcast},
		&wire.GatewayHello{
			NodeID:   h.nodeID,
			Hostname: hostname,
			Version:  h.version,
		},
	)
	if err != nil {
		log.Printf("heartbeater: build hello: %v", err)
		return
	}
	if err := h.client.PublishEnvelope(h.topic, env); err != nil {
		log.Printf("heartbeater: send hello: %v", err)
	} else {
		log.Printf("heartbeater: sent gateway.hello (node=%s)", h.nodeID)
	}
}

func (h *Heartbeater) sendHeartbeat() {
	uptime := int64(time.Since(h.startTime).Seconds())
	env, err := wire.NewEnvelope(
		wire.TypeGatewayHeartbeat,
		wire.Address{Role: wire.RoleHub, Node: h.nodeID},
		wire.Address{Role: wire.RoleGateway, Node: wire.NodeBroadcast},
		&wire.GatewayHeartbeat{
			NodeID: h.nodeID,
			Uptime: uptime,
		},
	)
	if err != nil {
		log.Printf("heartbeater: build heartbeat: %v", err)
		return
	}
	if err := h.client.PublishEnvelope(h.topic, env); err != nil {
		log.Printf("heartbeater: send heartbeat: %v", err)
	}
}

func (h *Heartbeater) loop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.sendHeartbeat()
		}
	}
}
