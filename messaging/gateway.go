package messaging

import (
	"log"

	"fleetbot/bot"
	"fleetbot/store"
	"fleetbot/wire"
)

// ConversationRouter is the conversation engine the gateway feeds.
type ConversationRouter interface {
	HandleEvent(ev bot.Event) bot.Reply
}

// Sender publishes replies to the gateway, falling back to the durable outbox
// when the broker is unreachable.
type Sender struct {
	client *Client
	db     *store.Store
	nodeID string
	topic  string
}

// NewSender creates a reply sender publishing on the given topic.
func NewSender(client *Client, db *store.Store, nodeID, topic string) *Sender {
	return &Sender{client: client, db: db, nodeID: nodeID, topic: topic}
}

func (s *Sender) src() wire.Address {
	return wire.Address{Role: wire.RoleHub, Node: s.nodeID}
}

// SendReply publishes a conversation reply correlated to the inbound event.
func (s *Sender) SendReply(rep bot.Reply, dst wire.Address, corID string) {
	payload := &wire.BotReply{ChatID: rep.ChatID, Text: rep.Text, Options: rep.Options}
	env, err := wire.NewReply(wire.TypeBotReply, s.src(), dst, corID, payload)
	if err != nil {
		log.Printf("sender: build reply: %v", err)
		return
	}
	s.publish(env)
}

// Notify pushes an unsolicited message to a conversation, e.g. a dispatch note.
func (s *Sender) Notify(chatID int64, text string) {
	payload := &wire.BotReply{ChatID: chatID, Text: text}
	dst := wire.Address{Role: wire.RoleGateway, Node: wire.NodeBroadcast}
	env, err := wire.NewEnvelope(wire.TypeBotReply, s.src(), dst, payload)
	if err != nil {
		log.Printf("sender: build notify: %v", err)
		return
	}
	s.publish(env)
}

func (s *Sender) publish(env *wire.Envelope) {
	if err := s.client.PublishEnvelope(s.topic, env); err != nil {
		log.Printf("sender: publish %s: %v, queueing to outbox", env.Type, err)
		data, encErr := env.Encode()
		if encErr != nil {
			log.Printf("sender: encode for outbox: %v", encErr)
			return
		}
		if _, qErr := s.db.EnqueueOutbox(s.topic, data, env.Type); qErr != nil {
			log.Printf("sender: enqueue outbox: %v", qErr)
		}
	}
}

// Gateway handles inbound wire traffic from the messaging transport. Bot
// events are dispatched to the conversation router on their own goroutine so
// a slow recognition call never stalls the subscriber callback.
type Gateway struct {
	wire.NoOpHandler

	router   ConversationRouter
	sender   *Sender
	nodeID   string
	ingestor *wire.Ingestor
}

// NewGateway creates the inbound message handler.
func NewGateway(router ConversationRouter, sender *Sender, nodeID string) *Gateway {
	g := &Gateway{router: router, sender: sender, nodeID: nodeID}
	g.ingestor = wire.NewIngestor(g, g.accepts)
	return g
}

// Start subscribes to the inbound events topic.
func (g *Gateway) Start(client *Client, topic string) error {
	return client.Subscribe(topic, g.ingestor.HandleRaw)
}

func (g *Gateway) accepts(hdr *wire.RawHeader) bool {
	if hdr.Dst.Role != wire.RoleHub {
		return false
	}
	return hdr.Dst.Node == g.nodeID || hdr.Dst.Node == wire.NodeBroadcast || hdr.Dst.Node == ""
}

func (g *Gateway) HandleBotEvent(env *wire.Envelope, p *wire.BotEvent) {
	ev, ok := toBotEvent(p)
	if !ok {
		log.Printf("gateway: unknown event kind %q for chat %d", p.Kind, p.ChatID)
		return
	}
	src, id := env.Src, env.ID
	go func() {
		rep := g.router.HandleEvent(ev)
		if rep.Text == "" {
			return
		}
		g.sender.SendReply(rep, src, id)
	}()
}

func (g *Gateway) HandleGatewayHello(_ *wire.Envelope, p *wire.GatewayHello) {
	log.Printf("gateway: node %s online (host=%s version=%s)", p.NodeID, p.Hostname, p.Version)
}

func (g *Gateway) HandleGatewayHeartbeat(_ *wire.Envelope, p *wire.GatewayHeartbeat) {
	log.Printf("gateway: heartbeat from %s (uptime=%ds)", p.NodeID, p.Uptime)
}

func toBotEvent(p *wire.BotEvent) (bot.Event, bool) {
	ev := bot.Event{
		ChatID:   p.ChatID,
		Command:  p.Command,
		Arg:      p.Arg,
		Text:     p.Text,
		PhotoRef: p.PhotoRef,
		Lat:      p.Lat,
		Lon:      p.Lon,
	}
	switch p.Kind {
	case "command":
		ev.Kind = bot.KindCommand
	case "text":
		ev.Kind = bot.KindText
	case "photo":
		ev.Kind = bot.KindPhoto
	case "location":
		ev.Kind = bot.KindLocation
	default:
		return bot.Event{}, false
	}
	return ev, true
}
