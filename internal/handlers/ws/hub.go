package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/noteduco342/OMChat-backend/internal/metrics"
	"github.com/noteduco342/OMChat-backend/internal/models"
	"go.uber.org/zap"
)

const (
	defaultSendBuffer   = 64
	defaultPingInterval = 30 * time.Second
	writeWait           = 10 * time.Second
	gzipThreshold       = 512
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// OnlineTracker records connection counts per user.
type OnlineTracker interface {
	Connected(userID uint) error
	Disconnected(userID uint) error
	Touch(userID uint) error
}

// Client is one websocket connection. A user may hold several.
type Client struct {
	ID           string
	UserID       uint
	Member       Member
	SupportsGzip bool

	conn      Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// guarded by Hub.mu
	channels map[string]struct{}
}

// Send queues a frame for this client only. It reports false when the frame
// was dropped.
func (c *Client) Send(frameType string, payload interface{}) bool {
	data, err := Frame(frameType, payload)
	if err != nil {
		return false
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		metrics.BroadcastDropped.Inc()
		return false
	}
}

func (c *Client) stop() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Hub keeps the registry of connections and channel subscriptions and fans
// events out to subscribers.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	channels map[string]map[string]*Client

	// evictions counts evicted channels; Subscribe re-authorizes when it
	// moves during the authorization check.
	evictions uint64

	authorizer   ChannelAuthorizer
	online       OnlineTracker
	logger       *zap.Logger
	sendBuffer   int
	pingInterval time.Duration
}

func NewHub(authorizer ChannelAuthorizer, online OnlineTracker, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:      make(map[string]*Client),
		channels:     make(map[string]map[string]*Client),
		authorizer:   authorizer,
		online:       online,
		logger:       logger,
		sendBuffer:   defaultSendBuffer,
		pingInterval: defaultPingInterval,
	}
}

// Register adds a connection, starts its writer and queues the connected frame.
func (h *Hub) Register(member Member, conn Conn, supportsGzip bool) *Client {
	client := &Client{
		ID:           uuid.NewString(),
		UserID:       member.ID,
		Member:       member,
		SupportsGzip: supportsGzip,
		conn:         conn,
		send:         make(chan []byte, h.sendBuffer),
		done:         make(chan struct{}),
		channels:     make(map[string]struct{}),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	count := len(h.clients)
	h.mu.Unlock()

	metrics.ActiveConnections.Inc()
	if h.online != nil {
		if err := h.online.Connected(member.ID); err != nil {
			h.logger.Warn("online tracker connect failed", zap.Uint("user_id", member.ID), zap.Error(err))
		}
	}

	go h.writePump(client)
	client.Send(FrameConnected, ConnectedPayload{SocketID: client.ID})

	h.logger.Debug("ws client registered",
		zap.String("socket_id", client.ID),
		zap.Uint("user_id", member.ID),
		zap.Int("total", count),
		zap.Bool("gzip", supportsGzip),
	)
	return client
}

// Unregister drops the connection from every channel and stops its writer.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	var departed []string
	for channel := range client.channels {
		if h.removeLocked(client, channel) {
			departed = append(departed, channel)
		}
	}
	count := len(h.clients)
	h.mu.Unlock()

	client.stop()
	metrics.ActiveConnections.Dec()
	if h.online != nil {
		if err := h.online.Disconnected(client.UserID); err != nil {
			h.logger.Warn("online tracker disconnect failed", zap.Uint("user_id", client.UserID), zap.Error(err))
		}
	}
	for _, channel := range departed {
		h.Publish(channel, EventMemberRemoved, client.Member, "", client.UserID)
	}

	h.logger.Debug("ws client unregistered",
		zap.String("socket_id", client.ID),
		zap.Uint("user_id", client.UserID),
		zap.Int("total", count),
	)
}

// Touch refreshes the user's online marker.
func (h *Hub) Touch(client *Client) {
	if h.online == nil {
		return
	}
	if err := h.online.Touch(client.UserID); err != nil {
		h.logger.Warn("online tracker touch failed", zap.Uint("user_id", client.UserID), zap.Error(err))
	}
}

func isPresence(channel string) bool {
	kind, _, ok := models.ParseChannel(channel)
	return ok && kind == models.PresenceChannelKind
}

// userSubscribedLocked reports whether any connection of userID other than
// except is subscribed to channel.
func (h *Hub) userSubscribedLocked(channel string, userID uint, except string) bool {
	for id, c := range h.channels[channel] {
		if id != except && c.UserID == userID {
			return true
		}
	}
	return false
}

// removeLocked drops client from channel. For presence channels it reports
// whether this was the user's last connection there.
func (h *Hub) removeLocked(client *Client, channel string) bool {
	subs, ok := h.channels[channel]
	if !ok {
		return false
	}
	if _, ok := subs[client.ID]; !ok {
		return false
	}
	delete(subs, client.ID)
	delete(client.channels, channel)
	if len(subs) == 0 {
		delete(h.channels, channel)
	}
	return isPresence(channel) && !h.userSubscribedLocked(channel, client.UserID, client.ID)
}

// membersLocked lists the distinct users present on a channel.
func (h *Hub) membersLocked(channel string) []Member {
	seen := make(map[uint]struct{})
	members := make([]Member, 0, len(h.channels[channel]))
	for _, c := range h.channels[channel] {
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		members = append(members, c.Member)
	}
	return members
}

// maxAuthorizeAttempts bounds re-authorization when evictions keep racing a subscribe.
const maxAuthorizeAttempts = 3

// Subscribe authorizes and adds the client to channel, answering with
// subscribed or subscription_error.
func (h *Hub) Subscribe(client *Client, channel string) {
	if err := h.authorizeAndLock(client, channel); err != nil {
		client.Send(FrameSubscriptionError, SubscriptionErrorPayload{Channel: channel, Error: err.Error()})
		return
	}

	presence := isPresence(channel)
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}
	joined := presence && !h.userSubscribedLocked(channel, client.UserID, client.ID)
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[string]*Client)
		h.channels[channel] = subs
	}
	subs[client.ID] = client
	client.channels[channel] = struct{}{}
	var members []Member
	if presence {
		members = h.membersLocked(channel)
	}
	h.mu.Unlock()

	client.Send(FrameSubscribed, SubscribedPayload{Channel: channel, Members: members})
	if joined {
		h.Publish(channel, EventMemberAdded, client.Member, "", client.UserID)
	}
}

// authorizeAndLock returns with h.mu held when the client may join channel.
// An eviction that lands while the authorizer runs forces another check, so a
// user who left cannot slip a subscription in after being evicted.
func (h *Hub) authorizeAndLock(client *Client, channel string) error {
	if h.authorizer == nil {
		return ErrChannelDenied
	}
	for attempt := 0; attempt < maxAuthorizeAttempts; attempt++ {
		h.mu.RLock()
		seen := h.evictions
		h.mu.RUnlock()

		if err := h.authorize(client, channel); err != nil {
			return err
		}

		h.mu.Lock()
		if h.evictions == seen {
			return nil
		}
		h.mu.Unlock()
	}
	return ErrChannelDenied
}

func (h *Hub) authorize(client *Client, channel string) error {
	err := h.authorizer.Authorize(client.UserID, channel)
	if err == nil || errors.Is(err, ErrChannelDenied) || errors.Is(err, ErrUnknownChannel) {
		return err
	}
	h.logger.Error("channel authorization failed",
		zap.String("channel", channel),
		zap.Uint("user_id", client.UserID),
		zap.Error(err),
	)
	return ErrChannelDenied
}

func (h *Hub) Unsubscribe(client *Client, channel string) {
	h.mu.Lock()
	departed := h.removeLocked(client, channel)
	h.mu.Unlock()

	if departed {
		h.Publish(channel, EventMemberRemoved, client.Member, "", client.UserID)
	}
}

// EvictFromConversation drops every connection of userID from the
// conversation's channels, used once the user has left.
func (h *Hub) EvictFromConversation(conversationID, userID uint) {
	for _, channel := range []string{models.ConversationChannel(conversationID), models.PresenceChannel(conversationID)} {
		var member Member
		departed := false

		h.mu.Lock()
		h.evictions++
		for _, c := range h.channels[channel] {
			if c.UserID != userID {
				continue
			}
			member = c.Member
			if h.removeLocked(c, channel) {
				departed = true
			}
		}
		h.mu.Unlock()

		if departed {
			h.Publish(channel, EventMemberRemoved, member, "", userID)
		}
	}
}

// Publish queues an event for every subscriber of channel without blocking.
// A subscriber whose queue is full misses the event.
func (h *Hub) Publish(channel, event string, data interface{}, exceptSocketID string, exceptUserID uint) {
	frame, err := Frame(FrameEvent, EventPayload{Channel: channel, Event: event, Data: data})
	if err != nil {
		h.logger.Error("ws frame encode failed", zap.String("channel", channel), zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.channels[channel]))
	for id, c := range h.channels[channel] {
		if exceptSocketID != "" {
			if id == exceptSocketID {
				continue
			}
		} else if exceptUserID != 0 && c.UserID == exceptUserID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.enqueue(frame) {
			metrics.BroadcastPublished.Inc()
		}
	}
}

// Subscribers returns the socket ids subscribed to channel.
func (h *Hub) Subscribers(channel string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.channels[channel]))
	for id := range h.channels[channel] {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writePump is the only writer of a connection. It also sends pings.
func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			return
		case data := <-client.send:
			if err := h.write(client, data); err != nil {
				h.logger.Debug("ws write failed", zap.String("socket_id", client.ID), zap.Error(err))
				_ = client.conn.Close()
				client.stop()
				return
			}
		case <-ticker.C:
			if err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.logger.Debug("ws ping failed", zap.String("socket_id", client.ID), zap.Error(err))
				_ = client.conn.Close()
				client.stop()
				return
			}
		}
	}
}

func (h *Hub) write(client *Client, data []byte) error {
	frameType := websocket.TextMessage
	if client.SupportsGzip && len(data) > gzipThreshold {
		if compressed, err := CompressMessage(data); err == nil && len(compressed) < len(data) {
			data = compressed
			frameType = websocket.BinaryMessage
		}
	}
	_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return client.conn.WriteMessage(frameType, data)
}
