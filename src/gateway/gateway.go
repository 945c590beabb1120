package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/gorilla/websocket"

	"github.com/hendrywilliam/halcyon/src/rest"
	"github.com/hendrywilliam/halcyon/src/state"
	"github.com/hendrywilliam/halcyon/src/structs"
)

// https://discord.com/developers/docs/events/gateway#gateway-intents
type GatewayIntent = uint64

const (
	GuildsIntent               GatewayIntent = 1 << 0
	GuildMembersIntent         GatewayIntent = 1 << 1
	GuildModerationIntent      GatewayIntent = 1 << 2
	GuildExpressionIntent      GatewayIntent = 1 << 3
	GuildIntegrationsIntent    GatewayIntent = 1 << 4
	GuildInvitesIntent         GatewayIntent = 1 << 6
	GuildVoiceStatesIntent     GatewayIntent = 1 << 7
	GuildPresencesIntent       GatewayIntent = 1 << 8
	GuildMessagesIntent        GatewayIntent = 1 << 9
	GuildMessageReactionIntent GatewayIntent = 1 << 10
	GuildMessageTypingIntent   GatewayIntent = 1 << 11
	DirectMessageIntent        GatewayIntent = 1 << 12
	MessageContentIntent       GatewayIntent = 1 << 15
)

type GatewayStatus = string

const (
	StatusConnecting   GatewayStatus = "CONNECTING"
	StatusHandshaking  GatewayStatus = "HANDSHAKING"
	StatusSyncing      GatewayStatus = "SYNCING"
	StatusReady        GatewayStatus = "READY"
	StatusReconnecting GatewayStatus = "RECONNECTING"
	StatusClosed       GatewayStatus = "CLOSED"
)

type GatewayOpcode = int

const (
	OpcodeDispatch       GatewayOpcode = 0
	OpcodeHeartbeat      GatewayOpcode = 1
	OpcodeIdentify       GatewayOpcode = 2
	OpcodePresenceUpdate GatewayOpcode = 3
	OpcodeResume         GatewayOpcode = 6
	OpcodeReconnect      GatewayOpcode = 7
	OpcodeInvalidSession GatewayOpcode = 9
	OpcodeHello          GatewayOpcode = 10
	OpcodeHeartbeatAck   GatewayOpcode = 11
)

type GatewayCloseEventCode = int

const (
	CloseUnknownError         GatewayCloseEventCode = 4000
	CloseUnknownOpcode        GatewayCloseEventCode = 4001
	CloseDecodeError          GatewayCloseEventCode = 4002
	CloseNotAuthenticated     GatewayCloseEventCode = 4003
	CloseAuthenticationFailed GatewayCloseEventCode = 4004
	CloseAlreadyAuthenticated GatewayCloseEventCode = 4005
	CloseInvalidSeq           GatewayCloseEventCode = 4007
	CloseRateLimited          GatewayCloseEventCode = 4008
	CloseSessionTimedOut      GatewayCloseEventCode = 4009
	CloseDisallowedIntents    GatewayCloseEventCode = 4014
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrDisallowedIntents    = errors.New("disallowed intent. you may have tried to specify an intent that you have not enabled")
	ErrGatewayClosed        = errors.New("gateway is closed")
	ErrNoHello              = errors.New("no hello frame received within the handshake window")
)

// ObserverFunc receives the fully built entity for a named event. At most
// one observer per name, invoked synchronously in frame-arrival order.
type ObserverFunc func(data any)

type GatewayConfig struct {
	BotToken       string
	Intents        GatewayIntent
	GatewayHost    string
	Version        int
	Os             string
	ClientName     string
	LargeThreshold uint8
	HelloTimeout   time.Duration
	Logger         *slog.Logger
	REST           *rest.REST
}

func (cfg *GatewayConfig) fillDefaults() {
	if cfg.GatewayHost == "" {
		cfg.GatewayHost = "gateway.discord.gg"
	}
	if cfg.Version == 0 {
		cfg.Version = 10
	}
	if cfg.Os == "" {
		cfg.Os = "linux"
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "halcyon"
	}
	if cfg.LargeThreshold == 0 {
		cfg.LargeThreshold = 250
	}
	if cfg.HelloTimeout == 0 {
		cfg.HelloTimeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.REST == nil {
		cfg.REST = rest.NewREST(cfg.BotToken)
	}
}

// Gateway owns the connection lifecycle and is the sole writer to the
// entity store. Frames are processed one at a time on the reader
// goroutine, later events may depend on entities built by earlier ones.
type Gateway struct {
	rwlock   sync.RWMutex
	wsurl    string
	wsConn   *websocket.Conn
	wsDialer *websocket.Dialer
	status   GatewayStatus
	ctx      context.Context
	cancel   context.CancelFunc

	cfg       GatewayConfig
	session   *Session
	heartbeat *Heartbeat
	state     *state.State
	rest      *rest.REST
	log       *slog.Logger

	observersMu sync.RWMutex
	observers   map[string]ObserverFunc
	handlers    map[structs.EventName]func(*structs.RawEvent) error

	// Sync bookkeeping: READY hints how many guild-creation dispatches
	// the snapshot burst carries.
	expectedGuilds int
	syncedGuilds   int
	readyEmitted   bool
	selfID         snowflake.ID
}

func NewGateway(cfg GatewayConfig) *Gateway {
	cfg.fillDefaults()
	wsBaseURL := url.URL{
		Scheme:   "wss",
		Host:     cfg.GatewayHost,
		RawQuery: fmt.Sprintf("v=%v&encoding=json", cfg.Version),
	}
	g := &Gateway{
		wsDialer:  websocket.DefaultDialer,
		wsurl:     wsBaseURL.String(),
		status:    StatusClosed,
		cfg:       cfg,
		session:   NewSession(),
		state:     state.NewState(),
		rest:      cfg.REST,
		log:       cfg.Logger,
		observers: make(map[string]ObserverFunc),
	}
	g.heartbeat = NewHeartbeat(g.log, g.session.Sequence, g.sendHeartbeat, g.onStall)
	g.handlers = g.dispatchTable()
	return g
}

// State exposes the concurrent read path into the entity cache.
func (g *Gateway) State() *state.State {
	return g.state
}

func (g *Gateway) Status() GatewayStatus {
	g.rwlock.RLock()
	defer g.rwlock.RUnlock()
	return g.status
}

func (g *Gateway) setStatus(status GatewayStatus) {
	g.rwlock.Lock()
	g.status = status
	g.rwlock.Unlock()
}

// On registers the observer for a named event, replacing any previous
// one. Names follow the emitted set: "ready", "message", "guildCreate",
// "presenceUpdate" and friends.
func (g *Gateway) On(name string, fn ObserverFunc) {
	g.observersMu.Lock()
	defer g.observersMu.Unlock()
	g.observers[name] = fn
}

func (g *Gateway) notify(name string, data any) {
	g.observersMu.RLock()
	fn := g.observers[name]
	g.observersMu.RUnlock()
	if fn != nil {
		fn(data)
	}
}

// Open dials the gateway and performs the handshake. The first connection
// always identifies; reconnects resume when a session survives.
func (g *Gateway) Open(ctx context.Context) error {
	g.ctx, g.cancel = context.WithCancel(ctx)
	return g.open()
}

func (g *Gateway) open() error {
	g.setStatus(StatusConnecting)
	dialURL := g.wsurl
	if g.session.CanResume() && g.session.ResumeGatewayURL() != "" {
		rurl, err := url.Parse(g.session.ResumeGatewayURL())
		if err == nil {
			resumeURL := url.URL{
				Scheme:   rurl.Scheme,
				Host:     rurl.Host,
				RawQuery: fmt.Sprintf("v=%v&encoding=json", g.cfg.Version),
			}
			dialURL = resumeURL.String()
		}
	}
	g.log.Info("connecting to gateway...", "url", dialURL)
	conn, _, err := g.wsDialer.DialContext(g.ctx, dialURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to gateway: %w", err)
	}
	g.rwlock.Lock()
	g.wsConn = conn
	g.rwlock.Unlock()

	// The server must greet with hello within the handshake window.
	conn.SetReadDeadline(time.Now().Add(g.cfg.HelloTimeout))
	_, rawMessage, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return ErrNoHello
	}
	conn.SetReadDeadline(time.Time{})

	event := &structs.RawEvent{}
	if err := json.Unmarshal(rawMessage, event); err != nil {
		conn.Close()
		return err
	}
	if event.Op != OpcodeHello {
		conn.Close()
		return ErrNoHello
	}
	hello := new(structs.HelloEvent)
	if err := json.Unmarshal(event.D, hello); err != nil {
		conn.Close()
		return err
	}
	g.heartbeat.Hello(g.ctx, time.Duration(hello.HeartbeatInterval)*time.Millisecond)

	g.setStatus(StatusHandshaking)
	var handshake *structs.Event
	if g.session.CanResume() {
		handshake = g.session.ResumePayload(g.cfg.BotToken)
		g.log.Info("resume event sent", "sequence", g.session.Sequence())
	} else {
		handshake = g.session.IdentifyPayload(g.cfg)
		g.log.Info("identify event sent")
	}
	data, err := json.Marshal(handshake)
	if err != nil {
		return err
	}
	if err := g.sendEvent(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send handshake event: %w", err)
	}
	go g.listen(conn)
	return nil
}

func (g *Gateway) listen(conn *websocket.Conn) {
	for {
		select {
		case <-g.ctx.Done():
			g.log.Info("gateway stop listening")
			return
		default:
			g.rwlock.RLock()
			same := g.wsConn == conn
			g.rwlock.RUnlock()
			if !same {
				// A new connection replaced this one. Exit the
				// stale reader goroutine.
				return
			}
			_, message, err := conn.ReadMessage()
			if err != nil {
				g.handleReadError(conn, err)
				return
			}
			g.acceptEvent(message)
		}
	}
}

func (g *Gateway) handleReadError(conn *websocket.Conn, err error) {
	if g.Status() == StatusClosed || g.ctx.Err() != nil {
		return
	}
	g.rwlock.RLock()
	stale := g.wsConn != conn
	g.rwlock.RUnlock()
	if stale {
		// The read failed because reconnect already replaced this
		// connection. The replacement owns recovery.
		return
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case CloseAuthenticationFailed:
			g.fatal(ErrAuthenticationFailed)
			return
		case CloseDisallowedIntents:
			g.fatal(ErrDisallowedIntents)
			return
		case CloseInvalidSeq, CloseSessionTimedOut:
			// The session is gone, resume would be rejected.
			g.session.Invalidate()
			g.state.Reset()
		}
	}
	g.log.Error("gateway connection lost", "error", err.Error())
	g.reconnect()
}

// fatal closes the gateway permanently. No automatic reconnect follows.
func (g *Gateway) fatal(err error) {
	g.log.Error("fatal gateway error", "error", err.Error())
	g.setStatus(StatusClosed)
	g.heartbeat.Stop()
	g.notify(ObserverError, err)
	g.cancel()
}

// acceptEvent decodes a frame and routes it: control opcodes drive the
// heartbeat and session machinery, dispatch frames go through the event
// table. Errors inside a single dispatch never kill the reader loop.
func (g *Gateway) acceptEvent(rawMessage []byte) (*structs.RawEvent, error) {
	var e structs.RawEvent
	decoder := json.NewDecoder(bytes.NewBuffer(rawMessage))
	if err := decoder.Decode(&e); err != nil {
		g.log.Error("failed to decode frame", "error", err.Error())
		return &e, err
	}
	switch e.Op {
	case OpcodeHeartbeat:
		g.heartbeat.RequestBeat()
	case OpcodeHeartbeatAck:
		g.heartbeat.Ack()
	case OpcodeHello:
		hello := new(structs.HelloEvent)
		if err := json.Unmarshal(e.D, hello); err == nil {
			g.heartbeat.Hello(g.ctx, time.Duration(hello.HeartbeatInterval)*time.Millisecond)
		}
	case OpcodeReconnect:
		g.log.Info("server requested reconnect")
		g.reconnect()
	case OpcodeInvalidSession:
		g.handleInvalidSession(e.D)
		g.reconnect()
	case OpcodeDispatch:
		g.session.ObserveSequence(e.S)
		g.dispatch(&e)
	}
	return &e, nil
}

// handleInvalidSession applies the op 9 signal. A non-resumable session
// clears the tracked session and discards the store wholesale; stale
// entities are never merged into the next sync.
func (g *Gateway) handleInvalidSession(d json.RawMessage) {
	var resumable bool
	_ = json.Unmarshal(d, &resumable)
	g.log.Warn("session invalidated", "resumable", resumable)
	if !resumable {
		g.session.Invalidate()
		g.state.Reset()
	}
}

func (g *Gateway) dispatch(e *structs.RawEvent) {
	handler, ok := g.handlers[e.T]
	if !ok {
		// Unknown event names are expected, the service adds new
		// types over time.
		g.log.Debug("ignoring unknown event", "event_name", e.T)
		return
	}
	if err := handler(e); err != nil {
		g.log.Error("failed to handle event", "event_name", e.T, "error", err.Error())
	}
}

// reconnect tears the connection down and retries with backoff. Resume is
// attempted whenever the session survived; a rejected resume degrades to
// a fresh identify via the invalid-session path.
func (g *Gateway) reconnect() {
	if g.Status() == StatusReconnecting || g.Status() == StatusClosed {
		return
	}
	g.setStatus(StatusReconnecting)
	g.heartbeat.Stop()
	g.rwlock.Lock()
	if g.wsConn != nil {
		g.wsConn.Close()
	}
	g.rwlock.Unlock()
	go func() {
		err := g.retry(g.open, 5)
		if err != nil {
			g.fatal(err)
		}
	}()
}

func (g *Gateway) retry(fn func() error, max int) error {
	for attempts := 1; attempts <= max; attempts++ {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrDisallowedIntents) {
			return err
		}
		g.log.Error("connection attempt failed, retrying...", "attempt", attempts, "error", err.Error())
		delay := time.Duration(math.Pow(2, float64(attempts-1))*1000) * time.Millisecond
		select {
		case <-time.After(delay):
			continue
		case <-g.ctx.Done():
			return g.ctx.Err()
		}
	}
	return errors.New("failed to reconnect after several attempts")
}

func (g *Gateway) onStall() {
	g.log.Warn("heartbeat stalled, reconnecting with resume")
	g.reconnect()
}

// heartbeatPayload builds the op 1 frame. The d key is always present,
// null before the first dispatch.
func heartbeatPayload(sequence uint64) ([]byte, error) {
	event := structs.Event{Op: OpcodeHeartbeat, D: json.RawMessage("null")}
	if sequence != 0 {
		event.D = sequence
	}
	return json.Marshal(&event)
}

func (g *Gateway) sendHeartbeat(sequence uint64) {
	data, err := heartbeatPayload(sequence)
	if err != nil {
		g.log.Error("failed to marshal heartbeat event")
		return
	}
	if err := g.sendEvent(websocket.TextMessage, data); err != nil {
		g.log.Error("failed to send heartbeat event", "error", err.Error())
	}
}

func (g *Gateway) sendEvent(messageType int, data []byte) error {
	g.rwlock.Lock()
	defer g.rwlock.Unlock()
	if g.wsConn == nil {
		return ErrGatewayClosed
	}
	return g.wsConn.WriteMessage(messageType, data)
}

// ResolveUser reads through the cache, fetching from the REST collaborator
// on a miss. REST failures never touch gateway state.
func (g *Gateway) ResolveUser(ctx context.Context, id snowflake.ID) (*structs.User, error) {
	if user := g.state.User(id); user != nil {
		return user, nil
	}
	raw, err := g.rest.Get(ctx, fmt.Sprintf("/users/%s", id), nil)
	if err != nil {
		return nil, err
	}
	user, err := state.BuildUser(raw)
	if err != nil {
		return nil, err
	}
	return g.state.PutUser(user), nil
}

// Close shuts the gateway down for good. Terminal, no reconnect follows.
func (g *Gateway) Close() {
	g.setStatus(StatusClosed)
	g.heartbeat.Stop()
	g.rwlock.Lock()
	if g.wsConn != nil {
		g.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		g.wsConn.Close()
	}
	g.rwlock.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
	g.log.Info("gateway connection stopped")
}
