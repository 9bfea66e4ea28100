// Copyright © 2024 Chatwire. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package msggateway

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
	"github.com/robfig/cron/v3"

	"github.com/chatwire/chatwire-server/pkg/common/authverify"
	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/prommetrics"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/cache"
	"github.com/chatwire/chatwire-server/pkg/common/storage/controller"
	"github.com/chatwire/chatwire-server/pkg/localcache"
	"github.com/chatwire/chatwire-server/pkg/pubsub"
)

// LongConnServer is the connection manager: it owns the local socket map,
// keeps the bus subscribed to the conversations those sockets belong to and
// translates between bus events and per-socket frames.
type LongConnServer interface {
	// Run serves /ws/{userId} until done receives an error or is closed.
	Run(done chan error) error
	GetUserAllCons(userID string) ([]*Client, bool)
	UnRegister(c *Client)
	// HandleClientFrame routes one inbound socket frame.
	HandleClientFrame(ctx context.Context, client *Client, event *pubsub.Event)
	// BroadcastToConversation delivers to the conversation's local sockets
	// only, skipping skipUserID. Used when the event's origin is local and
	// cross-instance publish already happened or failed.
	BroadcastToConversation(ctx context.Context, conversationID string, event *pubsub.Event, skipUserID string)
	Compressor
}

type WsServer struct {
	conf       *config.Config
	instanceID string

	port             int
	wsMaxConnNum     int64
	handshakeTimeout time.Duration
	writeBufferSize  int

	registerChan   chan *Client
	unregisterChan chan *Client

	clients      UserMap
	subscription *Subscription
	grace        *graceTimers
	clientPool   sync.Pool

	onlineUserNum     atomic.Int64
	onlineUserConnNum atomic.Int64

	validate     *validator.Validate
	verifier     *authverify.TokenVerifier
	bus          pubsub.Bus
	registry     cache.ConnRegistry
	chatDB       controller.ChatDatabase
	participants *localcache.Cache[[]string]
	cron         *cron.Cron

	Compressor
}

func NewWsServer(
	conf *config.Config,
	bus pubsub.Bus,
	registry cache.ConnRegistry,
	chatDB controller.ChatDatabase,
	verifier *authverify.TokenVerifier,
) *WsServer {
	return &WsServer{
		conf:             conf,
		instanceID:       conf.InstanceID,
		port:             conf.Gateway.Port,
		wsMaxConnNum:     conf.Gateway.MaxConnNum,
		handshakeTimeout: conf.Gateway.HandshakeTimeout,
		writeBufferSize:  conf.Gateway.WriteBufferSize,
		registerChan:     make(chan *Client, 1000),
		unregisterChan:   make(chan *Client, 1000),
		clients:          newUserMap(),
		subscription:     newSubscription(),
		grace:            newGraceTimers(conf.Gateway.OfflineGrace),
		clientPool: sync.Pool{
			New: func() any { return new(Client) },
		},
		validate:     validator.New(),
		verifier:     verifier,
		bus:          bus,
		registry:     registry,
		chatDB:       chatDB,
		participants: localcache.New[[]string](1024, time.Minute),
		cron:         cron.New(),
		Compressor:   NewGzipCompressor(),
	}
}

func (ws *WsServer) UnRegister(c *Client) {
	ws.unregisterChan <- c
}

func (ws *WsServer) GetUserAllCons(userID string) ([]*Client, bool) {
	return ws.clients.GetAll(userID)
}

func (ws *WsServer) Run(done chan error) error {
	shutdownDone := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-shutdownDone:
				return
			case client := <-ws.registerChan:
				ws.registerClient(client)
			case client := <-ws.unregisterChan:
				ws.unregisterClient(client)
			}
		}
	}()

	listenCtx, cancelListen := context.WithCancel(context.Background())
	go ws.bus.Listen(listenCtx, ws.onBusEvent)

	// Periodic reconcile catches subscription drift left by crashed
	// instances or missed membership changes, and keeps the presence
	// entries of local users from expiring.
	_, err := ws.cron.AddFunc("@every "+ws.conf.Gateway.SubscriptionSyncInterval.String(), func() {
		ctx := context.Background()
		ws.refreshServedConversations(ctx)
		ws.subscription.Reconcile(ctx, ws.bus, ws.registry, ws.instanceID)
		if err := ws.registry.RefreshPresence(ctx, ws.clients.AllUserIDs()); err != nil {
			log.ZWarn(ctx, "presence refresh failed", err)
		}
	})
	if err != nil {
		cancelListen()
		return errs.WrapMsg(err, "bad subscription sync interval")
	}
	ws.cron.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/", ws.wsHandler)
	server := http.Server{
		Addr:    ":" + strconv.Itoa(ws.port),
		Handler: mux,
	}

	netDone := make(chan struct{}, 1)
	var netErr error
	go func() {
		defer close(netDone)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			netErr = errs.WrapMsg(err, "ws listen failed", "addr", server.Addr)
		}
	}()

	select {
	case err := <-done:
		cancelListen()
		ws.cron.Stop()
		ws.grace.StopAll()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if sErr := server.Shutdown(ctx); sErr != nil {
			return errs.WrapMsg(sErr, "ws shutdown failed")
		}
		close(shutdownDone)
		return err
	case <-netDone:
		cancelListen()
		ws.cron.Stop()
		close(shutdownDone)
		return netErr
	}
}

// wsHandler authenticates and accepts one websocket. Authentication uses
// application close codes, so the upgrade happens before the token check.
func (ws *WsServer) wsHandler(w http.ResponseWriter, r *http.Request) {
	connContext := newContext(w, r)
	if ws.onlineUserConnNum.Load() >= ws.wsMaxConnNum {
		connContext.ErrReturn("too many connections", http.StatusServiceUnavailable)
		return
	}
	wsLongConn := newGWebSocket(ws.handshakeTimeout, ws.writeBufferSize)
	if err := wsLongConn.Upgrade(w, r); err != nil {
		// Upgrade already wrote the HTTP error.
		log.ZWarn(connContext, "websocket upgrade failed", err, "remoteAddr", connContext.RemoteAddr)
		return
	}
	claims, err := ws.verifier.VerifyFor(connContext.GetToken(), connContext.UserID)
	if err != nil {
		_ = wsLongConn.WriteClose(closeCodeOf(err), errs.Unwrap(err).Error())
		return
	}
	connContext.UserID = claims.UserID

	client := ws.clientPool.Get().(*Client)
	client.ResetClient(connContext, wsLongConn, ws)
	ws.registerChan <- client
	go client.readMessage()
}

func closeCodeOf(err error) int {
	switch {
	case servererrs.ErrUserIDMismatch.Is(err):
		return CloseCodeUserIDMismatch
	case servererrs.ErrUserDisabled.Is(err):
		return CloseCodeUserDisabled
	default:
		return CloseCodeInvalidToken
	}
}

func (ws *WsServer) registerClient(client *Client) {
	ctx := client.ctx
	firstLocal := ws.clients.Set(client.UserID, client)
	ws.onlineUserConnNum.Add(1)
	prommetrics.OnlineConnGauge.Inc()
	if firstLocal {
		ws.onlineUserNum.Add(1)
		prommetrics.OnlineUserGauge.Inc()
	}

	// A reconnect inside the grace window keeps the user online.
	ws.grace.Cancel(client.UserID)

	if err := ws.registry.Register(ctx, client.UserID, client.ConnID, cache.ConnMeta{
		InstanceID: ws.instanceID,
		CreatedAt:  time.Now(),
		IPAddress:  ctx.ClientIP(),
	}); err != nil {
		log.ZWarn(ctx, "connection registry register failed", err, "userID", client.UserID, "connID", client.ConnID)
	}

	count, err := ws.registry.ConnectionCount(ctx, client.UserID)
	if err != nil {
		log.ZWarn(ctx, "connection count failed", err, "userID", client.UserID)
	}
	if count <= 1 {
		// Globally first connection: flip the durable flag and tell
		// everyone who shares a conversation.
		if err := ws.chatDB.SetUserOnline(ctx, client.UserID, true); err != nil {
			log.ZWarn(ctx, "set user online failed", err, "userID", client.UserID)
		}
		ws.publishStatusChange(ctx, client.UserID, constant.StatusAvailable)
	}

	if firstLocal {
		conversationIDs, err := ws.chatDB.ConversationIDsOfUser(ctx, client.UserID)
		if err != nil {
			log.ZWarn(ctx, "load user conversations failed", err, "userID", client.UserID)
		} else {
			ws.subscription.SetUserConversations(client.UserID, conversationIDs)
			ws.subscription.Reconcile(ctx, ws.bus, ws.registry, ws.instanceID)
		}
	}
	log.ZInfo(ctx, "user online", "userID", client.UserID, "connID", client.ConnID,
		"onlineUserNum", ws.onlineUserNum.Load(), "onlineConnNum", ws.onlineUserConnNum.Load())
}

func (ws *WsServer) unregisterClient(client *Client) {
	ctx := client.ctx
	defer ws.clientPool.Put(client)

	lastLocal := ws.clients.DeleteClients(client.UserID, []*Client{client})
	ws.onlineUserConnNum.Add(-1)
	prommetrics.OnlineConnGauge.Dec()

	if err := ws.registry.Unregister(ctx, client.UserID, client.ConnID); err != nil {
		log.ZWarn(ctx, "connection registry unregister failed", err, "userID", client.UserID, "connID", client.ConnID)
	}

	if lastLocal {
		ws.onlineUserNum.Add(-1)
		prommetrics.OnlineUserGauge.Dec()
		ws.subscription.DropUser(client.UserID)
		ws.subscription.Reconcile(ctx, ws.bus, ws.registry, ws.instanceID)
		ws.scheduleOffline(client.UserID)
	}
	log.ZInfo(ctx, "connection closed", "userID", client.UserID, "connID", client.ConnID,
		"closedErr", client.closedErr, "onlineConnNum", ws.onlineUserConnNum.Load())
}

// scheduleOffline arms the offline grace: only if the user still has no
// connection anywhere at expiry do they go offline.
func (ws *WsServer) scheduleOffline(userID string) {
	ws.grace.Schedule(userID, func() {
		ctx := context.Background()
		if _, ok := ws.clients.GetAll(userID); ok {
			return
		}
		count, err := ws.registry.ConnectionCount(ctx, userID)
		if err != nil {
			log.ZWarn(ctx, "offline grace presence check failed", err, "userID", userID)
			return
		}
		if count > 0 {
			return
		}
		if err := ws.chatDB.SetUserOnline(ctx, userID, false); err != nil {
			log.ZWarn(ctx, "set user offline failed", err, "userID", userID)
		}
		ws.publishStatusChange(ctx, userID, constant.StatusOffline)
		log.ZInfo(ctx, "user offline after grace", "userID", userID)
	})
}

// refreshServedConversations reloads the conversation sets of every local
// user so that membership changes made on other instances are picked up by
// the next reconcile.
func (ws *WsServer) refreshServedConversations(ctx context.Context) {
	for _, userID := range ws.clients.AllUserIDs() {
		conversationIDs, err := ws.chatDB.ConversationIDsOfUser(ctx, userID)
		if err != nil {
			log.ZWarn(ctx, "refresh user conversations failed", err, "userID", userID)
			continue
		}
		ws.subscription.SetUserConversations(userID, conversationIDs)
	}
}
