package service

import (
	"context"
	"elearn_backend/pkg/logger"
	"elearn_backend/pkg/monitoring"
	"encoding/json"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32

	progressChannel = "elearn:progress"
)

const (
	EventEnrolled        = "ENROLLED"
	EventProgress        = "PROGRESS"
	EventCourseCompleted = "COURSE_COMPLETED"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ProgressEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ProgressNotifier 选课与进度变化的推送出口
type ProgressNotifier interface {
	Notify(userID string, event ProgressEvent)
}

type hubClient struct {
	hub    *ProgressHub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

// readPump 只处理心跳，客户端上行消息直接丢弃
func (c *hubClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket unexpected close", zap.Error(err), zap.String("user_id", c.userID))
			}
			return
		}
	}
}

func (c *hubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[string]*hubClient
	mu      sync.RWMutex
}

type hubMessage struct {
	UserID  string          `json:"userId"`
	Payload json.RawMessage `json:"payload"`
}

// ProgressHub 向在线用户推送进度事件。配置了 Redis 时经 Pub/Sub 广播，多实例部署下任一实例都能送达
type ProgressHub struct {
	Redis *redis.Client

	shards     [shardCount]*shard
	register   chan *hubClient
	unregister chan *hubClient
	done       chan struct{}
}

func NewProgressHub(rdb *redis.Client) *ProgressHub {
	h := &ProgressHub{
		Redis:      rdb,
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		done:       make(chan struct{}),
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{clients: make(map[string]*hubClient)}
	}
	return h
}

func (h *ProgressHub) getShard(userID string) *shard {
	f := fnv.New32a()
	f.Write([]byte(userID))
	return h.shards[f.Sum32()%shardCount]
}

// Run 处理连接注册注销，ctx 取消时关闭所有连接
func (h *ProgressHub) Run(ctx context.Context) {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(ctx, progressChannel)
		defer pubsub.Close()
		go func() {
			for msg := range pubsub.Channel() {
				var m hubMessage
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
					logger.Log.Error("PubSub unmarshal error", zap.Error(err))
					continue
				}
				h.deliver(m.UserID, m.Payload)
			}
		}()
	}

	for {
		select {
		case client := <-h.register:
			s := h.getShard(client.userID)
			s.mu.Lock()
			// 同一用户只保留最新连接
			if old, ok := s.clients[client.userID]; ok {
				close(old.send)
				monitoring.ProgressSubscribers.Dec()
			}
			s.clients[client.userID] = client
			s.mu.Unlock()
			monitoring.ProgressSubscribers.Inc()

		case client := <-h.unregister:
			s := h.getShard(client.userID)
			s.mu.Lock()
			if cur, ok := s.clients[client.userID]; ok && cur == client {
				delete(s.clients, client.userID)
				close(client.send)
				monitoring.ProgressSubscribers.Dec()
			}
			s.mu.Unlock()

		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		}
	}
}

func (h *ProgressHub) closeAll() {
	closed := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, client := range s.clients {
			close(client.send)
			delete(s.clients, userID)
			closed++
		}
		s.mu.Unlock()
	}
	monitoring.ProgressSubscribers.Set(0)
	logger.Log.Info("ProgressHub stopped", zap.Int("closedConnections", closed))
}

// Notify 实现 ProgressNotifier
func (h *ProgressHub) Notify(userID string, event ProgressEvent) {
	monitoring.ProgressEventsTotal.WithLabelValues(event.Type).Inc()
	// 单实例部署下用户不在线时无需序列化
	if h.Redis == nil && !h.Connected(userID) {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Log.Error("Progress event marshal error", zap.Error(err))
		return
	}

	if h.Redis != nil {
		msg, _ := json.Marshal(hubMessage{UserID: userID, Payload: payload})
		if err := h.Redis.Publish(context.Background(), progressChannel, msg).Err(); err == nil {
			return
		}
		logger.Log.Warn("Progress publish failed, delivering locally", zap.Error(err))
	}
	h.deliver(userID, payload)
}

func (h *ProgressHub) deliver(userID string, payload []byte) {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if client, ok := s.clients[userID]; ok {
		select {
		case client.send <- payload:
		default:
		}
	}
}

// Connected 当前实例上该用户是否有连接
func (h *ProgressHub) Connected(userID string) bool {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.clients[userID]
	return ok
}

func (h *ProgressHub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.Error(err), zap.String("user_id", userID))
		return
	}
	client := &hubClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 64),
		userID: userID,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
