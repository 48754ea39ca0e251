package websocket

import (
	"bytes"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Размер очереди broadcast; при переполнении сообщения отбрасываются
const broadcastBufferSize = 256

// jsonBufferPool убирает аллокацию буфера при каждом Broadcast
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными WebSocket соединениями
//
// Рассылает события движка (итоги циклов, записи журнала, уведомления)
// всем подключенным клиентам. Broadcast никогда не блокирует вызывающего:
// движок не должен ждать медленных подписчиков.
//
// Использование:
// 1. Создать hub: hub := NewHub(WithLogger(log))
// 2. Запустить в горутине: go hub.Run()
// 3. Остановить: hub.Stop()
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	broadcast  chan event
	register   chan *Client
	unregister chan *Client

	done     chan struct{}
	stopOnce sync.Once

	// Mutex для потокобезопасного доступа к clients
	mu sync.RWMutex

	dropped atomic.Uint64
	origins *OriginChecker
	log     *utils.Logger
}

// HubOption настраивает Hub
type HubOption func(*Hub)

// WithLogger задаёт логгер hub
func WithLogger(log *utils.Logger) HubOption {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

// WithAllowedOrigins ограничивает Origin при апгрейде соединения
//
// Пустой список или "*" разрешает все источники.
func WithAllowedOrigins(origins []string) HubOption {
	return func(h *Hub) {
		h.origins = NewOriginChecker(origins)
	}
}

// NewHub создает новый Hub
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan event, broadcastBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		origins:    NewOriginChecker(nil),
		log:        utils.L(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithComponent("ws")
	return h
}

// Run запускает главный цикл Hub до вызова Stop
//
// Список клиентов копируется под коротким RLock, отправка идёт без блокировки,
// медленные клиенты удаляются под Write Lock.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client connected", utils.Int("clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client disconnected", utils.Int("clients", total))

		case ev := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				if client.sub.Accepts(ev) {
					clients = append(clients, client)
				}
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- ev.data:
				default:
					// Клиент не успевает читать
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					h.remove(client)
				}
				total := len(h.clients)
				h.mu.Unlock()
				h.log.Warn("removed slow clients", utils.Int("removed", len(toRemove)), utils.Int("clients", total))
			}
		}
	}
}

// remove вызывается под h.mu.Lock
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.remove(client)
	}
}

// Stop останавливает Run и закрывает соединения клиентов
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast сериализует сообщение и ставит его в очередь рассылки всем клиентам
func (h *Hub) Broadcast(message interface{}) {
	h.publish("", "", message)
}

// publish сериализует сообщение и ставит его в очередь с метаданными фильтра
func (h *Hub) publish(kind MessageType, account string, message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		h.log.Error("marshal broadcast message", utils.Err(err))
		jsonBufferPool.Put(buf)
		return
	}

	// Убираем trailing newline от Encode
	data := bytes.TrimRight(buf.Bytes(), "\n")

	// Копируем данные (буфер вернётся в пул)
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	h.enqueue(event{kind: kind, account: account, data: msgCopy})
}

// BroadcastRaw ставит в очередь уже сериализованное сообщение для всех клиентов
func (h *Hub) BroadcastRaw(data []byte) {
	h.enqueue(event{data: data})
}

func (h *Hub) enqueue(ev event) {
	select {
	case h.broadcast <- ev:
	default:
		h.dropped.Add(1)
	}
}

// BroadcastCycle отправляет итог цикла сканирования
func (h *Hub) BroadcastCycle(report *models.CycleReport) {
	h.publish(MessageTypeCycle, "", NewCycleMessage(report))
}

// BroadcastLiquidation отправляет запись журнала
func (h *Hub) BroadcastLiquidation(rec *models.LiquidationRecord, orders []*models.OrderRecord) {
	var account string
	if rec != nil {
		account = rec.Account
	}
	h.publish(MessageTypeLiquidation, account, NewLiquidationMessage(rec, orders))
}

// BroadcastNotification отправляет новое уведомление
func (h *Hub) BroadcastNotification(notif *models.Notification) {
	var account string
	if notif != nil && notif.Account != nil {
		account = *notif.Account
	}
	h.publish(MessageTypeNotification, account, NewNotificationMessage(notif))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DroppedMessages возвращает число сообщений, отброшенных из-за переполнения очереди
func (h *Hub) DroppedMessages() uint64 {
	return h.dropped.Load()
}
