// Package network управляет жизненным циклом соединения с сервером
// присутствия: подключение, экспоненциальные повторы, keepalive и
// маршрутизация входящих сообщений.
package network

import (
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/annel0/mmo-client/internal/eventbus"
	"github.com/annel0/mmo-client/internal/logging"
	"github.com/annel0/mmo-client/internal/protocol"
)

// SessionState — состояние конечного автомата сессии.
type SessionState int

const (
	StateClosed SessionState = iota
	StateConnecting
	StateOpen
)

// String возвращает строковое представление состояния
func (s SessionState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// Handler — получатель входящих сообщений и событий жизненного цикла.
// Все методы вызываются из горутин сессии и не должны блокировать.
type Handler interface {
	OnOpen()
	OnClose(err error)
	OnMapFull(m protocol.MapFull)
	OnMapOps(m protocol.MapOps)
	OnItemsFull(m protocol.ItemsFull)
	OnItemOps(m protocol.ItemOps)
	OnPortalFull(m protocol.PortalFull)
	OnPortalOps(m protocol.PortalOps)
	OnSnapshot(m protocol.Snapshot)
	OnUpdate(m protocol.Update)
	OnPong(serverNow int64, sentAt, receivedAt time.Time)
	// OnSendStalled вызывается сторожевым таймером, когда исходящих
	// сообщений не было дольше порога (защита от тихих зависаний
	// внешнего игрового цикла).
	OnSendStalled()
}

// SessionConfig — параметры сессии.
type SessionConfig struct {
	URL     string
	ID      string
	Channel string
	Level   string

	RetryBase   time.Duration // Базовый интервал повтора (по умолчанию 2s)
	RetryCap    time.Duration // Потолок интервала (10s)
	RetryJitter time.Duration // Случайный разброс ±jitter (400ms)
	Keepalive   time.Duration // Период ping (10s)
	Watchdog    time.Duration // Порог сторожевого таймера отправки (1.2s)

	WriteTimeout time.Duration // Дедлайн записи в сокет
}

// withDefaults заполняет нулевые поля значениями по умолчанию
func (c SessionConfig) withDefaults() SessionConfig {
	if c.RetryBase <= 0 {
		c.RetryBase = 2 * time.Second
	}
	if c.RetryCap <= 0 {
		c.RetryCap = 10 * time.Second
	}
	if c.RetryJitter < 0 {
		c.RetryJitter = 0
	}
	if c.RetryJitter == 0 {
		c.RetryJitter = 400 * time.Millisecond
	}
	if c.Keepalive <= 0 {
		c.Keepalive = 10 * time.Second
	}
	if c.Watchdog <= 0 {
		c.Watchdog = 1200 * time.Millisecond
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

// Session — конечный автомат CLOSED -> CONNECTING -> OPEN -> CLOSED поверх
// одного WebSocket-соединения. Создаётся при старте и живёт весь процесс;
// внутренности (соединение, таймеры) пересоздаются при каждом подключении.
// Ошибки транспорта не фатальны: следующая попытка планируется с
// экспоненциальной задержкой, клиент продолжает играть офлайн.
type Session struct {
	mu      sync.Mutex
	cfg     SessionConfig
	handler Handler
	bus     eventbus.EventBus

	state         SessionState
	conn          *websocket.Conn
	writeMu       sync.Mutex
	retryInterval time.Duration
	nextAttemptAt time.Time
	lastSendAt    time.Time
	lastPingAt    time.Time
	stop          chan struct{} // Канал остановки таймеров текущего соединения

	rng     *rand.Rand
	metrics *Metrics

	// dial подменяется в тестах
	dial func(url string) (*websocket.Conn, error)
}

// NewSession создаёт сессию в состоянии CLOSED. Подключение инициируется
// вызовами EnsureConnected из игрового цикла.
func NewSession(cfg SessionConfig, handler Handler, bus eventbus.EventBus) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		cfg:           cfg,
		handler:       handler,
		bus:           bus,
		state:         StateClosed,
		retryInterval: cfg.RetryBase,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		metrics:       GetMetrics(),
		dial: func(url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			return conn, err
		},
	}
}

// State возвращает текущее состояние автомата
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsOpen сообщает, открыто ли соединение
func (s *Session) IsOpen() bool {
	return s.State() == StateOpen
}

// NextAttemptAt возвращает время следующей попытки подключения
func (s *Session) NextAttemptAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextAttemptAt
}

// EnsureConnected инициирует подключение, если сессия закрыта и время
// следующей попытки наступило. Вызывается каждый тик игрового цикла; в
// остальных состояниях — no-op.
func (s *Session) EnsureConnected(now time.Time) {
	s.mu.Lock()
	if s.state != StateClosed || now.Before(s.nextAttemptAt) {
		s.mu.Unlock()
		return
	}
	s.state = StateConnecting
	s.mu.Unlock()

	go s.connect()
}

// connect выполняет попытку установления соединения
func (s *Session) connect() {
	logging.Info("Подключение к %s…", s.cfg.URL)
	conn, err := s.dial(s.cfg.URL)
	if err != nil {
		logging.Warn("Не удалось подключиться: %v", err)
		s.teardown(err)
		return
	}

	s.mu.Lock()
	if s.state != StateConnecting {
		// Close() закрыл сессию, пока шёл dial — не оживляем её
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.state = StateOpen
	s.conn = conn
	s.retryInterval = s.cfg.RetryBase
	s.lastSendAt = time.Now()
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.metrics.Connects.Inc()
	logging.Info("Соединение открыто, состояние %s", StateOpen)
	eventbus.PublishEvent(s.bus, eventbus.EventSessionConnected, 0)

	// Рукопожатие с идентичностью клиента
	if err := s.Send(protocol.NewHello(s.cfg.ID, s.cfg.Channel, s.cfg.Level)); err != nil {
		return // teardown уже выполнен внутри Send
	}

	go s.readLoop(conn)
	go s.keepaliveLoop(stop)
	go s.watchdogLoop(stop)

	s.handler.OnOpen()
}

// Send сериализует и отправляет исходящее сообщение.
// Ошибка записи закрывает сессию (восстановление через backoff).
func (s *Session) Send(msg interface{}) error {
	s.mu.Lock()
	if s.state != StateOpen || s.conn == nil {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	conn := s.conn
	s.mu.Unlock()

	data := protocol.Encode(msg)

	s.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	err := conn.WriteMessage(websocket.TextMessage, data)
	s.writeMu.Unlock()

	if err != nil {
		logging.Warn("Ошибка отправки: %v", err)
		s.teardown(err)
		return err
	}

	s.mu.Lock()
	s.lastSendAt = time.Now()
	s.mu.Unlock()
	s.metrics.MessagesSent.Inc()
	return nil
}

// readLoop читает и маршрутизирует входящие сообщения до ошибки чтения
func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.teardown(err)
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			// Нечитаемое сообщение отбрасывается, сессия живёт дальше
			s.metrics.Malformed.Inc()
			logging.Debug("Отброшено нечитаемое сообщение: %v", err)
			continue
		}

		s.dispatch(msg)
	}
}

// dispatch раскладывает сообщение по получателям согласно тегу типа.
// Объединение закрытое: каждый вариант обработан явно, Unknown игнорируется.
func (s *Session) dispatch(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.MapFull:
		s.metrics.MessagesReceived.WithLabelValues("map_full").Inc()
		s.handler.OnMapFull(m)
	case protocol.MapOps:
		s.metrics.MessagesReceived.WithLabelValues("map_ops").Inc()
		s.handler.OnMapOps(m)
	case protocol.ItemsFull:
		s.metrics.MessagesReceived.WithLabelValues("items_full").Inc()
		s.handler.OnItemsFull(m)
	case protocol.ItemOps:
		s.metrics.MessagesReceived.WithLabelValues("item_ops").Inc()
		s.handler.OnItemOps(m)
	case protocol.PortalFull:
		s.metrics.MessagesReceived.WithLabelValues("portal_full").Inc()
		s.handler.OnPortalFull(m)
	case protocol.PortalOps:
		s.metrics.MessagesReceived.WithLabelValues("portal_ops").Inc()
		s.handler.OnPortalOps(m)
	case protocol.Snapshot:
		s.metrics.MessagesReceived.WithLabelValues("snapshot").Inc()
		s.handler.OnSnapshot(m)
	case protocol.Update:
		s.metrics.MessagesReceived.WithLabelValues("update").Inc()
		s.handler.OnUpdate(m)
	case protocol.Pong:
		s.metrics.MessagesReceived.WithLabelValues("pong").Inc()
		s.mu.Lock()
		sentAt := s.lastPingAt
		s.mu.Unlock()
		s.handler.OnPong(m.Now, sentAt, time.Now())
	case protocol.Unknown:
		s.metrics.MessagesReceived.WithLabelValues("unknown").Inc()
		logging.Trace("Игнорируем сообщение неизвестного типа %q", m.Type)
	}
}

// keepaliveLoop периодически отправляет ping для измерения RTT и
// поддержания соединения
func (s *Session) keepaliveLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.Keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.lastPingAt = time.Now()
			s.mu.Unlock()
			if s.Send(protocol.NewPing()) != nil {
				return
			}
		}
	}
}

// watchdogLoop следит, чтобы исходящие обновления не замирали: если дольше
// порога ничего не отправлялось, дёргает обработчик
func (s *Session) watchdogLoop(stop <-chan struct{}) {
	period := s.cfg.Watchdog / 4
	if period <= 0 {
		period = 100 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			stalled := s.state == StateOpen && time.Since(s.lastSendAt) > s.cfg.Watchdog
			s.mu.Unlock()
			if stalled {
				s.handler.OnSendStalled()
			}
		}
	}
}

// teardown переводит сессию в CLOSED, останавливает таймеры и планирует
// следующую попытку с экспоненциальной задержкой и джиттером
func (s *Session) teardown(err error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.state = StateClosed

	delay, next := nextBackoff(s.retryInterval, s.cfg.RetryCap, s.cfg.RetryJitter, s.rng)
	s.nextAttemptAt = time.Now().Add(delay)
	s.retryInterval = next
	s.mu.Unlock()

	s.metrics.Disconnects.Inc()
	logging.Warn("Сессия закрыта (%v), следующая попытка через %v", err, delay.Round(time.Millisecond))
	eventbus.PublishEvent(s.bus, eventbus.EventSessionDisconnected, 0)

	s.handler.OnClose(err)
}

// Close закрывает сессию навсегда в рамках остановки процесса
func (s *Session) Close() {
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.state = StateClosed
	// Отодвигаем следующую попытку, чтобы цикл завершения не переподключался
	s.nextAttemptAt = time.Now().Add(24 * time.Hour)
	s.mu.Unlock()
}

// nextBackoff вычисляет задержку следующей попытки и новый интервал повтора.
// Задержка = min(cap, interval) ± jitter; интервал удваивается до потолка.
func nextBackoff(interval, capInterval, jitter time.Duration, rng *rand.Rand) (delay, next time.Duration) {
	if interval > capInterval {
		interval = capInterval
	}
	delay = interval
	if jitter > 0 {
		delay += time.Duration(rng.Int63n(int64(2*jitter))) - jitter
	}
	if delay < 0 {
		delay = 0
	}
	next = interval * 2
	if next > capInterval {
		next = capInterval
	}
	return delay, next
}
