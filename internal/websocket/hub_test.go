package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

// ============================================================
// Unit Tests
// ============================================================

func newTestHub(opts ...HubOption) *Hub {
	opts = append([]HubOption{WithLogger(utils.NewNopLogger())}, opts...)
	return NewHub(opts...)
}

func TestNewHub(t *testing.T) {
	hub := newTestHub()

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}

	if hub.DroppedMessages() != 0 {
		t.Errorf("expected 0 dropped messages, got %d", hub.DroppedMessages())
	}
}

func TestOriginChecker_Check(t *testing.T) {
	checker := NewOriginChecker([]string{"http://localhost:3000", " https://example.com "})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},                       // empty origin allowed
		{"http://localhost:3000", true},  // allowed
		{"https://example.com", true},    // allowed
		{"http://evil.com", false},       // not allowed
		{"http://localhost:8080", false}, // not in list
	}

	for _, tt := range tests {
		got := checker.Check(tt.origin)
		if got != tt.want {
			t.Errorf("Check(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestOriginChecker_AllowAll(t *testing.T) {
	for _, origins := range [][]string{nil, {"*"}, {" "}} {
		checker := NewOriginChecker(origins)
		for _, origin := range []string{"http://localhost:3000", "https://evil.com"} {
			if !checker.Check(origin) {
				t.Errorf("origins=%v: Check(%q) = false", origins, origin)
			}
		}
	}
}

func TestHub_BroadcastNonBlocking(t *testing.T) {
	// Run не запущен: очередь заполняется, лишние сообщения отбрасываются
	hub := newTestHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBufferSize+10; i++ {
			hub.Broadcast(map[string]int{"i": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked")
	}

	if got := hub.DroppedMessages(); got != 10 {
		t.Errorf("expected 10 dropped messages, got %d", got)
	}
}

func TestHub_Stop(t *testing.T) {
	hub := newTestHub()

	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	hub.Stop()
	hub.Stop() // повторный вызов безопасен

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Hub.Run() did not exit after Stop()")
	}
}

func TestMessages_Encoding(t *testing.T) {
	rec := &models.LiquidationRecord{
		ID:          1,
		Account:     "AcctA",
		Status:      models.LiquidationStatusDone,
		SeizeAmount: decimal.RequireFromString("2020"),
	}

	data, err := json.Marshal(NewLiquidationMessage(rec, nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	s := string(data)
	for _, want := range []string{`"type":"liquidation"`, `"seize_amount":"2020"`, `"account":"AcctA"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, `"orders"`) {
		t.Errorf("empty orders should be omitted: %s", s)
	}
}

// ============================================================
// Integration with a real connection
// ============================================================

func dialHub(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	target := "ws" + strings.TrimPrefix(srv.URL, "http")
	return websocket.DefaultDialer.Dial(target, header)
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_DeliversEvents(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := dialHub(t, srv, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitClients(t, hub, 1)

	account := "AcctA"
	hub.BroadcastCycle(&models.CycleReport{Cycle: 3, Scanned: 10, Flagged: 1})
	hub.BroadcastNotification(&models.Notification{Type: models.NotificationTypeSeized, Account: &account})

	wantTypes := []MessageType{MessageTypeCycle, MessageTypeNotification}
	for _, want := range wantTypes {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}

		var base BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if base.Type != want {
			t.Errorf("expected type %s, got %s", want, base.Type)
		}
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := dialHub(t, srv, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := newTestHub(WithAllowedOrigins([]string{"https://ops.example"}))
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "http://evil.com")
	conn, resp, err := dialHub(t, srv, header)
	if err == nil {
		conn.Close()
		t.Fatal("expected handshake error")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}
}

func TestParseSubscription(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantErr   bool
		wantTypes int
		account   string
	}{
		{name: "no filter", query: ""},
		{name: "types", query: "events=liquidation,%20Notification", wantTypes: 2},
		{name: "account", query: "account=AcctA", account: "AcctA"},
		{name: "empty parts ignored", query: "events=cycle,,", wantTypes: 1},
		{name: "unknown type", query: "events=orders", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			sub, err := ParseSubscription(q)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownEvent) {
					t.Errorf("expected ErrUnknownEvent, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(sub.types) != tt.wantTypes {
				t.Errorf("expected %d types, got %d", tt.wantTypes, len(sub.types))
			}
			if sub.account != tt.account {
				t.Errorf("expected account %q, got %q", tt.account, sub.account)
			}
		})
	}
}

func TestSubscription_Accepts(t *testing.T) {
	onlyNotifications := Subscription{types: map[MessageType]struct{}{MessageTypeNotification: {}}}
	onlyAcctA := Subscription{account: "AcctA"}

	tests := []struct {
		name string
		sub  Subscription
		ev   event
		want bool
	}{
		{name: "no filter", sub: Subscription{}, ev: event{kind: MessageTypeCycle}, want: true},
		{name: "type allowed", sub: onlyNotifications, ev: event{kind: MessageTypeNotification}, want: true},
		{name: "type filtered", sub: onlyNotifications, ev: event{kind: MessageTypeCycle}, want: false},
		{name: "untyped passes type filter", sub: onlyNotifications, ev: event{}, want: true},
		{name: "same account", sub: onlyAcctA, ev: event{kind: MessageTypeLiquidation, account: "AcctA"}, want: true},
		{name: "other account", sub: onlyAcctA, ev: event{kind: MessageTypeLiquidation, account: "AcctB"}, want: false},
		{name: "group-wide event passes account filter", sub: onlyAcctA, ev: event{kind: MessageTypeCycle}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.Accepts(tt.ev); got != tt.want {
				t.Errorf("Accepts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHub_SubscriptionFilters(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	target := "ws" + strings.TrimPrefix(srv.URL, "http") + "?events=notification&account=AcctA"
	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitClients(t, hub, 1)

	acctA, acctB := "AcctA", "AcctB"
	hub.BroadcastCycle(&models.CycleReport{Cycle: 1})
	hub.BroadcastNotification(&models.Notification{Type: models.NotificationTypeSeized, Account: &acctB})
	hub.BroadcastLiquidation(&models.LiquidationRecord{ID: 1, Account: acctA}, nil)
	hub.BroadcastNotification(&models.Notification{Type: models.NotificationTypeRemediated, Account: &acctA})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	if msg.Type != MessageTypeNotification || msg.Data == nil || msg.Data.Type != models.NotificationTypeRemediated {
		t.Errorf("expected REMEDIATED notification for AcctA, got %s", data)
	}
}

func TestHub_RejectsUnknownEvent(t *testing.T) {
	hub := newTestHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?events=bogus")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

// ============================================================
// Parallel Stress Test
// ============================================================

func TestHub_ConcurrentOperations(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Stop()

	var wg sync.WaitGroup
	const goroutines = 10
	const operations = 1000

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				hub.Broadcast(map[string]int{"goroutine": id, "op": j})
			}
		}(i)
	}

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				_ = hub.ClientCount()
			}
		}()
	}

	wg.Wait()
}

// ============================================================
// Benchmarks
// ============================================================

func BenchmarkHub_Broadcast(b *testing.B) {
	hub := NewHub(WithLogger(utils.NewNopLogger()))
	go hub.Run()
	defer hub.Stop()

	report := &models.CycleReport{Cycle: 1, Scanned: 100}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.BroadcastCycle(report)
	}
}

func BenchmarkOriginChecker_Check(b *testing.B) {
	checker := NewOriginChecker([]string{"http://localhost:3000"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		checker.Check("http://localhost:3000")
	}
}
