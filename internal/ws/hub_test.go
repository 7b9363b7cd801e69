package ws_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/serroba/opsportal/internal/ws"
)

const rootTopic = "folder:root"

// mockConn is a test double for ws.Conn.
type mockConn struct {
	mu       sync.Mutex
	messages []ws.Message
	closed   bool

	// For ReadJSON simulation
	incoming chan ws.Message
}

func newMockConn() *mockConn {
	return &mockConn{
		messages: make([]ws.Message, 0),
		incoming: make(chan ws.Message, 10),
	}
}

func (m *mockConn) WriteJSON(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Convert to Message
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	var msg ws.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}

	m.messages = append(m.messages, msg)

	return nil
}

func (m *mockConn) ReadJSON(v any) error {
	msg := <-m.incoming

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, v)
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

func (m *mockConn) Messages() []ws.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]ws.Message, len(m.messages))
	copy(result, m.messages)

	return result
}

func (m *mockConn) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

func TestHub_RegisterUnregister(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	client := ws.NewClient("c1", 7, newMockConn())

	hub.Register(client)

	if hub.TotalClients() != 1 {
		t.Errorf("expected 1 client, got %d", hub.TotalClients())
	}

	hub.Unregister(client)

	if hub.TotalClients() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.TotalClients())
	}
}

func TestHub_Subscribe_SwitchesTopic(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	client := ws.NewClient("c1", 7, newMockConn())

	hub.Register(client)
	hub.Subscribe(client, rootTopic)
	hub.Subscribe(client, "folder:700000")

	if hub.ClientCount(rootTopic) != 0 {
		t.Errorf("expected 0 clients on root, got %d", hub.ClientCount(rootTopic))
	}

	if hub.ClientCount("folder:700000") != 1 {
		t.Errorf("expected 1 client on folder:700000, got %d", hub.ClientCount("folder:700000"))
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	client := ws.NewClient("c1", 7, newMockConn())

	hub.Register(client)
	hub.Subscribe(client, rootTopic)
	hub.Unsubscribe(client, rootTopic)

	if hub.ClientCount(rootTopic) != 0 {
		t.Errorf("expected 0 clients on root, got %d", hub.ClientCount(rootTopic))
	}

	if client.Topic() != "" {
		t.Errorf("expected empty topic, got %s", client.Topic())
	}
}

func TestHub_Unregister_CleansUpSubscription(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	client := ws.NewClient("c1", 7, newMockConn())

	hub.Register(client)
	hub.Subscribe(client, rootTopic)
	hub.Unregister(client)

	if hub.ClientCount(rootTopic) != 0 {
		t.Errorf("expected 0 clients on root after unregister, got %d", hub.ClientCount(rootTopic))
	}
}

func TestHub_Broadcast(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()

	conn1 := newMockConn()
	conn2 := newMockConn()
	conn3 := newMockConn()

	client1 := ws.NewClient("c1", 7, conn1)
	client2 := ws.NewClient("c2", 8, conn2)
	client3 := ws.NewClient("c3", 9, conn3)

	hub.Register(client1)
	hub.Register(client2)
	hub.Register(client3)

	hub.Subscribe(client1, rootTopic)
	hub.Subscribe(client2, ws.AllTopic)
	hub.Subscribe(client3, "folder:700000") // Different folder

	msg := ws.Message{
		Type:    ws.MessageTypeDriveEvent,
		Payload: "test",
	}

	hub.Broadcast(msg, rootTopic, rootTopic)

	// Give goroutines time to send
	time.Sleep(10 * time.Millisecond)

	if len(conn1.Messages()) != 1 {
		t.Errorf("root watcher should receive exactly 1 message, got %d", len(conn1.Messages()))
	}

	if len(conn2.Messages()) != 1 {
		t.Errorf("all watcher should receive 1 message, got %d", len(conn2.Messages()))
	}

	if len(conn3.Messages()) != 0 {
		t.Errorf("client3 should not receive (different folder), got %d messages", len(conn3.Messages()))
	}
}

func TestHub_ConcurrentOperations(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()

	var wg sync.WaitGroup

	// Register many clients concurrently
	for i := range 20 {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			client := ws.NewClient(string(rune('a'+n)), int64(n), newMockConn())

			hub.Register(client)
			hub.Subscribe(client, rootTopic)
		}(i)
	}

	wg.Wait()

	if hub.ClientCount(rootTopic) != 20 {
		t.Errorf("expected 20 clients on root, got %d", hub.ClientCount(rootTopic))
	}
}

func TestHub_Broadcast_NoSubscribers(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()

	// Broadcast to a topic with no subscribers - should not panic
	hub.Broadcast(ws.Message{Type: ws.MessageTypeDriveEvent, Payload: "test"}, "folder:1")
}
