package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const testPatient = "0b7c6f7e-3f11-4a8e-9a53-1f6d1c2a9b40"

func newClient(id string, topics ...string) *Client {
	return &Client{ID: id, Topics: topics, Send: make(chan []byte, sendBuffer)}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	topic := ChartTopic(testPatient)
	client := newClient("c1", topic)

	hub.Register(client)
	if hub.ClientCount() != 1 || hub.TopicCount(topic) != 1 {
		t.Fatalf("expected 1 client on %s, got clients=%d topic=%d", topic, hub.ClientCount(), hub.TopicCount(topic))
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 || hub.TopicCount(topic) != 0 {
		t.Fatalf("expected empty hub, got clients=%d topic=%d", hub.ClientCount(), hub.TopicCount(topic))
	}
	if _, ok := <-client.Send; ok {
		t.Fatal("expected Send to be closed")
	}

	// second unregister is a no-op rather than a double close
	hub.Unregister(client)
}

func TestHub_BroadcastOnlyReachesSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	topic := ChartTopic(testPatient)
	sub := newClient("sub", topic)
	other := newClient("other", ChartTopic("someone-else"))
	hub.Register(sub)
	hub.Register(other)

	hub.Broadcast(topic, Event{Type: EventFrame, Topic: topic, PatientID: testPatient})

	select {
	case msg := <-sub.Send:
		var got Event
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Type != EventFrame || got.PatientID != testPatient {
			t.Fatalf("unexpected event %+v", got)
		}
	default:
		t.Fatal("subscriber received nothing")
	}
	select {
	case <-other.Send:
		t.Fatal("non-subscriber received an event")
	default:
	}
}

func TestHub_FullBufferDropsEvent(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	topic := ChartTopic(testPatient)
	client := &Client{ID: "slow", Topics: []string{topic}, Send: make(chan []byte, 1)}
	hub.Register(client)

	hub.Broadcast(topic, Event{Type: EventFrame, Topic: topic})
	hub.Broadcast(topic, Event{Type: EventFrame, Topic: topic})

	if hub.Dropped() != 1 {
		t.Fatalf("expected 1 dropped delivery, got %d", hub.Dropped())
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("dyn")
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{"chart/a", "chart/b"}})
	if hub.TopicCount("chart/a") != 1 || hub.TopicCount("chart/b") != 1 {
		t.Fatal("expected both topics subscribed")
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{"chart/a"}})
	if hub.TopicCount("chart/a") != 0 || hub.TopicCount("chart/b") != 1 {
		t.Fatalf("unexpected counts a=%d b=%d", hub.TopicCount("chart/a"), hub.TopicCount("chart/b"))
	}
	if len(client.Topics) != 1 || client.Topics[0] != "chart/b" {
		t.Fatalf("expected [chart/b], got %v", client.Topics)
	}
}

func TestHub_ConcurrentRegisterBroadcast(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	topic := ChartTopic(testPatient)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := newClient("c", topic)
			hub.Register(c)
			hub.Unregister(c)
		}()
		go func() {
			defer wg.Done()
			hub.Broadcast(topic, Event{Type: EventChange, Topic: topic})
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestHandler_RejectsBadPatient(t *testing.T) {
	h := NewHandler(NewHub(zerolog.Nop()), nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws?patient=nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.HandleConnect(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_FullUpgrade(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	e := echo.New()
	NewHandler(hub, nil).RegisterRoutes(e.Group(""))

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?patient=" + testPatient
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	topic := ChartTopic(testPatient)
	deadline := time.Now().Add(time.Second)
	for hub.TopicCount(topic) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.TopicCount(topic) != 1 {
		t.Fatalf("expected client subscribed to %s", topic)
	}

	hub.Broadcast(topic, Event{Type: EventChange, Topic: topic, PatientID: testPatient, Timestamp: time.Now()})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != EventChange {
		t.Fatalf("expected %s, got %s", EventChange, got.Type)
	}
}

func TestHandler_OriginCheck(t *testing.T) {
	h := NewHandler(NewHub(zerolog.Nop()), []string{"https://clinic.example"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example")
	if h.upgrader.CheckOrigin(req) {
		t.Fatal("expected foreign origin to be rejected")
	}
	req.Header.Set("Origin", "https://clinic.example")
	if !h.upgrader.CheckOrigin(req) {
		t.Fatal("expected configured origin to be accepted")
	}
}
