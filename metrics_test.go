package dromos

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMetricsHTTPOutcomes(t *testing.T) {
	router := NewRouter()
	router.Get("", valueHandler("ok"))
	router.Get("fail", func(ctx *Context) (Result, error) {
		return Result{}, NewHTTPError(http.StatusBadGateway, "")
	})

	server := NewServer(router, WithMetrics(prometheus.NewRegistry()))

	for _, path := range []string{"/", "/", "/fail", "/missing"} {
		server.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(server.metrics.dispatchTotal.WithLabelValues("http", outcomeOK)); got != 2 {
		t.Errorf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(server.metrics.dispatchTotal.WithLabelValues("http", outcomeError)); got != 1 {
		t.Errorf("expected 1 failed request, got %v", got)
	}
	if got := testutil.ToFloat64(server.metrics.dispatchTotal.WithLabelValues("http", outcomeNotFound)); got != 1 {
		t.Errorf("expected 1 not found request, got %v", got)
	}
	if got := testutil.CollectAndCount(server.metrics.dispatchDuration); got != 3 {
		t.Errorf("expected duration series for 3 outcomes, got %d", got)
	}
}

func TestMetricsSessions(t *testing.T) {
	msgs := make(chan string, 1)
	closed := make(chan struct{})

	router := NewRouter()
	router.WS("listen", func(ctx *Context) (Result, error) {
		return Session(&MessageHandlerFuncs{
			StartFunc: func(out Outbound) error {
				return out.SendMsg(context.Background(), "welcome")
			},
			MsgFunc: func(msg string) error {
				msgs <- msg
				return nil
			},
			ClosedFunc: func(status Status, reason string) error {
				close(closed)
				return nil
			},
		}), nil
	})

	server := NewServer(router, WithMetrics(prometheus.NewRegistry()))
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, httpServer.URL+"/listen", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatal(err)
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte("hi")); err != nil {
		t.Fatal(err)
	}
	<-msgs

	if got := testutil.ToFloat64(server.metrics.sessionsActive); got != 1 {
		t.Errorf("expected 1 active session, got %v", got)
	}

	_ = conn.Close(websocket.StatusNormalClosure, "")
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close")
	}

	if got := testutil.ToFloat64(server.metrics.sessionsTotal); got != 1 {
		t.Errorf("expected 1 session, got %v", got)
	}
	if got := testutil.ToFloat64(server.metrics.messagesReceived); got != 1 {
		t.Errorf("expected 1 received message, got %v", got)
	}
	if got := testutil.ToFloat64(server.metrics.messagesSent); got != 1 {
		t.Errorf("expected 1 sent message, got %v", got)
	}
	if got := testutil.ToFloat64(server.metrics.dispatchTotal.WithLabelValues("ws", outcomeOK)); got != 1 {
		t.Errorf("expected 1 accepted upgrade, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.dispatched("http", outcomeOK)
	m.httpFinished(outcomeOK, time.Now())
	m.sessionOpened()
	m.sessionClosed()
	m.messageReceived()
	m.messageSent()
	m.handlerFault("msg")
	m.fault("http")
}

func TestServerLogsHandlerFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	router := NewRouter()
	router.Get("panic", func(ctx *Context) (Result, error) {
		panic("logged panic")
	})
	router.Get("teapot", func(ctx *Context) (Result, error) {
		return Result{}, NewHTTPError(http.StatusTeapot, "")
	})

	server := NewServer(router, WithLogger(zap.New(core)))
	server.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/panic", nil))
	server.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot", nil))

	failures := logs.FilterMessage("handler failed").All()
	if len(failures) != 1 {
		t.Fatalf("expected one handler failure, got %d", len(failures))
	}
	if failures[0].Level != zapcore.ErrorLevel {
		t.Errorf("expected error level, got %s", failures[0].Level)
	}
	if _, ok := failures[0].ContextMap()["stack"]; !ok {
		t.Error("expected stack to be logged for a panic")
	}

	if rejected := logs.FilterMessage("request rejected").Len(); rejected != 1 {
		t.Errorf("expected one rejected request, got %d", rejected)
	}
	if finished := logs.FilterMessage("request finished").Len(); finished != 2 {
		t.Errorf("expected every request to be finalized, got %d", finished)
	}
}
