// Command spadessrv runs the spades-double-deck game server: an HTTP
// listener that upgrades one websocket per session and hands it to the
// Session Orchestrator, per §6.
//
// Grounded on the teacher's cmd/pokersrv/main.go (flag parsing, logging
// backend construction, blocking Serve call, env-var seed override). The
// teacher's transport is gRPC over a raw net.Listener; §6 only requires a
// reliable ordered reconnecting bidirectional channel, so this binary
// upgrades plain HTTP to gorilla/websocket instead of reproducing
// unfetchable protoc-generated gRPC stubs (see DESIGN.md).
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cardtable/spadesroom/pkg/logging"
	"github.com/cardtable/spadesroom/pkg/orchestrator"
	"github.com/cardtable/spadesroom/pkg/room"
	"github.com/cardtable/spadesroom/pkg/transport"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// devOrigins are the only origins allowed when -env=development, per §6.
// In production, origin restriction is on and no origin is allowed through
// CORS/cross-origin websocket upgrades.
var devOrigins = map[string]bool{
	"http://localhost:5173": true,
	"http://localhost:3000": true,
}

func main() {
	var (
		host       string
		port       int
		env        string
		seed       int64
		debugLevel string
	)
	flag.StringVar(&host, "host", "0.0.0.0", "Host to listen on")
	flag.IntVar(&port, "port", 0, "Port to listen on (0 = read PORT env var, default 3001)")
	flag.StringVar(&env, "env", "production", "Environment: production or development (controls allowed origins)")
	flag.Int64Var(&seed, "seed", 0, "Deterministic RNG seed for deals (0 = random)")
	flag.StringVar(&debugLevel, "debuglevel", "info", "Logging level: trace, debug, info, warn, error, critical, off")
	flag.Parse()

	if port == 0 {
		port = 3001
		if env := os.Getenv("PORT"); env != "" {
			if v, err := strconv.Atoi(env); err == nil {
				port = v
			}
		}
	}
	if seed == 0 {
		if env := os.Getenv("SPADES_SEED"); env != "" {
			if v, err := strconv.ParseInt(env, 10, 64); err == nil {
				seed = v
			}
		}
	}

	logBackend, err := logging.NewBackend(logging.Config{DebugLevel: debugLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	log := logBackend.Logger("SRVR")

	rng := rand.New(rand.NewSource(seedOrTime(seed)))
	rooms := room.NewManager(rng)
	hub := transport.NewHub()
	orch := orchestrator.New(rooms, hub, logBackend.Logger("ORCH"), rng)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOriginFunc(env),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warnf("websocket upgrade failed: %v", err)
			return
		}

		sessionID := uuid.NewString()
		connLog := logBackend.Logger("CONN")
		c := transport.NewConn(sessionID, ws, connLog, orch.HandleDisconnect)
		orch.HandleConnect(c)

		go c.WritePump()
		c.ReadPump(func(env transport.Envelope) {
			orch.Dispatch(sessionID, env)
		})
	})

	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Infof("listening on %s (env=%s)", addr, env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("serve: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Infof("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("graceful shutdown: %v", err)
	}
}

func seedOrTime(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

// checkOriginFunc builds the Upgrader's CheckOrigin per §6: in development,
// the two known local UI origins are allowed; in production, every
// cross-origin upgrade is rejected (no CORS), and a request with no Origin
// header at all (same-origin, or a non-browser client) is allowed through.
func checkOriginFunc(env string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if env == "development" {
			return devOrigins[origin]
		}
		return false
	}
}
