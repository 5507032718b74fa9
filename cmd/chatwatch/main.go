// chatwatch connects to the broker as a chat account, tails the configured
// room, and logs every domain event. It can optionally bridge events onto
// NATS, cache presence and receipts in Redis, and expose Prometheus metrics.
package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/murmur/chat-sdk/bus"
	"github.com/murmur/chat-sdk/chat"
	"github.com/murmur/chat-sdk/internal/metrics"
	"github.com/murmur/chat-sdk/realtime"
	"github.com/murmur/chat-sdk/rest"
	"github.com/murmur/chat-sdk/statecache"
)

// staticAccount provides a fixed account from the environment.
type staticAccount struct {
	acct chat.Account
}

func (s staticAccount) Account() (chat.Account, bool) {
	return s.acct, s.acct.Token != ""
}

// alwaysForeground keeps the presence heartbeat in online mode.
type alwaysForeground struct{}

func (alwaysForeground) Foreground() bool { return true }

func main() {
	config := realtime.DefaultConfig()

	if v := os.Getenv("BROKER_URL"); v != "" {
		config.BrokerURL = v
	}
	if v := os.Getenv("CLIENT_ID"); v != "" {
		config.ClientID = v
	}
	if v := os.Getenv("STORE_DIR"); v != "" {
		config.StoreDir = v
	}

	account := chat.Account{
		Email: os.Getenv("ACCOUNT_EMAIL"),
		Token: os.Getenv("ACCOUNT_TOKEN"),
		Name:  os.Getenv("ACCOUNT_NAME"),
	}
	if account.Email == "" || account.Token == "" {
		log.Fatal("ACCOUNT_EMAIL and ACCOUNT_TOKEN are required")
	}

	roomID := int64(0)
	if v := os.Getenv("ROOM_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Fatalf("invalid ROOM_ID %q: %v", v, err)
		}
		roomID = n
	}

	events := bus.New()
	events.Listen(func(ev chat.Event) {
		log.Printf("[chatwatch] event %T: %+v", ev, ev)
	})

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		natsConfig := bus.DefaultNATSConfig()
		natsConfig.URL = natsURL
		bridge, err := bus.NewNATSBridge(natsConfig)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		defer bridge.Close()
		events.Listen(bridge.Publish)
	}

	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cache, err := statecache.NewStore(redisAddr)
		if err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		defer cache.Close()
		events.Listen(cache.Publish)
	}

	deps := realtime.Deps{
		Accounts: staticAccount{acct: account},
		App:      alwaysForeground{},
		Sink:     events,
	}
	if apiURL := os.Getenv("API_URL"); apiURL != "" {
		deps.Status = rest.NewClient(apiURL, account.Token)
	}

	if metricsAddr := os.Getenv("METRICS_ADDR"); metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			log.Printf("[chatwatch] metrics on %s/metrics", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Printf("[chatwatch] metrics server: %v", err)
			}
		}()
	}

	log.Printf("chatwatch starting")
	log.Printf("  broker_url: %s", config.BrokerURL)
	log.Printf("  client_id:  %s", config.ClientID)
	log.Printf("  account:    %s", account.Email)

	client := realtime.NewClient(config, deps)
	defer client.Close()

	client.Connect()
	if roomID != 0 {
		client.ListenRoom(roomID)
		log.Printf("  room_id:    %d", roomID)
	}
	if peer := os.Getenv("WATCH_USER"); peer != "" {
		client.ListenUserStatus(peer)
		log.Printf("  watch_user: %s", peer)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Printf("chatwatch shutting down")
}
