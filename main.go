package main

import (
	"bufio"
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Wiroonpuri/chatsync/api"
	"github.com/Wiroonpuri/chatsync/cache"
	"github.com/Wiroonpuri/chatsync/chat"
	"github.com/Wiroonpuri/chatsync/presence"
	"github.com/Wiroonpuri/chatsync/session"
	"github.com/Wiroonpuri/chatsync/ws"
)

// Logical channel names; one independently reconnecting socket each.
const (
	chanStatus = "status"
	chanChat   = "chat"
	chanGroup  = "group"
)

var (
	flagEnvFile = flag.String("env-file", ".env", ".env file with WS_URL, API_URL, TOKEN, UID, NAME; reloaded on SIGHUP")
	flagWsURL   = flag.String("ws-url", "", "websocket base URL, e.g. ws://127.0.0.1:8000, overrides WS_URL")
	flagApiURL  = flag.String("api-url", "", "backend base URL, e.g. http://127.0.0.1:8000, overrides API_URL")
	flagToken   = flag.String("token", "", "session token, overrides TOKEN")
	flagUid     = flag.String("uid", "", "current user id, overrides UID")
	flagName    = flag.String("name", "", "current user display name, overrides NAME")

	flagChat = flag.String("chat", "", "conversation id to open")
	flagPeer = flag.String("peer", "", "direct-message peer; the conversation id is resolved via the backend")

	flagCacheFile = flag.String("cache-file", "chatsync.db", "local history cache file, empty disables caching")

	flagMetricsAddr    = flag.String("metrics-addr", "127.0.0.1:8001", "prometheus /metrics listen address")
	flagDisableMetrics = flag.Bool("disable-metrics", false, "disable prometheus metrics")
	flagPprofDir       = flag.String("pprof-dir", "pprof", "dir to save pprof data files")
)

func main() {
	flag.Parse()

	// NOTE: os.Exit() does not call defers.
	os.Exit(run())
}

// envToken merges the flag and .env credential, flag wins.
func envToken() string {
	if *flagToken != "" {
		return *flagToken
	}
	return os.Getenv("TOKEN")
}

func pick(flagValue, envKey string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envKey)
}

func run() int {
	defer glog.Flush()

	if *flagEnvFile != "" {
		if err := godotenv.Load(*flagEnvFile); err != nil {
			glog.V(5).Infof("no env file loaded from `%s`: %v", *flagEnvFile, err)
		}
	}

	wsURL := pick(*flagWsURL, "WS_URL")
	apiURL := pick(*flagApiURL, "API_URL")
	selfUid := pick(*flagUid, "UID")
	selfName := pick(*flagName, "NAME")

	if wsURL == "" {
		return errorf("--ws-url or WS_URL is required")
	}
	if apiURL == "" {
		return errorf("--api-url or API_URL is required")
	}
	if *flagChat != "" && *flagPeer != "" {
		return errorf("--chat and --peer are mutually exclusive")
	}

	if err := os.MkdirAll(*flagPprofDir, 0750); err != nil {
		return errorf("--pprof-dir: error create dir `%s`: %v", *flagPprofDir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := session.NewStore()
	backend := api.NewClient(apiURL, store.Token)

	sup := ws.NewSupervisor(ws.Config{
		Endpoint: wsURL,
		Channels: []ws.ChannelConf{
			{Name: chanStatus, Path: "/chat/onlineStatus"},
			{Name: chanChat, Path: "/chat"},
			{Name: chanGroup, Path: "/chat/groupCreate"},
		},
	})
	tracker := presence.NewTracker()
	binding := session.NewBinding(store, sup)

	var histCache *cache.History
	if *flagCacheFile != "" {
		var err error
		if histCache, err = cache.Open(*flagCacheFile); err != nil {
			return errorf("cache: %v", err)
		}
		defer histCache.Close()
	}

	// The credential store is external; its change signal is the updates
	// channel, fed at startup and on SIGHUP after an env reload.
	updates := make(chan string, 1)
	go binding.Run(ctx, updates)
	if tok := envToken(); tok != "" {
		updates <- tok
	} else {
		glog.Warning("no session token observed, channels stay idle until SIGHUP delivers one")
	}

	view, exitCode := openView(ctx, backend, sup, histCache, selfUid, selfName)
	if exitCode > 0 {
		return exitCode
	}

	go dispatch(ctx, sup, tracker, view)
	if view != nil {
		go composeLoop(view, sup)
	}

	if !*flagDisableMetrics {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{},
			))
			if err := http.ListenAndServe(*flagMetricsAddr, mux); err != nil {
				glog.Errorf("metrics: %v", err)
			}
		}()
	}

	glog.Infof("chatsync is running, pid %d", os.Getpid())
	glog.Infof("`kill -HUP %[1]d` to reload the credential; `kill -USR1 %[1]d` to dump goroutines; `kill -USR2 %[1]d` to start/stop profiler; `CTRL+c` to stop", os.Getpid())

	var prof *Profiler

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGTERM, syscall.SIGINT)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGHUP:
			if *flagEnvFile != "" {
				if err := godotenv.Overload(*flagEnvFile); err != nil {
					glog.Errorf("error reload env file `%s`: %v", *flagEnvFile, err)
					continue
				}
			}
			glog.Infof("credential reloaded from `%s`", *flagEnvFile)
			updates <- os.Getenv("TOKEN")
		case syscall.SIGUSR1:
			if prof != nil {
				prof.dumpGoroutines()
			}
		case syscall.SIGUSR2:
			if prof == nil {
				prof = StartProfiler(*flagPprofDir)
			} else {
				prof.Stop()
				prof = nil
			}
		case syscall.SIGTERM, syscall.SIGINT:
			glog.Infof("received signal `%s`, stopping", sig)
			if prof != nil {
				prof.Stop()
			}
			cancel()
			sup.Disconnect()
			glog.Info("chatsync exited")
			return 0
		}
	}
	return 0
}

// openView resolves the selected conversation, builds its view and
// primes it. Returns a nil view when no conversation was selected.
func openView(ctx context.Context, backend *api.Client, sup *ws.Supervisor, histCache *cache.History, selfUid, selfName string) (*chat.View, int) {
	chatId := *flagChat
	if *flagPeer != "" {
		var err error
		if chatId, err = backend.PrivateChatID(ctx, *flagPeer); err != nil {
			return nil, errorf("error resolve chat id for peer %s: %v", *flagPeer, err)
		}
		glog.Infof("resolved peer %s to chat %s", *flagPeer, chatId)
	}
	if chatId == "" {
		return nil, 0
	}

	conv := chat.NewConversation(chatId, selfUid, selfName, chatSender{sup}, chat.Config{})
	conf := chat.ViewConfig{
		Connected: func() bool { return sup.Connected(chanChat) },
	}
	if histCache != nil {
		conf.Cache = histCache
	}
	view := chat.NewView(conv, backend, conf)
	if err := view.Open(ctx); err != nil {
		glog.Errorf("error open chat %s: %v", chatId, err)
	}
	return view, 0
}

// dispatch is the single consumer of the supervisor's ordered event
// stream; presence updates and reconciliation therefore never run
// concurrently with each other.
func dispatch(ctx context.Context, sup *ws.Supervisor, tracker *presence.Tracker, view *chat.View) {
	var pollCancel context.CancelFunc
	defer func() {
		if pollCancel != nil {
			pollCancel()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sup.Events():
			switch ev.Channel {
			case chanStatus:
				if ev.Kind == ws.EventMessage {
					tracker.Apply(ev.Data)
				}
			case chanChat:
				switch ev.Kind {
				case ws.EventMessage:
					if view != nil {
						view.Conversation().ApplyEvent(ev.Data)
					}
				case ws.EventClosed:
					if view != nil {
						if pollCancel != nil {
							pollCancel()
						}
						pollCtx, cancel := context.WithCancel(ctx)
						pollCancel = cancel
						go view.RunPolling(pollCtx)
					}
				case ws.EventOpen:
					if pollCancel != nil {
						pollCancel()
						pollCancel = nil
					}
				}
			case chanGroup:
				if ev.Kind == ws.EventMessage {
					// Arbitrary JSON, forwarded as-is to whoever renders
					// the group list.
					glog.Infof("group event: %s", ev.Data)
				}
			}
		}
	}
}

// composeLoop reads lines from stdin and sends them into the open
// conversation. Composition is disabled while the chat channel is down,
// matching the disabled input of the UI.
func composeLoop(view *chat.View, sup *ws.Supervisor) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		content := strings.TrimSpace(scanner.Text())
		if content == "" {
			continue
		}
		if !sup.Connected(chanChat) {
			glog.Warning("chat channel is down, message not sent")
			continue
		}
		if _, err := view.Conversation().Send(content, ""); err != nil {
			glog.Errorf("error send message: %v", err)
		}
	}
}

// chatSender frames outbound conversation payloads on the chat channel.
type chatSender struct {
	sup *ws.Supervisor
}

func (s chatSender) Send(payload []byte) error {
	return s.sup.Send(chanChat, payload)
}

func errorf(format string, args ...interface{}) int {
	glog.Errorf(format, args...)
	return 1
}
