// The demo server mocks the chat backend: the three websocket channels
// plus the handful of HTTP endpoints the client consumes. Everything is
// in memory. The query-string token doubles as the user id, so two
// clients started with different tokens can chat with each other.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/pborman/uuid"
)

var flagAddr = flag.String("addr", "127.0.0.1:8000", "server address, ip:port")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type message struct {
	Id        string    `json:"id"`
	OwnerId   string    `json:"ownerId"`
	ChatId    string    `json:"chatId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name,omitempty"`
	ReplyTo   string    `json:"replyTo,omitempty"`
}

type group struct {
	Id          string   `json:"id"`
	ChatName    string   `json:"chatName"`
	AllowedUser []string `json:"allowedUser"`
}

type server struct {
	mu      sync.Mutex
	status  map[*websocket.Conn]string // conn -> uid
	chats   map[*websocket.Conn]string
	groups  map[*websocket.Conn]string
	history map[string][]message // chatId -> messages
	pinned  map[string][]string  // chatId -> pinned message ids
	grouped []group
}

func newServer() *server {
	return &server{
		status:  make(map[*websocket.Conn]string),
		chats:   make(map[*websocket.Conn]string),
		groups:  make(map[*websocket.Conn]string),
		history: make(map[string][]message),
		pinned:  make(map[string][]string),
	}
}

// uid pulls the demo credential from the query string, the same place
// the real server reads the connection token from.
func uid(r *http.Request) string {
	return r.URL.RawQuery
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	user := uid(r)
	if user == "" {
		http.Error(w, "missing token", http.StatusForbidden)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Errorf("handleStatus(): upgrade error: %v", err)
		return
	}

	s.mu.Lock()
	s.status[conn] = user
	s.mu.Unlock()
	s.broadcastPresence()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.status, conn)
			s.mu.Unlock()
			conn.Close()
			s.broadcastPresence()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *server) broadcastPresence() {
	s.mu.Lock()
	defer s.mu.Unlock()

	online := make(map[string]struct{})
	for _, u := range s.status {
		online[u] = struct{}{}
	}
	ids := make([]string, 0, len(online))
	for u := range online {
		ids = append(ids, u)
	}
	sort.Strings(ids)

	payload, _ := json.Marshal(map[string][]string{"onlineUsersId": ids})
	for conn := range s.status {
		conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			glog.V(5).Infof("broadcastPresence(): write error: %v", err)
		}
	}
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	user := uid(r)
	if user == "" {
		http.Error(w, "missing token", http.StatusForbidden)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Errorf("handleChat(): upgrade error: %v", err)
		return
	}

	s.mu.Lock()
	s.chats[conn] = user
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.chats, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var in message
			if err := json.Unmarshal(data, &in); err != nil {
				glog.Errorf("handleChat(): bad client message: %v", err)
				continue
			}

			// Assign the authoritative id and echo to everyone on the
			// chat channel, sender included.
			out := message{
				Id:        uuid.New(),
				OwnerId:   user,
				ChatId:    in.ChatId,
				Content:   in.Content,
				Timestamp: time.Now(),
				Name:      "user " + user,
				ReplyTo:   in.ReplyTo,
			}
			s.mu.Lock()
			s.history[out.ChatId] = append(s.history[out.ChatId], out)
			payload, _ := json.Marshal(&out)
			for c := range s.chats {
				c.SetWriteDeadline(time.Now().Add(3 * time.Second))
				_ = c.WriteMessage(websocket.TextMessage, payload)
			}
			s.mu.Unlock()
		}
	}()
}

func (s *server) handleGroupChannel(w http.ResponseWriter, r *http.Request) {
	user := uid(r)
	if user == "" {
		http.Error(w, "missing token", http.StatusForbidden)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Errorf("handleGroupChannel(): upgrade error: %v", err)
		return
	}

	s.mu.Lock()
	s.groups[conn] = user
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.groups, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *server) handleUsers(w http.ResponseWriter, r *http.Request) {
	type user struct {
		Uid  string `json:"uid"`
		Name string `json:"name"`
	}

	s.mu.Lock()
	seen := make(map[string]struct{})
	users := []user{}
	for _, u := range s.status {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			users = append(users, user{Uid: u, Name: "user " + u})
		}
	}
	s.mu.Unlock()

	sort.Slice(users, func(i, j int) bool { return users[i].Uid < users[j].Uid })
	writeJSON(w, users)
}

func (s *server) handlePrivate(w http.ResponseWriter, r *http.Request) {
	self := bearer(r)
	peer := strings.TrimPrefix(r.URL.Path, "/chat/private/")
	pair := []string{self, peer}
	sort.Strings(pair)
	writeJSON(w, map[string]string{"chatId": "dm-" + pair[0] + "-" + pair[1]})
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	chatId := strings.TrimPrefix(r.URL.Path, "/chat/history/")
	s.mu.Lock()
	msgs := append([]message{}, s.history[chatId]...)
	s.mu.Unlock()
	writeJSON(w, msgs)
}

func (s *server) handlePinned(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/chat/pinned/")
	parts := strings.SplitN(rest, "/", 2)
	chatId := parts[0]

	if r.Method == http.MethodPatch && len(parts) == 2 {
		s.mu.Lock()
		s.pinned[chatId] = append(s.pinned[chatId], parts[1])
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.mu.Lock()
	ids := make(map[string]struct{})
	for _, id := range s.pinned[chatId] {
		ids[id] = struct{}{}
	}
	msgs := []message{}
	for _, m := range s.history[chatId] {
		if _, ok := ids[m.Id]; ok {
			msgs = append(msgs, m)
		}
	}
	s.mu.Unlock()
	writeJSON(w, msgs)
}

func (s *server) handleGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var g group
		if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		g.Id = uuid.New()

		s.mu.Lock()
		s.grouped = append(s.grouped, g)
		payload, _ := json.Marshal(&g)
		for conn := range s.groups {
			conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
			_ = conn.WriteMessage(websocket.TextMessage, payload)
		}
		s.mu.Unlock()

		writeJSON(w, g)
		return
	}

	s.mu.Lock()
	groups := append([]group{}, s.grouped...)
	s.mu.Unlock()
	writeJSON(w, groups)
}

func (s *server) handleJoin(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/chat/group/")
	groupId := strings.TrimSuffix(rest, "/join")
	user := bearer(r)
	if r.Method != http.MethodPost || groupId == rest || user == "" {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	for i := range s.grouped {
		if s.grouped[i].Id == groupId {
			s.grouped[i].AllowedUser = append(s.grouped[i].AllowedUser, user)
			break
		}
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Errorf("writeJSON(): %v", err)
	}
}

func main() {
	flag.Parse()
	defer glog.Flush()

	s := newServer()

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/onlineStatus", s.handleStatus)
	mux.HandleFunc("/chat/groupCreate", s.handleGroupChannel)
	mux.HandleFunc("/chat/private/", s.handlePrivate)
	mux.HandleFunc("/chat/history/", s.handleHistory)
	mux.HandleFunc("/chat/pinned/", s.handlePinned)
	mux.HandleFunc("/chat/group", s.handleGroups)
	mux.HandleFunc("/chat/group/", s.handleJoin)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/user", s.handleUsers)

	glog.Infof("demo chat server listening on %s", *flagAddr)
	if err := http.ListenAndServe(*flagAddr, mux); err != nil {
		glog.Exitf("ListenAndServe: %v", err)
	}
}
