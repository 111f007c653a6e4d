// Package bottest поднимает фейковый Bot API телеграма для тестов
package bottest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const Token = "test-token"

// Сообщение, которое бот отправил через sendMessage
type Message struct {
	ChatID    int64
	Text      string
	ParseMode string
}

type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	messages []Message
	admins   []int64
	// Если true, sendMessage отвечает ошибкой
	failSend bool
	// Сообщения с этой подстрокой отклоняются
	reject string
}

func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)

	return s
}

// API возвращает клиента, который ходит в этот сервер
func (s *Server) API(t testing.TB) *tgbotapi.BotAPI {
	t.Helper()

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(Token, s.srv.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("create bot api: %v", err)
	}
	return api
}

func (s *Server) SetAdmins(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins = ids
}

func (s *Server) FailSend(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSend = fail
}

// RejectText заставляет sendMessage отклонять сообщения, в тексте которых есть substr
func (s *Server) RejectText(substr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = substr
}

func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	switch method {
	case "getMe":
		reply(w, map[string]any{"id": 1, "is_bot": true, "first_name": "NewsPulse", "username": "newspulse_bot"})
	case "sendMessage":
		s.sendMessage(w, r)
	case "getChatAdministrators":
		s.mu.Lock()
		admins := make([]map[string]any, 0, len(s.admins))
		for _, id := range s.admins {
			admins = append(admins, map[string]any{
				"user":   map[string]any{"id": id, "is_bot": false, "first_name": "admin"},
				"status": "administrator",
			})
		}
		s.mu.Unlock()
		reply(w, admins)
	default:
		replyError(w, "method not found")
	}
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	chatID, _ := strconv.ParseInt(r.PostForm.Get("chat_id"), 10, 64)

	s.mu.Lock()
	text := r.PostForm.Get("text")
	if s.failSend || (s.reject != "" && strings.Contains(text, s.reject)) {
		s.mu.Unlock()
		replyError(w, "Bad Request: can't parse entities")
		return
	}
	s.messages = append(s.messages, Message{
		ChatID:    chatID,
		Text:      text,
		ParseMode: r.PostForm.Get("parse_mode"),
	})
	id := len(s.messages)
	s.mu.Unlock()

	reply(w, map[string]any{
		"message_id": id,
		"date":       0,
		"chat":       map[string]any{"id": chatID, "type": "private"},
		"text":       text,
	})
}

func reply(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func replyError(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 400, "description": description})
}

// CommandUpdate собирает update с командой, как его присылает телеграм
func CommandUpdate(chatID, userID int64, text string) tgbotapi.Update {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i > 0 {
		cmdLen = i
	}

	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 1,
			From:      &tgbotapi.User{ID: userID, FirstName: "user"},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			Text:      text,
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
		},
	}
}
