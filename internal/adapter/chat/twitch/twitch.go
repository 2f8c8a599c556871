package twitch

import (
	"GroupMeBot/internal/app/relay"
	"GroupMeBot/internal/service/gate"
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"go.uber.org/zap"
)

// MaxMessageLength — ограничение Twitch на длину сообщения в чате.
const MaxMessageLength = 500

const spamWindow = 5 * time.Second

// Config хранит параметры подключения к Twitch IRC.
type Config struct {
	Username string
	OAuth    string // может быть с/без префикса oauth:
	Channel  string // без #, регистр не важен
}

// GroupID — ключ истории для канала Twitch.
func GroupID(channel string) string { return "twitch:" + channel }

var urlRe = regexp.MustCompile(`https?://[^\s]+`)

// filter превращает сообщения чата в события для gate.
// Сообщения от собственного логина помечаются как бот, повтор того же текста
// от пользователя в пределах spamWindow отбрасывается.
type filter struct {
	self    string
	channel string

	mu         sync.Mutex
	lastByUser map[string]lastMsg
}

type lastMsg struct {
	text string
	at   time.Time
}

func newFilter(self, channel string) *filter {
	return &filter{self: self, channel: channel, lastByUser: map[string]lastMsg{}}
}

func (f *filter) toEvent(user, text string, now time.Time) (gate.Event, bool) {
	user = strings.TrimSpace(user)
	// Вырезаем URL
	text = strings.TrimSpace(urlRe.ReplaceAllString(text, ""))
	if user == "" {
		return gate.Event{}, false
	}

	senderType := "user"
	if strings.EqualFold(user, f.self) {
		senderType = "bot"
	}

	key := strings.ToLower(user)
	f.mu.Lock()
	lm, seen := f.lastByUser[key]
	dup := seen && text != "" && lm.text == text && now.Sub(lm.at) <= spamWindow
	if !dup {
		f.lastByUser[key] = lastMsg{text: text, at: now}
	}
	f.mu.Unlock()
	if dup {
		return gate.Event{}, false
	}

	return gate.Event{SenderType: senderType, Name: user, Text: text, GroupID: GroupID(f.channel)}, true
}

// Run подключается к чату и отвечает на сообщения через rl. Если мост не настроен — сразу возвращает nil.
// Базовые реконнекты обеспечиваются клиентом; функция завершается по отмене ctx.
func Run(ctx context.Context, logger *zap.SugaredLogger, cfg Config, rl *relay.Relay) error {
	if rl == nil {
		return nil
	}
	username := strings.ToLower(strings.TrimSpace(cfg.Username))
	token := strings.TrimSpace(cfg.OAuth)
	channel := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "#"))
	if username == "" || token == "" || channel == "" {
		logger.Infow("Twitch bridge disabled", "username", username != "", "token", token != "", "channel", channel != "")
		return nil
	}
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	client := twitchirc.NewClient(username, token)
	flt := newFilter(username, channel)
	say := newSender(client.Say, channel)
	// ответы, которые ещё ждут модель, дожидаемся перед выходом
	var inflight pending
	defer inflight.close()

	client.OnConnect(func() {
		logger.Infow("Twitch connected", "as", username, "join", channel)
		client.Join(channel)
	})

	client.OnPrivateMessage(func(msg twitchirc.PrivateMessage) {
		ev, ok := flt.toEvent(msg.User.Name, msg.Message, time.Now())
		if !ok {
			return
		}
		// не блокируем цикл чтения IRC на время запроса к модели
		if !inflight.add() {
			return
		}
		go func() {
			defer inflight.done()
			rl.Handle(ctx, gate.Decide(ev), say)
		}()
	})

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect() }()

	select {
	case <-ctx.Done():
		// сначала дописываем ответы на принятые сообщения, пока соединение живо
		inflight.close()
		_ = client.Disconnect()
		// Подождём чуть-чуть корректного завершения
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
		}
		return context.Canceled
	case err := <-errCh:
		if err != nil {
			logger.Errorw("twitch connect error", "error", err)
		}
		return err
	}
}

// pending считает запущенные обработчики. После close новые не принимаются,
// а сам close ждёт уже запущенные.
type pending struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func (p *pending) add() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.wg.Add(1)
	return true
}

func (p *pending) done() { p.wg.Done() }

func (p *pending) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

// newSender отправляет ответ построчно: перевод строки внутри PRIVMSG
// библиотека не экранирует, и IRC-сервер принял бы остаток как отдельную команду.
func newSender(say func(channel, text string), channel string) relay.Sender {
	return relay.SenderFunc(func(_ context.Context, text string) error {
		for _, line := range splitLines(text) {
			say(channel, truncate(line, MaxMessageLength))
		}
		return nil
	})
}

// splitLines режет текст по \r и \n, пустые строки отбрасываются.
func splitLines(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == '\r' || r == '\n' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
