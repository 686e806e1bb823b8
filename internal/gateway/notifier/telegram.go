package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"spotanalitics/internal/logger"
)

const (
	DefaultAPIBase = "https://api.telegram.org"
	sendAttempts   = 3
	pollTimeout    = 10 * time.Second
)

// Telegram 通过 Bot API 推送信号与平仓消息，并长轮询命令。
// ChatID 是启动时配置的默认接收方；命令回复走 SendTo。
type Telegram struct {
	BotToken string
	ChatID   string
	APIBase  string
	Client   *http.Client

	sleep func(time.Duration)
}

func NewTelegram(botToken, chatID, apiBase string) *Telegram {
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Telegram{
		BotToken: botToken,
		ChatID:   chatID,
		APIBase:  apiBase,
		Client:   &http.Client{Timeout: pollTimeout + 5*time.Second},
		sleep:    time.Sleep,
	}
}

func (t *Telegram) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIBase, t.BotToken, method)
}

// SendText 发送到默认会话。
func (t *Telegram) SendText(text string) error {
	return t.SendTo(t.ChatID, text)
}

// SendTo 发送文本消息（最多 3 次重试）
func (t *Telegram) SendTo(chatID, text string) error {
	if t.BotToken == "" || strings.TrimSpace(chatID) == "" {
		return errors.New("telegram: bot token or chat id missing")
	}
	body, err := json.Marshal(map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < sendAttempts; i++ {
		if i > 0 {
			t.pause(time.Duration(i) * time.Second)
		}
		req, err := http.NewRequest(http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.Client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return lastErr
}

func (t *Telegram) pause(d time.Duration) {
	if t.sleep != nil {
		t.sleep(d)
	}
}

// Update 一条来自用户的文本消息。
type Update struct {
	ID       int64
	ChatID   string
	Username string
	Text     string
}

// Command 返回小写命令名（去掉 @botname），非命令返回空串。
func (u Update) Command() string {
	fields := strings.Fields(u.Text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd := fields[0]
	if idx := strings.Index(cmd, "@"); idx > 0 {
		cmd = cmd[:idx]
	}
	return strings.ToLower(cmd)
}

// FetchUpdates 调用 getUpdates，offset 为上次最大 update_id + 1。
func (t *Telegram) FetchUpdates(ctx context.Context, offset int64, wait time.Duration) ([]Update, error) {
	q := url.Values{}
	q.Set("timeout", strconv.Itoa(int(wait.Seconds())))
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(offset, 10))
	}
	q.Set("allowed_updates", `["message"]`)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint("getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("telegram getUpdates status=%d", resp.StatusCode)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.Get("ok").Bool() {
		return nil, fmt.Errorf("telegram getUpdates: %s", doc.Get("description").String())
	}
	var out []Update
	doc.Get("result").ForEach(func(_, item gjson.Result) bool {
		msg := item.Get("message")
		out = append(out, Update{
			ID:       item.Get("update_id").Int(),
			ChatID:   msg.Get("chat.id").String(),
			Username: msg.Get("from.username").String(),
			Text:     msg.Get("text").String(),
		})
		return true
	})
	return out, nil
}

// Poll 长轮询直到 ctx 结束；handler 按顺序逐条处理。
func (t *Telegram) Poll(ctx context.Context, handle func(context.Context, Update)) error {
	var offset int64
	for {
		updates, err := t.FetchUpdates(ctx, offset, pollTimeout)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			logger.Warnf("telegram poll failed: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			if u.ID >= offset {
				offset = u.ID + 1
			}
			if u.ChatID == "" || u.Text == "" {
				continue
			}
			handle(ctx, u)
		}
	}
}
