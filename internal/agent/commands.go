package agent

import (
	"context"
	"strconv"

	"spotanalitics/internal/gateway/notifier"
	"spotanalitics/internal/logger"
	"spotanalitics/internal/store"
)

// HandleCommand 处理 Telegram 命令，回复发往发起命令的会话。
func (s *LiveService) HandleCommand(ctx context.Context, u notifier.Update) {
	cmd := u.Command()
	if cmd == "" {
		return
	}
	reply, err := s.commandReply(ctx, cmd, u)
	if err != nil {
		logger.Warnf("command %s from chat %s failed: %v", cmd, u.ChatID, err)
		reply = "Command failed, try again later."
	}
	if err := s.replier.SendTo(u.ChatID, reply); err != nil {
		logger.Warnf("reply to chat %s failed: %v", u.ChatID, err)
		s.metrics.NotifyFailed()
	}
}

func (s *LiveService) commandReply(ctx context.Context, cmd string, u notifier.Update) (string, error) {
	switch cmd {
	case "/start":
		chatID, err := strconv.ParseInt(u.ChatID, 10, 64)
		if err != nil {
			return "", err
		}
		if err := s.store.UpsertUser(ctx, store.User{
			ChatID:      chatID,
			Username:    u.Username,
			RiskProfile: s.profile(),
		}); err != nil {
			return "", err
		}
		logger.Infof("user registered chat=%d username=%s", chatID, u.Username)
		return welcomeText(u.Username), nil
	case "/status":
		open, err := s.store.AllOpen(ctx)
		if err != nil {
			return "", err
		}
		return StatusMessage(open), nil
	case "/stats":
		summary, _, err := s.Stats(ctx)
		if err != nil {
			return "", err
		}
		return StatsMessage(summary), nil
	case "/help":
		return helpText, nil
	default:
		return "Unknown command.\n" + helpText, nil
	}
}
