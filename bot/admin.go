package bot

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/StartupEmbassy/AgencyAtlas/repository"
)

// requireAdmin resolves the sender and checks the admin role. The gate
// middleware already guarantees an approved account.
func (b *TBot) requireAdmin(ctx context.Context, c tele.Context) (*repository.User, bool) {
	user, err := b.users.GetByTelegramID(ctx, c.Sender().ID)
	if err != nil {
		b.log.Error("admin lookup", zap.Int64("telegram_id", c.Sender().ID), zap.Error(err))
		return nil, false
	}
	if !user.IsAdmin() {
		return nil, false
	}
	return user, true
}

func (b *TBot) settleUser(ctx context.Context, targetID int64, status repository.Status) error {
	if err := b.users.SetStatus(ctx, targetID, status); err != nil {
		return err
	}
	notice := msgSignupApproved
	if status == repository.StatusRejected {
		notice = msgSignupRejected
	}
	if _, err := b.Bot.Send(tele.ChatID(targetID), notice); err != nil {
		b.log.Warn("notifying settled user", zap.Int64("telegram_id", targetID), zap.Error(err))
	}
	return nil
}

func (b *TBot) handleSettleCommand(c tele.Context, status repository.Status, usage, doneFmt string) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if _, ok := b.requireAdmin(ctx, c); !ok {
		return c.Send(msgNotAdmin)
	}
	args := c.Args()
	if len(args) < 1 {
		return c.Send(usage)
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Send(usage)
	}
	if err := b.settleUser(ctx, targetID, status); err != nil {
		b.log.Error("settling user", zap.Int64("target", targetID), zap.Error(err))
		return c.Send(msgGenericError)
	}
	return c.Send(fmt.Sprintf(doneFmt, targetID))
}

func (b *TBot) handleApproveCommand(c tele.Context) error {
	return b.handleSettleCommand(c, repository.StatusApproved, msgApproveUsage, msgUserApprovedFmt)
}

func (b *TBot) handleRejectCommand(c tele.Context) error {
	return b.handleSettleCommand(c, repository.StatusRejected, msgRejectUsage, msgUserRejectedFmt)
}

func (b *TBot) handleSettleCallback(c tele.Context, status repository.Status, doneFmt string) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if _, ok := b.requireAdmin(ctx, c); !ok {
		return c.Send(msgNotAdmin)
	}
	args := c.Args()
	if len(args) < 1 {
		return nil
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil
	}
	if err := b.settleUser(ctx, targetID, status); err != nil {
		b.log.Error("settling user", zap.Int64("target", targetID), zap.Error(err))
		return c.Send(msgGenericError)
	}
	// drop the buttons so the signup cannot be settled twice by accident
	return c.Edit(c.Message().Text + "\n\n" + fmt.Sprintf(doneFmt, targetID))
}

func (b *TBot) handleApproveUser(c tele.Context) error {
	return b.handleSettleCallback(c, repository.StatusApproved, msgUserApprovedFmt)
}

func (b *TBot) handleRejectUser(c tele.Context) error {
	return b.handleSettleCallback(c, repository.StatusRejected, msgUserRejectedFmt)
}

func (b *TBot) handleLaterUser(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if _, ok := b.requireAdmin(ctx, c); !ok {
		return c.Send(msgNotAdmin)
	}
	return c.Respond(&tele.CallbackResponse{Text: msgReviewLater})
}
