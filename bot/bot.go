// Package bot drives the Telegram conversation that registers real estate
// agencies: photo collection, analysis, confirmation, location and the final
// write to the database.
package bot

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/StartupEmbassy/AgencyAtlas/config"
	"github.com/StartupEmbassy/AgencyAtlas/handlers/middleware"
	"github.com/StartupEmbassy/AgencyAtlas/reconcile"
	"github.com/StartupEmbassy/AgencyAtlas/repository"
	"github.com/StartupEmbassy/AgencyAtlas/session"
	"github.com/StartupEmbassy/AgencyAtlas/urlcheck"
	"github.com/StartupEmbassy/AgencyAtlas/vision"
)

const (
	noticeTTL       = 5 * time.Second
	handlerTimeout  = 30 * time.Second
	analysisTimeout = 5 * time.Minute
	sessionMaxAge   = 30 * time.Minute
)

type UserDirectory interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*repository.User, error)
	Create(ctx context.Context, user *repository.User) error
	SetStatus(ctx context.Context, telegramID int64, status repository.Status) error
	ListAdmins(ctx context.Context) ([]repository.User, error)
}

type EstateWriter interface {
	CreateRealEstate(ctx context.Context, estate *repository.RealEstate) error
	CreateListing(ctx context.Context, listing *repository.Listing) error
	CreateContactInfo(ctx context.Context, contact *repository.ContactInfo) error
}

type PhotoUploader interface {
	UploadPhoto(ctx context.Context, photo []byte) (string, error)
}

type PhotoAnalyzer interface {
	AnalyzeAll(ctx context.Context, imageURLs []string) []vision.Analysis
}

type URLChecker interface {
	ValidateQR(ctx context.Context, payload string) urlcheck.QRResult
	ValidatePage(ctx context.Context, rawURL, businessName string) urlcheck.PageMatch
}

type TBot struct {
	Bot      *tele.Bot
	log      *zap.Logger
	users    UserDirectory
	estates  EstateWriter
	photos   PhotoUploader
	analyzer PhotoAnalyzer
	urls     URLChecker
	sessions *session.Store
	rules    reconcile.Rules

	adminLogChatID int64

	// swapped out in tests, the real one downloads from Telegram
	fetchPhoto func(fileID string) ([]byte, error)
	fileURL    func(fileID string) (string, error)
}

func New(
	cfg *config.Config,
	log *zap.Logger,
	users UserDirectory,
	estates EstateWriter,
	photos PhotoUploader,
	analyzer PhotoAnalyzer,
	urls URLChecker,
	sessions *session.Store,
) (*TBot, error) {
	b := &TBot{
		log:      log,
		users:    users,
		estates:  estates,
		photos:   photos,
		analyzer: analyzer,
		urls:     urls,
		sessions: sessions,
		rules: reconcile.Rules{
			QRMinLength:    cfg.Rules.QRMinLength,
			PhoneMinDigits: cfg.Rules.PhoneMinDigits,
		},
		adminLogChatID: cfg.Telegram.AdminLogChatID,
	}

	tb, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.PollTimeout},
		OnError: func(err error, c tele.Context) {
			if c != nil {
				log.Error("handler failed", zap.Any("update", c.Update()), zap.Error(err))
			} else {
				log.Error("handler failed", zap.Error(err))
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telebot init: %w", err)
	}
	b.Bot = tb
	b.fetchPhoto = b.downloadPhoto
	b.fileURL = b.telegramFileURL

	tb.Use(middleware.Recover(log.Named("recover")))
	tb.Use(middleware.AutoRespondCallback)
	tb.Use(b.requireApproved)

	tb.Handle("/start", b.handleStart)
	tb.Handle(tele.OnPhoto, b.handlePhoto)
	tb.Handle(tele.OnText, b.handleText)
	tb.Handle(tele.OnLocation, b.handleLocation)

	tb.Handle(&btnPhotosDone, b.handlePhotosDone)
	tb.Handle(&btnRetry, b.handleRetryAnalysis)
	tb.Handle(&btnManualInput, b.handleManualInput)
	tb.Handle(&btnConfirmName, b.handleConfirmName)
	tb.Handle(&btnRejectName, b.handleRejectName)
	tb.Handle(&btnConfirmInfo, b.handleConfirmInfo)
	tb.Handle(&btnFinalOK, b.handleFinalConfirm)
	tb.Handle(&btnCancel, b.handleCancel)

	tb.Handle("/approve", b.handleApproveCommand)
	tb.Handle("/reject", b.handleRejectCommand)
	tb.Handle(&btnApproveUser, b.handleApproveUser)
	tb.Handle(&btnRejectUser, b.handleRejectUser)
	tb.Handle(&btnLaterUser, b.handleLaterUser)

	return b, nil
}

// Start blocks on the poller. The sweeper expires abandoned drafts so a
// half-finished registration does not pin its chat forever.
func (b *TBot) Start() {
	go b.sweepSessions()
	b.Bot.Start()
}

func (b *TBot) sweepSessions() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		for chatID, messageIDs := range b.sessions.Sweep(sessionMaxAge) {
			b.deleteMessages(chatID, messageIDs)
			b.notifyChat(chatID, msgSessionAged)
			b.log.Info("expired stale draft", zap.Int64("chat", chatID))
		}
	}
}

func (b *TBot) telegramFileURL(fileID string) (string, error) {
	file, err := b.Bot.FileByID(fileID)
	if err != nil {
		return "", fmt.Errorf("file %s: %w", fileID, err)
	}
	return b.Bot.URL + "/file/bot" + b.Bot.Token + "/" + file.FilePath, nil
}

func (b *TBot) downloadPhoto(fileID string) ([]byte, error) {
	rc, err := b.Bot.File(&tele.File{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// sendTracked remembers the message id on the session so a later cleanup
// can wipe the whole conversation.
func (b *TBot) sendTracked(sess *session.Session, what interface{}, opts ...interface{}) {
	msg, err := b.Bot.Send(tele.ChatID(sess.ChatID), what, opts...)
	if err != nil {
		b.log.Warn("send failed", zap.Int64("chat", sess.ChatID), zap.Error(err))
		return
	}
	sess.Lock()
	sess.TrackBotMessage(msg.ID)
	sess.Unlock()
}

// notifyChat sends a short-lived notice that removes itself.
func (b *TBot) notifyChat(chatID int64, text string) {
	msg, err := b.Bot.Send(tele.ChatID(chatID), text)
	if err != nil {
		b.log.Warn("notice failed", zap.Int64("chat", chatID), zap.Error(err))
		return
	}
	go func() {
		time.Sleep(noticeTTL)
		_ = b.Bot.Delete(msg)
	}()
}

func (b *TBot) deleteMessages(chatID int64, messageIDs []int) {
	for _, id := range messageIDs {
		stored := tele.StoredMessage{MessageID: strconv.Itoa(id), ChatID: chatID}
		if err := b.Bot.Delete(stored); err != nil {
			b.log.Debug("delete failed", zap.Int64("chat", chatID), zap.Int("message", id), zap.Error(err))
		}
	}
}

type gateVerdict struct {
	user  *repository.User
	allow bool
	fresh bool
	reply string
}

// gateUser resolves the sender against the user directory, provisioning a
// pending account on first contact. A create that loses the race to a
// concurrent update re-reads instead of failing.
func (b *TBot) gateUser(ctx context.Context, telegramID int64, username string) gateVerdict {
	user, err := b.users.GetByTelegramID(ctx, telegramID)
	switch {
	case err == nil:
	case err == repository.ErrNotFound:
		fresh := &repository.User{
			ID:         uuid.NewString(),
			TelegramID: telegramID,
			Username:   username,
			Role:       repository.RoleUser,
			Status:     repository.StatusPending,
			CreatedAt:  time.Now(),
		}
		createErr := b.users.Create(ctx, fresh)
		if createErr == repository.ErrAlreadyExists {
			user, err = b.users.GetByTelegramID(ctx, telegramID)
			if err != nil {
				b.log.Error("re-fetch after create race", zap.Int64("telegram_id", telegramID), zap.Error(err))
				return gateVerdict{reply: msgAuthError}
			}
			break
		}
		if createErr != nil {
			b.log.Error("provisioning user", zap.Int64("telegram_id", telegramID), zap.Error(createErr))
			return gateVerdict{reply: msgAuthError}
		}
		return gateVerdict{user: fresh, fresh: true, reply: msgWelcomePending}
	default:
		b.log.Error("looking up user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return gateVerdict{reply: msgAuthError}
	}

	switch user.Status {
	case repository.StatusApproved:
		return gateVerdict{user: user, allow: true}
	case repository.StatusRejected:
		return gateVerdict{user: user, reply: msgAccountRejected}
	default:
		return gateVerdict{user: user, reply: msgAccountPending}
	}
}

// welcomeCommand matches /start in its bare, argument and @botname forms.
func welcomeCommand(text string) bool {
	return text == "/start" || strings.HasPrefix(text, "/start ") || strings.HasPrefix(text, "/start@")
}

func (b *TBot) requireApproved(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Sender() == nil {
			return nil
		}
		// /start stays open so a stranger can knock
		if msg := c.Message(); msg != nil && welcomeCommand(msg.Text) {
			return next(c)
		}
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		verdict := b.gateUser(ctx, c.Sender().ID, c.Sender().Username)
		if verdict.fresh {
			b.notifySignup(ctx, c.Sender())
		}
		if !verdict.allow {
			if verdict.reply != "" {
				return c.Send(verdict.reply)
			}
			return nil
		}
		return next(c)
	}
}

// notifySignup tells every admin about a fresh signup, with inline buttons
// to settle it in place.
func (b *TBot) notifySignup(ctx context.Context, sender *tele.User) {
	text := fmt.Sprintf(msgNewUserFmt, displayName(sender), sender.ID)
	markup := adminReviewMarkup(strconv.FormatInt(sender.ID, 10))

	recipients := make(map[int64]bool)
	admins, err := b.users.ListAdmins(ctx)
	if err != nil {
		b.log.Error("listing admins", zap.Error(err))
	}
	for _, admin := range admins {
		recipients[admin.TelegramID] = true
	}
	if b.adminLogChatID != 0 {
		recipients[b.adminLogChatID] = true
	}
	for chatID := range recipients {
		if _, err := b.Bot.Send(tele.ChatID(chatID), text, markup); err != nil {
			b.log.Warn("notifying admin", zap.Int64("chat", chatID), zap.Error(err))
		}
	}
}

func displayName(u *tele.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if u.Username != "" {
		name += " @" + u.Username
	}
	return name
}
