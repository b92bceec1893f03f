package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/StartupEmbassy/AgencyAtlas/reconcile"
	"github.com/StartupEmbassy/AgencyAtlas/session"
	"github.com/StartupEmbassy/AgencyAtlas/urlcheck"
	"github.com/StartupEmbassy/AgencyAtlas/vision"
)

// resetSession abandons whatever the chat was doing and hands back the
// message ids whose deletion is now due. Works from any step.
func (b *TBot) resetSession(sess *session.Session) []int {
	sess.Lock()
	defer sess.Unlock()
	ids := sess.DrainMessageIDs()
	sess.Clear()
	return ids
}

// handleStart is reachable without approval: everyone gets the welcome, only
// approved users get a fresh draft, everyone else learns where their request
// stands.
func (b *TBot) handleStart(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	verdict := b.gateUser(ctx, c.Sender().ID, c.Sender().Username)
	if verdict.fresh {
		b.notifySignup(ctx, c.Sender())
	}
	if !verdict.allow {
		if err := c.Send(msgWelcome); err != nil {
			return err
		}
		if verdict.reply != "" {
			return c.Send(verdict.reply)
		}
		return nil
	}

	sess := b.sessions.Get(c.Chat().ID)
	b.deleteMessages(c.Chat().ID, b.resetSession(sess))
	sess.Lock()
	sess.Step = session.StepCollectingPhotos
	sess.Draft = session.NewDraft()
	sess.Unlock()
	return c.Send(msgWelcome)
}

func (b *TBot) handlePhoto(c tele.Context) error {
	sess := b.sessions.Get(c.Chat().ID)
	sess.Lock()
	switch sess.Step {
	case session.StepIdle, session.StepCollectingPhotos:
		if sess.Draft == nil {
			sess.Draft = session.NewDraft()
		}
		sess.Step = session.StepCollectingPhotos
		sess.Draft.Photos = append(sess.Draft.Photos, session.Photo{FileID: c.Message().Photo.FileID})
		sess.Draft.Touch()
		sess.TrackUserMessage(c.Message().ID)
		count := len(sess.Draft.Photos)
		sess.Unlock()
		b.sendTracked(sess, fmt.Sprintf(msgPhotoReceivedFmt, count), collectingMarkup())
		return nil
	default:
		sess.Unlock()
		// a stray photo mid-flow is removed to keep the chat readable
		_ = b.Bot.Delete(c.Message())
		b.notifyChat(c.Chat().ID, msgPhotoWrongStep)
		return nil
	}
}

func (b *TBot) handlePhotosDone(c tele.Context) error {
	sess := b.sessions.Get(c.Chat().ID)
	sess.Lock()
	if sess.Step != session.StepCollectingPhotos || sess.Draft == nil || len(sess.Draft.Photos) == 0 {
		sess.Unlock()
		return c.Respond(&tele.CallbackResponse{Text: msgNoPhotosYet})
	}
	epoch := sess.Epoch
	fileIDs := make([]string, len(sess.Draft.Photos))
	for i, p := range sess.Draft.Photos {
		fileIDs[i] = p.FileID
	}
	sess.Unlock()

	b.sendTracked(sess, fmt.Sprintf(msgAnalyzingFmt, len(fileIDs)))
	// analysis takes a while, the poller keeps serving other chats
	go b.runAnalysis(sess, epoch, fileIDs)
	return nil
}

func (b *TBot) handleRetryAnalysis(c tele.Context) error {
	return b.handlePhotosDone(c)
}

var errStale = errors.New("analysis superseded by a newer draft")

// applyAnalyses attaches per-photo results to the draft and merges them.
// A draft cancelled while the analysis was in flight is left untouched.
func applyAnalyses(sess *session.Session, epoch uint64, analyses []vision.Analysis, rules reconcile.Rules) (*reconcile.Result, error) {
	sess.Lock()
	defer sess.Unlock()
	if sess.Epoch != epoch || sess.Draft == nil {
		return nil, errStale
	}
	for i := range analyses {
		if i < len(sess.Draft.Photos) {
			a := analyses[i]
			sess.Draft.Photos[i].Analysis = &a
		}
	}
	res, err := reconcile.Merge(sess.Draft.Photos, rules)
	if err != nil {
		return nil, err
	}
	sess.Draft.Name = res.Name
	sess.Draft.Contact = res.Contact
	sess.Draft.Touch()
	return res, nil
}

func (b *TBot) runAnalysis(sess *session.Session, epoch uint64, fileIDs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	urls := make([]string, len(fileIDs))
	for i, id := range fileIDs {
		url, err := b.fileURL(id)
		if err != nil {
			b.log.Warn("resolving photo URL", zap.String("file", id), zap.Error(err))
			continue
		}
		urls[i] = url
	}
	analyses := b.analyzer.AnalyzeAll(ctx, urls)

	allFailed := true
	for _, a := range analyses {
		if !a.Err {
			allFailed = false
			break
		}
	}
	if allFailed && len(analyses) > 0 {
		if sess.StillOn(epoch) {
			b.sendTracked(sess, fmt.Sprintf(msgAnalysisErrorFmt, analyses[0].ErrMessage), analysisErrorMarkup())
		}
		return
	}

	res, err := applyAnalyses(sess, epoch, analyses, b.rules)
	if err != nil {
		if errors.Is(err, errStale) {
			return
		}
		if errors.Is(err, reconcile.ErrNoMainPhoto) {
			b.sendTracked(sess, msgNoMainPhoto, analysisErrorMarkup())
			return
		}
		b.sendTracked(sess, fmt.Sprintf(msgAnalysisErrorFmt, err), analysisErrorMarkup())
		return
	}

	b.sendTracked(sess, msgValidatingURLs)
	qrs, best := b.resolveLinks(ctx, res.Name, res.QRs, analyses)

	sess.Lock()
	if sess.Epoch != epoch || sess.Draft == nil {
		sess.Unlock()
		return
	}
	sess.Draft.QRs = qrs
	sess.Draft.WebURL = best
	if res.Name == "" {
		sess.Step = session.StepWaitingName
		sess.Unlock()
		b.sendTracked(sess, msgAskName, cancelMarkup())
		return
	}
	sess.Step = session.StepWaitingConfirmation
	summary := formatSummary(sess.Draft)
	sess.Unlock()
	b.sendTracked(sess, summary, confirmMarkup())
}

// resolveLinks grades every QR payload and detected URL, crawling each
// unique candidate once, and picks the site most likely to belong to the
// agency. Payloads that fail validation are dropped here, nothing downstream
// rechecks them.
func (b *TBot) resolveLinks(ctx context.Context, name string, rawQRs []reconcile.QR, analyses []vision.Analysis) ([]session.QR, string) {
	var qrs []session.QR
	var candidates []reconcile.URLCandidate
	seen := make(map[string]bool)
	addCandidate := func(url string, confidence float64) {
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		page := b.urls.ValidatePage(ctx, url, name)
		candidates = append(candidates, reconcile.URLCandidate{URL: url, Confidence: confidence, Page: &page})
	}

	for _, raw := range rawQRs {
		verdict := b.urls.ValidateQR(ctx, raw.Data)
		if !verdict.IsValid {
			continue
		}
		item := session.QR{Data: raw.Data, FileID: raw.FileID}
		if verdict.Source == urlcheck.SourceQR {
			item.URL = verdict.URL
			addCandidate(verdict.URL, verdict.Confidence)
		}
		qrs = append(qrs, item)
	}
	for _, a := range analyses {
		if a.Err || a.WebURL == "" {
			continue
		}
		addCandidate(urlcheck.CleanURL(a.WebURL), a.Confidence)
	}
	return qrs, reconcile.BestURL(candidates, name)
}

func (b *TBot) handleText(c tele.Context) error {
	sess := b.sessions.Get(c.Chat().ID)
	sess.Lock()
	if sess.Step != session.StepWaitingName || sess.Draft == nil {
		sess.Unlock()
		b.notifyChat(c.Chat().ID, msgFollowTheFlow)
		return nil
	}
	name := strings.TrimSpace(c.Text())
	if name == "" {
		sess.Unlock()
		return nil
	}
	sess.Draft.Name = name
	sess.Draft.Touch()
	sess.TrackUserMessage(c.Message().ID)
	sess.Unlock()
	b.sendTracked(sess, fmt.Sprintf(msgConfirmNameFmt, name), nameMarkup())
	return nil
}

func (b *TBot) handleConfirmName(c tele.Context) error {
	sess := b.sessions.Get(c.Chat().ID)
	sess.Lock()
	if sess.Step != session.StepWaitingName || sess.Draft == nil || sess.Draft.Name == "" {
		sess.Unlock()
		return nil
	}
	sess.Step = session.StepWaitingLocation
	sess.Unlock()
	b.sendTracked(sess, msgAskLocation, locationMarkup())
	return nil
}

func (b *TBot) handleRejectName(c tele.Context) error {
	sess := b.sessions.Get(c.Chat().ID)
	sess.Lock()
	if sess.Step != session.StepWaitingName || sess.Draft == nil {
		sess.Unlock()
		return nil
	}
	sess.Draft.Name = ""
	sess.Unlock()
	b.sendTracked(sess, msgRetryName, cancelMarkup())
	return nil
}

// handleManualInput lets the operator carry on after a failed analysis by
// typing the data in.
func (b *TBot) handleManualInput(c tele.Context) error {
	sess := b.sessions.Get(c.Chat().ID)
	sess.Lock()
	if sess.Draft == nil {
		sess.Unlock()
		return nil
	}
	sess.Step = session.StepWaitingName
	sess.Unlock()
	b.sendTracked(sess, msgAskName, cancelMarkup())
	return nil
}

func (b *TBot) handleConfirmInfo(c tele.Context) error {
	sess := b.sessions.Get(c.Chat().ID)
	sess.Lock()
	if sess.Step != session.StepWaitingConfirmation || sess.Draft == nil {
		sess.Unlock()
		return nil
	}
	sess.Step = session.StepWaitingLocation
	sess.Unlock()
	b.sendTracked(sess, msgAskLocation, locationMarkup())
	return nil
}

func (b *TBot) handleLocation(c tele.Context) error {
	loc := c.Message().Location
	sess := b.sessions.Get(c.Chat().ID)
	sess.Lock()
	if sess.Step != session.StepWaitingLocation || sess.Draft == nil {
		sess.Unlock()
		b.notifyChat(c.Chat().ID, msgLocationWrongStep)
		return nil
	}
	sess.Draft.Location = &session.Location{Latitude: float64(loc.Lat), Longitude: float64(loc.Lng)}
	sess.Draft.Touch()
	sess.Step = session.StepWaitingFinalConfirm
	sess.TrackUserMessage(c.Message().ID)
	summary := formatSummary(sess.Draft)
	sess.Unlock()
	b.sendTracked(sess, msgLocationOK, &tele.ReplyMarkup{RemoveKeyboard: true})
	b.sendTracked(sess, summary, finalMarkup())
	return nil
}

func (b *TBot) handleFinalConfirm(c tele.Context) error {
	sess := b.sessions.Get(c.Chat().ID)
	sess.Lock()
	if sess.Step != session.StepWaitingFinalConfirm || sess.Draft == nil {
		sess.Unlock()
		return nil
	}
	draft := sess.Draft
	epoch := sess.Epoch
	sess.Unlock()

	b.sendTracked(sess, msgSaving)
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	report, err := b.persistDraft(ctx, c.Sender().ID, draft)
	if err != nil {
		b.log.Error("persisting registration", zap.Int64("chat", c.Chat().ID), zap.Error(err))
		b.sendTracked(sess, msgSaveError, finalMarkup())
		return nil
	}
	if report.Warnings != nil {
		b.log.Warn("registration saved with partial failures",
			zap.String("real_estate_id", report.EstateID), zap.Error(report.Warnings))
	}

	sess.Lock()
	if sess.Epoch != epoch {
		sess.Unlock()
		return nil
	}
	sess.Unlock()
	b.deleteMessages(c.Chat().ID, b.resetSession(sess))
	return c.Send(fmt.Sprintf(msgSavedFmt, draft.Name))
}

func (b *TBot) handleCancel(c tele.Context) error {
	sess := b.sessions.Get(c.Chat().ID)
	b.deleteMessages(c.Chat().ID, b.resetSession(sess))
	b.notifyChat(c.Chat().ID, msgCancelled)
	return nil
}
