// Package session keeps the per-conversation registration state. The store
// is keyed by chat id and owns nothing but memory: a draft lives exactly as
// long as one registration attempt.
package session

import (
	"sync"
	"time"

	"github.com/StartupEmbassy/AgencyAtlas/vision"
)

type Step string

const (
	StepIdle                Step = "idle"
	StepCollectingPhotos    Step = "collecting_photos"
	StepWaitingName         Step = "waiting_name"
	StepWaitingConfirmation Step = "waiting_confirmation"
	StepWaitingLocation     Step = "waiting_location"
	StepWaitingFinalConfirm Step = "waiting_final_confirm"
)

type Photo struct {
	FileID   string
	IsMain   *bool
	Analysis *vision.Analysis
}

type Location struct {
	Latitude  float64
	Longitude float64
}

// QR pairs a raw payload with the URL it resolved to, when it was one, and
// the photo it was read from.
type QR struct {
	Data   string
	URL    string
	FileID string
}

type ContactInfo struct {
	Phones        []string
	Emails        []string
	BusinessHours string
}

type Draft struct {
	StartedAt  time.Time
	LastUpdate time.Time
	MessageIDs []int
	Photos     []Photo
	Name       string
	QRs        []QR
	WebURL     string
	Location   *Location
	Contact    ContactInfo
}

func NewDraft() *Draft {
	now := time.Now()
	return &Draft{StartedAt: now, LastUpdate: now}
}

func (d *Draft) Touch() {
	d.LastUpdate = time.Now()
}

func (d *Draft) MainPhoto() *Photo {
	for i := range d.Photos {
		if d.Photos[i].IsMain != nil && *d.Photos[i].IsMain {
			return &d.Photos[i]
		}
	}
	return nil
}

// Session is the conversation state for one chat. Epoch moves forward every
// time the draft is cleared; handlers that were blocked on a network call
// compare epochs before writing results back, so a cancelled draft never
// resurrects. Callers hold the embedded mutex around every read or write,
// photo analysis finishes on a background goroutine.
type Session struct {
	sync.Mutex
	ChatID         int64
	Step           Step
	Draft          *Draft
	BotMessageIDs  []int
	UserMessageIDs []int
	Epoch          uint64
}

func (s *Session) TrackBotMessage(id int) {
	s.BotMessageIDs = append(s.BotMessageIDs, id)
	if s.Draft != nil {
		s.Draft.MessageIDs = append(s.Draft.MessageIDs, id)
	}
}

func (s *Session) TrackUserMessage(id int) {
	s.UserMessageIDs = append(s.UserMessageIDs, id)
	if s.Draft != nil {
		s.Draft.MessageIDs = append(s.Draft.MessageIDs, id)
	}
}

// DrainMessageIDs returns every tracked message id and empties both lists.
func (s *Session) DrainMessageIDs() []int {
	ids := make([]int, 0, len(s.BotMessageIDs)+len(s.UserMessageIDs))
	ids = append(ids, s.BotMessageIDs...)
	ids = append(ids, s.UserMessageIDs...)
	s.BotMessageIDs = nil
	s.UserMessageIDs = nil
	return ids
}

// StillOn reports whether the draft started at the given epoch is still the
// live one.
func (s *Session) StillOn(epoch uint64) bool {
	s.Lock()
	defer s.Unlock()
	return s.Epoch == epoch && s.Draft != nil
}

// Clear drops the draft and returns the session to idle.
func (s *Session) Clear() {
	s.Step = StepIdle
	s.Draft = nil
	s.Epoch++
}

type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns the session for a chat, creating an idle one on first contact.
func (st *Store) Get(chatID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[chatID]
	if !ok {
		sess = &Session{ChatID: chatID, Step: StepIdle}
		st.sessions[chatID] = sess
	}
	return sess
}

// Sweep clears every draft idle for longer than maxAge and returns the
// affected chats together with the message ids that were pending deletion.
func (st *Store) Sweep(maxAge time.Duration) map[int64][]int {
	st.mu.Lock()
	defer st.mu.Unlock()
	expired := make(map[int64][]int)
	cutoff := time.Now().Add(-maxAge)
	for chatID, sess := range st.sessions {
		sess.Lock()
		if sess.Draft != nil && sess.Draft.LastUpdate.Before(cutoff) {
			expired[chatID] = sess.DrainMessageIDs()
			sess.Clear()
		}
		sess.Unlock()
	}
	return expired
}
