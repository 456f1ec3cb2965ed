package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"listenlab/internal/app"
	"listenlab/internal/domain"
	"listenlab/internal/playback"
	"listenlab/internal/session"
)

type WSHandler struct {
	service      *app.PracticeService
	upgrader     websocket.Upgrader
	playbackOpts []playback.Option
}

func NewWSHandler(service *app.PracticeService, playbackOpts ...playback.Option) *WSHandler {
	return &WSHandler{
		service:      service,
		playbackOpts: playbackOpts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type trackPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	Value         string `json:"value"`
}

type submitPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	QuestionID    string `json:"questionId"`
}

type gotoPayload struct {
	Question int `json:"question"`
}

type keyPayload struct {
	Key          string `json:"key"`
	WithModifier bool   `json:"withModifier"`
}

type playbackPayload struct {
	Event    string  `json:"event"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Message  string  `json:"message"`
}

type seekPayload struct {
	Seconds float64 `json:"seconds"`
}

type seekRelativePayload struct {
	Delta float64 `json:"delta"`
}

type seekTimestampPayload struct {
	QuestionIndex int `json:"questionIndex"`
}

type ratePayload struct {
	Rate float64 `json:"rate"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// clientQuestion is the question as shown to the browser: the correct
// answer and explanation stay server-side until grading.
type clientQuestion struct {
	ID             string   `json:"id"`
	Text           string   `json:"text"`
	Type           string   `json:"type"`
	Options        []string `json:"options,omitempty"`
	AudioTimestamp float64  `json:"audioTimestamp,omitempty"`
}

type sessionPayload struct {
	SessionID      string           `json:"sessionId"`
	ContentName    string           `json:"contentName"`
	AudioURL       string           `json:"audioUrl"`
	TotalQuestions int              `json:"totalQuestions"`
	Questions      []clientQuestion `json:"questions"`
}

type markerPayload struct {
	QuestionIndex int                  `json:"questionIndex"`
	State         domain.QuestionState `json:"state"`
	HasDraft      bool                 `json:"hasDraft"`
}

type submittingPayload struct {
	QuestionIndex int  `json:"questionIndex"`
	InFlight      bool `json:"inFlight"`
}

type feedbackPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

type playerCommand struct {
	Action string  `json:"action"` // play, pause, seek, rate
	Value  float64 `json:"value,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and drives one practice
// session per connection: the browser streams UI and media events in, the
// session and playback controllers stream view updates back.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	contentID := r.URL.Query().Get("contentId")
	if contentID == "" {
		http.Error(w, "missing contentId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	// The send channel is never closed: controller timers can emit after
	// teardown, so the writer exits through closeSignals instead.
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	view := &wsView{
		service: h.service,
		out:     send,
		closed:  closeSignals,
	}

	started, err := h.service.StartSession(r.Context(), contentID, view)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		close(closeSignals)
		<-writerDone
		return
	}
	view.sessionID = started.SessionID
	defer h.service.ReleaseSession(started.SessionID)

	opts := append([]playback.Option{playback.WithNotifier(view)}, h.playbackOpts...)
	pb := playback.New(&remotePlayer{view: view}, opts...)
	finished, cancelFinished := pb.Finished()
	defer cancelFinished()

	revealDone := make(chan struct{})
	go func() {
		defer close(revealDone)
		for {
			select {
			case _, ok := <-finished:
				if !ok {
					return
				}
				view.send("reveal", struct{}{})
			case <-closeSignals:
				return
			}
		}
	}()

	view.send("session", sessionPayload{
		SessionID:      started.SessionID,
		ContentName:    started.Content.Name,
		AudioURL:       started.Content.URL,
		TotalQuestions: len(started.Content.Questions),
		Questions:      sanitizeQuestions(started.Content.Questions),
	})

	h.readLoop(r.Context(), conn, view, started, pb)

	close(closeSignals)
	<-revealDone
	<-writerDone
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, view *wsView, started app.StartedSession, pb *playback.Controller) {
	ctrl := started.Controller
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "track":
			var p trackPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				view.send("error", errorPayload{Message: "invalid track payload"})
				continue
			}
			ctrl.TrackAnswer(p.QuestionIndex, p.Value)
		case "submit":
			var p submitPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				view.send("error", errorPayload{Message: "invalid submit payload"})
				continue
			}
			// Validation and transport failures already reach the client
			// through the view; the error return is for the server log.
			if err := ctrl.SubmitAnswer(ctx, p.QuestionIndex, p.QuestionID); err != nil {
				log.Printf("session %s: submit question %d: %v", started.SessionID, p.QuestionIndex, err)
			}
		case "goto":
			var p gotoPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				view.send("error", errorPayload{Message: "invalid goto payload"})
				continue
			}
			ctrl.GoToQuestion(p.Question)
		case "next":
			ctrl.NextQuestion()
		case "prev":
			ctrl.PreviousQuestion()
		case "key":
			var p keyPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				continue
			}
			handleKey(p, ctrl, pb)
		case "playback":
			var p playbackPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				view.send("error", errorPayload{Message: "invalid playback payload"})
				continue
			}
			handlePlaybackEvent(p, pb)
		case "seek":
			var p seekPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				continue
			}
			pb.SeekTo(p.Seconds)
		case "seekRelative":
			var p seekRelativePayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				continue
			}
			pb.SeekRelative(p.Delta)
		case "seekToTimestamp":
			var p seekTimestampPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				continue
			}
			qs := started.Content.Questions
			if p.QuestionIndex >= 0 && p.QuestionIndex < len(qs) {
				pb.SeekTo(qs[p.QuestionIndex].AudioTimestamp)
			}
		case "rate":
			var p ratePayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				continue
			}
			pb.SetRate(p.Rate)
		case "toggle":
			pb.TogglePlayPause()
		case "status":
			view.send("status", pb.Status())
		case "complete":
			view.SessionCompleted(started.SessionID)
		default:
			view.send("error", errorPayload{Message: "unsupported message type"})
		}
	}
}

// handleKey maps the keyboard surface: left/right arrows navigate unless a
// modifier is held, space toggles playback.
func handleKey(p keyPayload, ctrl *session.Controller, pb *playback.Controller) {
	switch p.Key {
	case "ArrowLeft":
		if !p.WithModifier {
			ctrl.PreviousQuestion()
		}
	case "ArrowRight":
		if !p.WithModifier {
			ctrl.NextQuestion()
		}
	case " ", "Space":
		pb.TogglePlayPause()
	}
}

func handlePlaybackEvent(p playbackPayload, pb *playback.Controller) {
	switch p.Event {
	case "loadstart":
		pb.HandleLoadStart()
	case "loadedmetadata":
		pb.HandleLoaded(p.Duration)
	case "timeupdate":
		pb.HandleTimeUpdate(p.Position)
	case "play":
		pb.HandlePlay()
	case "pause":
		pb.HandlePause()
	case "ended":
		pb.HandleEnded()
	case "error":
		pb.HandleError(p.Message)
	}
}

func sanitizeQuestions(questions []domain.Question) []clientQuestion {
	out := make([]clientQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, clientQuestion{
			ID:             q.ID,
			Text:           q.Text,
			Type:           q.Type,
			Options:        q.Options,
			AudioTimestamp: q.AudioTimestamp,
		})
	}
	return out
}

// wsView renders session and playback updates as outbound messages. It is
// called from the read loop and from controller timers, so every send races
// against connection teardown and must bail out once closed.
type wsView struct {
	service   *app.PracticeService
	sessionID string
	out       chan<- outboundMessage[any]
	closed    <-chan struct{}

	resultsMu   sync.Mutex
	resultsSent bool
}

func (v *wsView) send(msgType string, payload any) {
	select {
	case v.out <- outboundMessage[any]{Type: msgType, Payload: payload}:
	case <-v.closed:
	}
}

func (v *wsView) ShowQuestion(n int) {
	v.send("showQuestion", gotoPayload{Question: n})
}

func (v *wsView) UpdateProgress(percent float64) {
	v.send("progress", struct {
		Percent float64 `json:"percent"`
	}{Percent: percent})
}

func (v *wsView) MarkQuestion(index int, state domain.QuestionState, hasDraft bool) {
	v.send("marker", markerPayload{QuestionIndex: index, State: state, HasDraft: hasDraft})
}

func (v *wsView) SetSubmitting(index int, inFlight bool) {
	v.send("submitting", submittingPayload{QuestionIndex: index, InFlight: inFlight})
}

func (v *wsView) ShowFeedback(index int, result domain.GradeResult) {
	v.send("feedback", feedbackPayload{
		QuestionIndex: index,
		Correct:       result.Correct,
		CorrectAnswer: result.CorrectAnswer,
		Explanation:   result.Explanation,
	})
}

func (v *wsView) ShowNotice(message string) {
	v.send("notice", errorPayload{Message: message})
}

func (v *wsView) ShowWarning(message string) {
	v.send("warning", errorPayload{Message: message})
}

func (v *wsView) ShowError(message string) {
	v.send("error", errorPayload{Message: message})
}

// SessionCompleted runs when the controller finalizes itself after the last
// submission, and for an explicit completion request from the client.
// Results go out once per session: an explicit request followed by the
// controller's scheduled callback must not deliver them twice.
func (v *wsView) SessionCompleted(sessionID string) {
	v.resultsMu.Lock()
	if v.resultsSent {
		v.resultsMu.Unlock()
		return
	}
	v.resultsMu.Unlock()

	results, err := v.service.CompleteSession(context.Background(), sessionID)
	if err != nil {
		v.send("error", errorPayload{Message: err.Error()})
		return
	}

	v.resultsMu.Lock()
	if v.resultsSent {
		v.resultsMu.Unlock()
		return
	}
	v.resultsSent = true
	v.resultsMu.Unlock()

	v.send("results", results)
	v.send("completed", struct {
		SessionID string `json:"sessionId"`
	}{SessionID: sessionID})
}

// Notify implements playback.Notifier.
func (v *wsView) Notify(message string) {
	v.send("notice", errorPayload{Message: message})
}

// remotePlayer relays playback commands to the media element in the
// browser; its real state flows back through playback events.
type remotePlayer struct {
	view *wsView
}

func (p *remotePlayer) Play() error {
	p.view.send("player", playerCommand{Action: "play"})
	return nil
}

func (p *remotePlayer) Pause() {
	p.view.send("player", playerCommand{Action: "pause"})
}

func (p *remotePlayer) SetRate(rate float64) {
	p.view.send("player", playerCommand{Action: "rate", Value: rate})
}

func (p *remotePlayer) Seek(seconds float64) {
	p.view.send("player", playerCommand{Action: "seek", Value: seconds})
}
