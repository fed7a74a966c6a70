package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assess/internal/config"
	"github.com/stemsi/exstem-assess/internal/middleware"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/response"
	"github.com/stemsi/exstem-assess/internal/service"
	"github.com/stemsi/exstem-assess/internal/validator"
	ws "github.com/stemsi/exstem-assess/internal/websocket"
)

// actionTimeout bounds the work done for one client message.
const actionTimeout = 10 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// hitLimiter is the per-key rate limit shared with the HTTP autosave route.
type hitLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// WSHandler streams one attempt over a WebSocket: autosave, submit and
// proctoring events share the connection.
type WSHandler struct {
	attemptService *service.AttemptService
	autosaveLimit  hitLimiter
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. autosaveLimit is keyed like the HTTP
// progress route so both transports draw from one budget per student.
func NewWSHandler(attemptService *service.AttemptService, autosaveLimit hitLimiter, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		autosaveLimit:  autosaveLimit,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:id/stream
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	submissionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	studentID := claims.UserID

	// Reject before upgrading so the client sees a normal HTTP error.
	sub, err := h.attemptService.State(c.Request.Context(), submissionID, studentID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if !sub.InProgress() {
		response.Fail(c, http.StatusConflict, response.ErrInvalidAttemptState)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	ws.Prepare(conn)

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("submission_id", submissionID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if errors.Is(err, ws.ErrBadFrame) {
				ws.WriteError(conn, string(response.ErrInvalidPayload), err.Error())
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		done := h.dispatch(ctx, conn, wsLog, submissionID, studentID, &msg)
		cancel()
		if done {
			return
		}
	}
}

// dispatch handles one client message. It returns true when the attempt is
// closed and the connection should end.
func (h *WSHandler) dispatch(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, submissionID uuid.UUID, studentID int, msg *ws.RequestPayload) bool {
	switch msg.Action {
	case ws.ActionPing:
		ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})

	case ws.ActionAutosave:
		req := &model.SaveProgressRequest{
			Answers:              msg.Answers,
			CurrentQuestionIndex: msg.CurrentQuestionIndex,
			TimeRemainingSeconds: msg.TimeRemainingSeconds,
		}
		if rejected := h.checkAutosave(ctx, studentID, req); rejected != nil {
			ws.WriteError(conn, string(rejected.code), rejected.detail)
			return false
		}
		snap, err := h.attemptService.SaveProgress(ctx, submissionID, studentID, req)
		if err != nil {
			return h.writeError(conn, wsLog, err)
		}
		ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, SavedAt: snap.SavedAt.Format(time.RFC3339Nano)})

	case ws.ActionSubmit:
		sub, err := h.attemptService.Submit(ctx, submissionID, studentID, &model.SubmitAttemptRequest{Answers: msg.Answers})
		if err != nil {
			return h.writeError(conn, wsLog, err)
		}
		wsLog.Info().Str("status", string(sub.Status)).Msg("Attempt submitted over WebSocket")
		ws.WriteTyped(conn, gradedResponse(ws.EventGraded, sub))
		return true

	case ws.ActionViolation:
		req := &model.RecordViolationRequest{Type: msg.Type, Description: msg.Description}
		if rejected := validateFrame(req); rejected != nil {
			ws.WriteError(conn, string(rejected.code), rejected.detail)
			return false
		}
		outcome, err := h.attemptService.RecordViolation(ctx, submissionID, studentID, req)
		if err != nil {
			return h.writeError(conn, wsLog, err)
		}
		ws.WriteTyped(conn, ws.ViolationResponse{Event: ws.EventViolation, ViolationOutcome: *outcome})
		if outcome.Terminated {
			if sub, err := h.attemptService.State(ctx, submissionID, studentID); err == nil {
				ws.WriteTyped(conn, gradedResponse(ws.EventTerminated, sub))
			}
			return true
		}

	default:
		wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		ws.WriteError(conn, string(response.ErrValidation), "unknown action: "+string(msg.Action))
	}
	return false
}

// frameError is written back instead of running an action.
type frameError struct {
	code   response.ErrCode
	detail string
}

// checkAutosave applies the HTTP progress route's rate limit and binding
// rules to an autosave frame.
func (h *WSHandler) checkAutosave(ctx context.Context, studentID int, req *model.SaveProgressRequest) *frameError {
	if !h.autosaveLimit.Allow(ctx, config.CacheKey.AutosaveRateKey(studentID)) {
		return &frameError{code: response.ErrRateLimitExceeded}
	}
	return validateFrame(req)
}

// validateFrame checks req against its binding tags. The detail lists the
// failing fields in name order.
func validateFrame(req any) *frameError {
	fields := validator.Struct(req)
	if fields == nil {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, fields[name])
	}
	return &frameError{code: response.ErrValidation, detail: strings.Join(parts, "; ")}
}

// writeError reports err to the client by its API code. A closed attempt
// ends the connection.
func (h *WSHandler) writeError(conn *websocket.Conn, wsLog zerolog.Logger, err error) bool {
	status, code := classifyError(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		wsLog.Error().Err(err).Msg("Action failed")
		detail = ""
	}
	ws.WriteError(conn, string(code), detail)
	return code == response.ErrInvalidAttemptState
}

func gradedResponse(event ws.Event, sub *model.Submission) ws.GradedResponse {
	return ws.GradedResponse{
		Event:      event,
		Status:     sub.Status,
		TotalScore: sub.TotalScore,
		MaxScore:   sub.MaxScore,
		IsLate:     sub.IsLate,
	}
}
