package flow

import (
	"context"
	"errors"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/database"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/domain"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/metrics"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/service"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/wa"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/worker"

	"github.com/rs/zerolog"
)

// Controller drives one customer conversation through the booking state
// machine: query -> presented slots -> selection -> booking -> confirmation.
// All state lives in the TTL-bound session; an expired session behaves as if
// the conversation never happened.
type Controller struct {
	slotSource domain.SlotSource
	validator  *service.SlotValidator
	bookings   *service.BookingService
	sessions   domain.SessionManager
	builder    *wa.Builder
	sender     domain.MessageSender
	logger     *zerolog.Logger

	rateLimit       int
	rateLimitWindow time.Duration
}

func NewController(
	slotSource domain.SlotSource,
	validator *service.SlotValidator,
	bookings *service.BookingService,
	sessions domain.SessionManager,
	builder *wa.Builder,
	sender domain.MessageSender,
	rateLimit int,
	rateLimitWindow time.Duration,
	logger *zerolog.Logger,
) *Controller {
	return &Controller{
		slotSource:      slotSource,
		validator:       validator,
		bookings:        bookings,
		sessions:        sessions,
		builder:         builder,
		sender:          sender,
		rateLimit:       rateLimit,
		rateLimitWindow: rateLimitWindow,
		logger:          logger,
	}
}

func (c *Controller) allowed(ctx context.Context, customerID string) bool {
	if c.rateLimit <= 0 {
		return true
	}
	ok, err := c.sessions.CheckRateLimit(ctx, customerID, c.rateLimit, c.rateLimitWindow)
	if err != nil {
		// Fail open: losing rate limiting is better than losing bookings.
		return true
	}
	if !ok {
		c.logger.Warn().Str("customer_id", customerID).Msg("rate limit exceeded, dropping message")
	}
	return ok
}

// HandleQuery fetches candidates for a structured slot query, snapshots them
// into the session and presents them as an interactive card.
func (c *Controller) HandleQuery(ctx context.Context, customerID, language string, query models.SlotQuery) error {
	if !c.allowed(ctx, customerID) {
		return nil
	}
	locale := wa.ForLanguage(language)

	if err := query.Validate(); err != nil {
		c.logger.Debug().Err(err).Str("customer_id", customerID).Msg("malformed slot query")
		return c.send(ctx, customerID, wa.NewText(locale.Clarify))
	}

	return c.presentCandidates(ctx, customerID, language, query, false)
}

func (c *Controller) presentCandidates(ctx context.Context, customerID, language string, query models.SlotQuery, afterConflict bool) error {
	locale := wa.ForLanguage(language)

	candidates, err := c.slotSource.FindSlots(ctx, query)
	if err != nil {
		c.logger.Error().Err(err).Str("customer_id", customerID).Msg("slot source failed")
		return c.send(ctx, customerID, wa.NewText(locale.Failure))
	}

	candidates = c.validator.FilterValid(candidates)
	if len(candidates) > models.MaxPresentedSlots {
		candidates = candidates[:models.MaxPresentedSlots]
	}

	if len(candidates) == 0 {
		if err := c.saveSession(ctx, &models.SessionState{
			CustomerID: customerID,
			Language:   language,
			Step:       models.StepAwaitingQuery,
			LastQuery:  &query,
		}); err != nil {
			return err
		}
		return c.send(ctx, customerID, wa.NewText(locale.NoSlots))
	}

	if err := c.saveSession(ctx, &models.SessionState{
		CustomerID:     customerID,
		Language:       language,
		Step:           models.StepSlotsPresented,
		CandidateSlots: candidates,
		LastQuery:      &query,
	}); err != nil {
		return err
	}

	var msg *wa.OutboundMessage
	if afterConflict {
		msg, err = c.builder.BuildReofferedSlots(candidates, language)
	} else {
		msg, err = c.builder.BuildSlotSelection(candidates, language)
	}
	if err != nil {
		c.logger.Error().Err(err).Int("slots", len(candidates)).Msg("failed to build slot card")
		return c.send(ctx, customerID, wa.NewText(locale.Failure))
	}

	metrics.IncMessageRendered(msg.Interactive.Type)
	return c.send(ctx, customerID, msg)
}

// HandleSelection processes a token echoed back from an interactive message.
// Malformed tokens and selections that miss the session snapshot fall back to
// a clarification prompt; the client payload is never trusted over the
// snapshot it originated from.
func (c *Controller) HandleSelection(ctx context.Context, customerID, token string) error {
	if !c.allowed(ctx, customerID) {
		return nil
	}

	session, err := c.sessions.GetSession(ctx, customerID)
	if err != nil {
		return err
	}
	language := models.LanguageDefault
	if session != nil && session.Language != "" {
		language = session.Language
	}
	locale := wa.ForLanguage(language)

	selection, err := wa.Decode(token)
	if err != nil {
		var decodeErr *wa.DecodeError
		if errors.As(err, &decodeErr) {
			c.logger.Debug().Str("customer_id", customerID).Str("reason", decodeErr.Reason).Msg("undecodable selection token")
			return c.reprompt(ctx, customerID, session, language, locale.Clarify)
		}
		return err
	}

	switch selection.Kind {
	case wa.KindSlot:
		return c.handleSlotSelection(ctx, customerID, language, session, selection)
	case wa.KindConfirm:
		return c.handleConfirm(ctx, customerID, language, selection.Value)
	case wa.KindAction:
		return c.handleAction(ctx, customerID, language, session, selection.Value)
	default:
		return c.reprompt(ctx, customerID, session, language, locale.Clarify)
	}
}

func (c *Controller) handleSlotSelection(ctx context.Context, customerID, language string, session *models.SessionState, selection wa.Selection) error {
	locale := wa.ForLanguage(language)

	// Expired or missing session: the snapshot the token pointed into is
	// gone, so the token is not actionable regardless of its contents.
	slot, ok := session.FindSlot(selection.Slot)
	if !ok {
		c.logger.Debug().Str("customer_id", customerID).Msg("selection outside session snapshot")
		return c.reprompt(ctx, customerID, session, language, locale.Clarify)
	}

	session.Step = models.StepBookingInFlight
	if err := c.saveSession(ctx, session); err != nil {
		return err
	}

	booking, err := c.bookings.CreateFromSlot(ctx, slot, customerID)
	if err != nil {
		return c.handleBookingFailure(ctx, customerID, language, session, err)
	}

	session.Step = models.StepConfirmed
	session.PendingBookingID = booking.ID
	session.CandidateSlots = nil
	if err := c.saveSession(ctx, session); err != nil {
		return err
	}

	svc, svcErr := c.bookings.GetService(ctx, booking.ServiceID)
	if svcErr != nil {
		svc = nil
	}
	metrics.IncMessageRendered("confirmation")
	return c.send(ctx, customerID, c.builder.BuildConfirmation(booking, svc, language))
}

func (c *Controller) handleBookingFailure(ctx context.Context, customerID, language string, session *models.SessionState, err error) error {
	locale := wa.ForLanguage(language)

	var exhausted *worker.ExhaustedError
	switch {
	case errors.Is(err, database.ErrSlotConflict):
		// Someone else won the race. Re-fetch fresh candidates; the stale
		// snapshot may hide further conflicts.
		if session.LastQuery == nil {
			return c.reprompt(ctx, customerID, session, language, locale.SlotTaken)
		}
		return c.presentCandidates(ctx, customerID, language, *session.LastQuery, true)
	case errors.Is(err, database.ErrPastSlot):
		session.Step = models.StepAwaitingQuery
		session.CandidateSlots = nil
		if err := c.saveSession(ctx, session); err != nil {
			return err
		}
		return c.send(ctx, customerID, wa.NewText(locale.PastSlot))
	case errors.As(err, &exhausted):
		session.Step = models.StepFailed
		session.CandidateSlots = nil
		if err := c.saveSession(ctx, session); err != nil {
			return err
		}
		return c.send(ctx, customerID, wa.NewText(locale.Failure))
	default:
		session.Step = models.StepFailed
		if err := c.saveSession(ctx, session); err != nil {
			return err
		}
		return c.send(ctx, customerID, wa.NewText(locale.Failure))
	}
}

func (c *Controller) handleConfirm(ctx context.Context, customerID, language, bookingID string) error {
	locale := wa.ForLanguage(language)

	if _, err := c.bookings.Confirm(ctx, bookingID); err != nil {
		c.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("confirm failed")
		return c.send(ctx, customerID, wa.NewText(locale.Failure))
	}

	// Conversation complete; drop the session rather than carry stale state.
	if err := c.sessions.ClearSession(ctx, customerID); err != nil {
		c.logger.Warn().Err(err).Str("customer_id", customerID).Msg("failed to clear session")
	}
	return c.send(ctx, customerID, wa.NewText(locale.ThankYou))
}

func (c *Controller) handleAction(ctx context.Context, customerID, language string, session *models.SessionState, action string) error {
	locale := wa.ForLanguage(language)

	switch action {
	case wa.ActionChangeTime:
		if session == nil || session.LastQuery == nil {
			return c.reprompt(ctx, customerID, session, language, locale.Clarify)
		}
		// A pending booking the customer walked away from must not keep
		// occupying the interval.
		if session.PendingBookingID != "" {
			if err := c.bookings.Cancel(ctx, session.PendingBookingID); err != nil {
				c.logger.Warn().Err(err).Str("booking_id", session.PendingBookingID).Msg("cancel pending booking failed")
			}
			session.PendingBookingID = ""
		}
		return c.presentCandidates(ctx, customerID, language, *session.LastQuery, false)
	default:
		c.logger.Debug().Str("action", action).Msg("unknown action token")
		return c.reprompt(ctx, customerID, session, language, locale.Clarify)
	}
}

// reprompt resets the conversation to awaiting_query and asks the customer to
// try again.
func (c *Controller) reprompt(ctx context.Context, customerID string, session *models.SessionState, language, text string) error {
	if session == nil {
		session = &models.SessionState{CustomerID: customerID, Language: language}
	}
	session.Step = models.StepAwaitingQuery
	session.CandidateSlots = nil
	if err := c.saveSession(ctx, session); err != nil {
		return err
	}
	return c.send(ctx, customerID, wa.NewText(text))
}

func (c *Controller) saveSession(ctx context.Context, session *models.SessionState) error {
	if err := c.sessions.SaveSession(ctx, session); err != nil {
		c.logger.Error().Err(err).Str("customer_id", session.CustomerID).Msg("failed to save session")
		return err
	}
	return nil
}

func (c *Controller) send(ctx context.Context, to string, msg *wa.OutboundMessage) error {
	if err := c.sender.Send(ctx, to, msg); err != nil {
		c.logger.Error().Err(err).Str("to", to).Msg("failed to send message")
		return err
	}
	return nil
}
