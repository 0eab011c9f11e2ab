package models

import "time"

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
	StatusCompleted  = "completed"
)

// Conversation steps stored in SessionState.Step.
const (
	StepAwaitingQuery     = "awaiting_query"
	StepSlotsPresented    = "slots_presented"
	StepSelectionReceived = "selection_received"
	StepBookingInFlight   = "booking_in_flight"
	StepConfirmed         = "confirmed"
	StepFailed            = "failed"
)

// Supported conversation languages. Unknown codes fall back to LanguageDefault.
const (
	LanguageEN = "en"
	LanguageRU = "ru"
	LanguageES = "es"
	LanguagePT = "pt"
	LanguageHE = "he"

	LanguageDefault = LanguageEN
)

const (
	// DefaultSessionTTL - время жизни сессии диалога
	DefaultSessionTTL = 15 * time.Minute

	// DefaultSessionSweepInterval - период очистки истёкших сессий в памяти
	DefaultSessionSweepInterval = 5 * time.Minute

	// MaxPresentedSlots - максимум слотов в одном интерактивном сообщении
	MaxPresentedSlots = 10

	// MaxButtonSlots - до этого количества слоты показываются кнопками
	MaxButtonSlots = 3

	// DefaultRetryAttempts / DefaultRetryBaseDelay - политика повторов бронирования
	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = 100 * time.Millisecond

	// RateLimitMessages количество сообщений в окне
	RateLimitMessages = 20

	// RateLimitWindow окно ограничения частоты сообщений
	RateLimitWindow = time.Minute
)
