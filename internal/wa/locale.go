package wa

import (
	"fmt"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"
)

// Locale keeps every language-dependent piece of the card builder in one
// table: clock convention, date ordering, short names, and all user-facing
// strings. Adding a language means adding one entry here.
type Locale struct {
	Code      string
	Use12Hour bool
	DayFirst  bool // day-month vs month-day ordering

	Weekdays [7]string  // short names, Sunday first (time.Weekday order)
	Months   [12]string // short names

	SelectBody    string
	ListButton    string
	ConfirmButton string
	ChangeButton  string
	CodeLabel     string
	ConfirmPrompt string
	Clarify       string
	SlotTaken     string
	PastSlot      string
	Failure       string
	NoSlots       string
	ThankYou      string
}

// FormatTime renders wall-clock time per the locale's clock convention.
func (l Locale) FormatTime(t time.Time) string {
	if l.Use12Hour {
		return t.Format("3:04 PM")
	}
	return t.Format("15:04")
}

// FormatDay renders a day header like "Mon, Mar 10" or "Пн, 10 мар".
func (l Locale) FormatDay(t time.Time) string {
	wd := l.Weekdays[int(t.Weekday())]
	month := l.Months[int(t.Month())-1]
	if l.DayFirst {
		return fmt.Sprintf("%s, %d %s", wd, t.Day(), month)
	}
	return fmt.Sprintf("%s, %s %d", wd, month, t.Day())
}

// FormatShortDate renders a compact date for button labels.
func (l Locale) FormatShortDate(t time.Time) string {
	month := l.Months[int(t.Month())-1]
	if l.DayFirst {
		return fmt.Sprintf("%d %s", t.Day(), month)
	}
	return fmt.Sprintf("%s %d", month, t.Day())
}

// ForLanguage returns the locale for a language code, falling back to the
// default for unknown codes.
func ForLanguage(code string) Locale {
	if loc, ok := locales[code]; ok {
		return loc
	}
	return locales[models.LanguageDefault]
}

var locales = map[string]Locale{
	models.LanguageEN: {
		Code:      models.LanguageEN,
		Use12Hour: true,
		Weekdays:  [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		Months: [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun",
			"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		SelectBody:    "Here are the available times — pick one that works for you.",
		ListButton:    "View times",
		ConfirmButton: "Confirm",
		ChangeButton:  "Change time",
		CodeLabel:     "🔑 Code:",
		ConfirmPrompt: "Confirm your booking or pick another time.",
		Clarify:       "Sorry, I didn't catch that. Please choose one of the options.",
		SlotTaken:     "That time was just taken. Here are fresh options:",
		PastSlot:      "That time has already passed. Please pick another one.",
		Failure:       "Something went wrong. Please try again.",
		NoSlots:       "No free times found for your request. Try another day.",
		ThankYou:      "Thank you! Your booking is confirmed. See you soon!",
	},
	models.LanguageRU: {
		Code:     models.LanguageRU,
		DayFirst: true,
		Weekdays: [7]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"},
		Months: [12]string{"янв", "фев", "мар", "апр", "мая", "июн",
			"июл", "авг", "сен", "окт", "ноя", "дек"},
		SelectBody:    "Вот свободное время — выберите подходящее.",
		ListButton:    "Выбрать время",
		ConfirmButton: "Подтвердить",
		ChangeButton:  "Другое время",
		CodeLabel:     "🔑 Код:",
		ConfirmPrompt: "Подтвердите запись или выберите другое время.",
		Clarify:       "Извините, не поняли вас. Пожалуйста, выберите один из вариантов.",
		SlotTaken:     "Это время только что заняли. Вот свежие варианты:",
		PastSlot:      "Это время уже прошло. Пожалуйста, выберите другое.",
		Failure:       "Что-то пошло не так. Пожалуйста, попробуйте ещё раз.",
		NoSlots:       "Свободного времени не нашлось. Попробуйте другой день.",
		ThankYou:      "Спасибо! Ваша запись подтверждена. До встречи!",
	},
	models.LanguageES: {
		Code:     models.LanguageES,
		DayFirst: true,
		Weekdays: [7]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"},
		Months: [12]string{"ene", "feb", "mar", "abr", "may", "jun",
			"jul", "ago", "sep", "oct", "nov", "dic"},
		SelectBody:    "Estos son los horarios disponibles; elige el que prefieras.",
		ListButton:    "Ver horarios",
		ConfirmButton: "Confirmar",
		ChangeButton:  "Cambiar hora",
		CodeLabel:     "🔑 Código:",
		ConfirmPrompt: "Confirma tu reserva o elige otra hora.",
		Clarify:       "Lo sentimos, no entendimos. Elige una de las opciones, por favor.",
		SlotTaken:     "Esa hora acaba de ocuparse. Aquí tienes opciones nuevas:",
		PastSlot:      "Esa hora ya pasó. Elige otra, por favor.",
		Failure:       "Algo salió mal. Inténtalo de nuevo.",
		NoSlots:       "No encontramos horarios libres. Prueba otro día.",
		ThankYou:      "¡Gracias! Tu reserva está confirmada. ¡Hasta pronto!",
	},
	models.LanguagePT: {
		Code:     models.LanguagePT,
		DayFirst: true,
		Weekdays: [7]string{"dom", "seg", "ter", "qua", "qui", "sex", "sáb"},
		Months: [12]string{"jan", "fev", "mar", "abr", "mai", "jun",
			"jul", "ago", "set", "out", "nov", "dez"},
		SelectBody:    "Estes são os horários disponíveis; escolha o melhor para você.",
		ListButton:    "Ver horários",
		ConfirmButton: "Confirmar",
		ChangeButton:  "Mudar horário",
		CodeLabel:     "🔑 Código:",
		ConfirmPrompt: "Confirme sua reserva ou escolha outro horário.",
		Clarify:       "Desculpe, não entendemos. Escolha uma das opções, por favor.",
		SlotTaken:     "Esse horário acabou de ser ocupado. Aqui estão novas opções:",
		PastSlot:      "Esse horário já passou. Escolha outro, por favor.",
		Failure:       "Algo deu errado. Tente novamente.",
		NoSlots:       "Não encontramos horários livres. Tente outro dia.",
		ThankYou:      "Obrigado! Sua reserva está confirmada. Até breve!",
	},
	models.LanguageHE: {
		Code:     models.LanguageHE,
		DayFirst: true,
		Weekdays: [7]string{"א׳", "ב׳", "ג׳", "ד׳", "ה׳", "ו׳", "ש׳"},
		Months: [12]string{"ינו׳", "פבר׳", "מרץ", "אפר׳", "מאי", "יוני",
			"יולי", "אוג׳", "ספט׳", "אוק׳", "נוב׳", "דצמ׳"},
		SelectBody:    "אלו הזמנים הפנויים — בחרו את המתאים לכם.",
		ListButton:    "בחירת שעה",
		ConfirmButton: "אישור",
		ChangeButton:  "שעה אחרת",
		CodeLabel:     "🔑 קוד:",
		ConfirmPrompt: "אשרו את ההזמנה או בחרו שעה אחרת.",
		Clarify:       "מצטערים, לא הבנו. אנא בחרו אחת מהאפשרויות.",
		SlotTaken:     "השעה הזו נתפסה הרגע. הנה אפשרויות חדשות:",
		PastSlot:      "השעה הזו כבר עברה. אנא בחרו שעה אחרת.",
		Failure:       "משהו השתבש. אנא נסו שוב.",
		NoSlots:       "לא נמצאו זמנים פנויים. נסו יום אחר.",
		ThankYou:      "תודה! ההזמנה שלכם אושרה. נתראה!",
	},
}
