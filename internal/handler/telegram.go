package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/dkravchuk/classroom-deadline-bot/internal/models"
	"github.com/dkravchuk/classroom-deadline-bot/internal/service"
)

const pageSize = 5

type Service interface {
	RegisterUser(ctx context.Context, telegramID int64, username string) (*models.User, error)
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	GetAuthURL(telegramID int64) string

	SyncUser(ctx context.Context, user *models.User) (created, updated int, courses []string, err error)

	ListActiveDeadlines(ctx context.Context, telegramID int64) ([]*models.Deadline, error)
	ListOverdueDeadlines(ctx context.Context, telegramID int64) ([]*models.Deadline, error)
	ListCourses(ctx context.Context, telegramID int64) ([]string, error)
	ListCourseItems(ctx context.Context, telegramID int64, courseName string) ([]*models.Deadline, []*models.Coursework, error)

	CreateManualDeadline(ctx context.Context, telegramID int64, courseName, title string, dueDate time.Time, link string) (*models.Deadline, error)
	SetDeadlineCompleted(ctx context.Context, telegramID, deadlineID int64, completed bool) (*models.Deadline, error)
	CycleDeadlinePriority(ctx context.Context, telegramID, deadlineID int64) (*models.Deadline, error)

	GetSettings(ctx context.Context, telegramID int64) (*models.UserSettings, error)
	UpdateSettings(ctx context.Context, settings *models.UserSettings) error
}

type TelegramHandler struct {
	api     *tgbotapi.BotAPI
	service Service
}

func NewTelegramHandler(token string, service Service) (*TelegramHandler, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	return &TelegramHandler{
		api:     api,
		service: service,
	}, nil
}

func (h *TelegramHandler) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.api.GetUpdatesChan(u)

	zap.L().Info("bot started", zap.String("username", h.api.Self.UserName))

	for update := range updates {
		if update.Message == nil && update.CallbackQuery == nil {
			continue
		}

		h.handleUpdate(update)
	}
}

func (h *TelegramHandler) handleUpdate(update tgbotapi.Update) {
	ctx := context.Background()

	switch {
	case update.Message != nil && update.Message.IsCommand():
		if update.Message.From == nil {
			zap.L().Warn("received command from nil user")
			return
		}
		h.handleCommand(ctx, update)
	case update.Message != nil:
		if update.Message.From == nil {
			return
		}
		h.sendMessage(update.Message.Chat.ID, "Я розумію лише команди. Скористайтесь /help")
	case update.CallbackQuery != nil:
		if update.CallbackQuery.From == nil {
			zap.L().Warn("received callback from nil user")
			return
		}
		h.handleCallback(ctx, update)
	}
}

func (h *TelegramHandler) handleCommand(ctx context.Context, update tgbotapi.Update) {
	switch update.Message.Command() {
	case "start":
		h.handleStart(ctx, update)
	case "connect":
		h.handleConnect(ctx, update)
	case "sync":
		h.handleSync(ctx, update)
	case "deadlines":
		h.handleDeadlines(ctx, update)
	case "overdue":
		h.handleOverdue(ctx, update)
	case "courses":
		h.handleCourses(ctx, update)
	case "add":
		h.handleAdd(ctx, update)
	case "settings":
		h.handleSettings(ctx, update)
	case "help":
		h.handleHelp(update)
	default:
		h.sendMessage(update.Message.Chat.ID, "Невідома команда. Скористайтесь /help")
	}
}

const (
	errorText         = "Сталася помилка. Спробуйте пізніше."
	notRegisteredText = "Спочатку зареєструйтесь командою /start"
)

func (h *TelegramHandler) handleStart(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	user, err := h.service.RegisterUser(ctx, userID, update.Message.From.UserName)
	if err != nil {
		zap.L().Error("register user", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, errorText)
		return
	}

	if user.Connected() {
		h.sendMessage(chatID, "З поверненням! 👋\n\nGoogle Classroom вже підключено. Скористайтесь /deadlines або /sync.")
		return
	}

	text := `Привіт! 👋

Я стежу за дедлайнами з Google Classroom і нагадую про них заздалегідь:
за день, за 3 години та за годину до здачі.

Підключіть Google Classroom командою /connect, а далі /sync підтягне ваші завдання.

Повний список команд — /help`

	h.sendMessage(chatID, text)
}

func (h *TelegramHandler) handleConnect(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if _, err := h.requireUser(ctx, userID, chatID); err != nil {
		return
	}

	authURL := h.service.GetAuthURL(userID)
	text := fmt.Sprintf("Щоб підключити Google Classroom, перейдіть за посиланням:\n\n%s\n\nПісля підтвердження повертайтесь і виконайте /sync.", authURL)
	h.sendMessage(chatID, text)
}

func (h *TelegramHandler) handleSync(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	user, err := h.requireUser(ctx, userID, chatID)
	if err != nil {
		return
	}

	h.sendMessage(chatID, "🔄 Синхронізую завдання з Google Classroom...")

	created, updated, courses, err := h.service.SyncUser(ctx, user)
	if err != nil {
		if h.handleAuthError(err, userID, chatID) {
			return
		}
		zap.L().Error("sync user", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, "Не вдалося синхронізуватись із Google Classroom. Спробуйте пізніше.")
		return
	}

	text := fmt.Sprintf("✅ Синхронізація завершена!\n\nКурсів: %d\nНових дедлайнів: %d\nОновлених: %d\n\nПереглянути — /deadlines",
		len(courses), created, updated)
	h.sendMessage(chatID, text)
}

func (h *TelegramHandler) handleDeadlines(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if _, err := h.requireUser(ctx, userID, chatID); err != nil {
		return
	}

	h.showDeadlinePage(ctx, userID, chatID, 0, false, 0)
}

func (h *TelegramHandler) handleOverdue(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if _, err := h.requireUser(ctx, userID, chatID); err != nil {
		return
	}

	h.showDeadlinePage(ctx, userID, chatID, 0, true, 0)
}

// showDeadlinePage renders one page of the active or overdue list. A non-zero
// messageID edits the existing message in place instead of sending a new one.
func (h *TelegramHandler) showDeadlinePage(ctx context.Context, userID, chatID int64, page int, overdue bool, messageID int) {
	var (
		deadlines []*models.Deadline
		err       error
	)
	if overdue {
		deadlines, err = h.service.ListOverdueDeadlines(ctx, userID)
	} else {
		deadlines, err = h.service.ListActiveDeadlines(ctx, userID)
	}
	if err != nil {
		zap.L().Error("list deadlines", zap.Error(err), zap.Int64("telegram_id", userID), zap.Bool("overdue", overdue))
		h.sendMessage(chatID, errorText)
		return
	}

	if len(deadlines) == 0 {
		if overdue {
			h.sendMessage(chatID, "🎉 Прострочених дедлайнів немає!")
		} else {
			h.sendMessage(chatID, "🎉 Активних дедлайнів немає!\n\nСпробуйте /sync, щоб підтягнути нові завдання.")
		}
		return
	}

	totalPages := (len(deadlines) + pageSize - 1) / pageSize
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	start := page * pageSize
	end := start + pageSize
	if end > len(deadlines) {
		end = len(deadlines)
	}

	var sb strings.Builder
	if overdue {
		sb.WriteString(fmt.Sprintf("⏰ <b>Прострочені дедлайни</b> (стор. %d/%d)\n\n", page+1, totalPages))
	} else {
		sb.WriteString(fmt.Sprintf("📋 <b>Активні дедлайни</b> (стор. %d/%d)\n\n", page+1, totalPages))
	}

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, deadline := range deadlines[start:end] {
		sb.WriteString(formatDeadline(start+i+1, deadline))

		row := tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✅ %d", start+i+1),
				fmt.Sprintf("done_%d_%s_%d", deadline.ID, listKey(overdue), page),
			),
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s %d", priorityEmoji(deadline.Priority), start+i+1),
				fmt.Sprintf("prio_%d_%s_%d", deadline.ID, listKey(overdue), page),
			),
		)
		buttons = append(buttons, row)
	}

	if nav := paginationRow(listKey(overdue), page, totalPages); nav != nil {
		buttons = append(buttons, nav)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(buttons...)

	if messageID != 0 {
		h.editMessage(chatID, messageID, sb.String(), &keyboard)
		return
	}
	h.sendMessageWithKeyboard(chatID, sb.String(), keyboard)
}

func (h *TelegramHandler) handleCourses(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if _, err := h.requireUser(ctx, userID, chatID); err != nil {
		return
	}

	h.showCourseList(ctx, userID, chatID, 0, 0)
}

func (h *TelegramHandler) showCourseList(ctx context.Context, userID, chatID int64, page, messageID int) {
	courses, err := h.service.ListCourses(ctx, userID)
	if err != nil {
		zap.L().Error("list courses", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, errorText)
		return
	}

	if len(courses) == 0 {
		h.sendMessage(chatID, "Курсів поки немає. Спробуйте /sync.")
		return
	}

	totalPages := (len(courses) + pageSize - 1) / pageSize
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	start := page * pageSize
	end := start + pageSize
	if end > len(courses) {
		end = len(courses)
	}

	text := fmt.Sprintf("📚 <b>Ваші курси</b> (стор. %d/%d)\n\nОберіть курс, щоб переглянути його завдання:", page+1, totalPages)

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, course := range courses[start:end] {
		// The callback payload carries the course index, not the name:
		// callback data is limited to 64 bytes and course names are not.
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(course, fmt.Sprintf("c_%d_%d", start+i, page)),
		))
	}

	if nav := paginationRow("cl", page, totalPages); nav != nil {
		buttons = append(buttons, nav)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(buttons...)

	if messageID != 0 {
		h.editMessage(chatID, messageID, text, &keyboard)
		return
	}
	h.sendMessageWithKeyboard(chatID, text, keyboard)
}

func (h *TelegramHandler) showCourse(ctx context.Context, userID, chatID int64, courseIdx, backPage int) {
	courses, err := h.service.ListCourses(ctx, userID)
	if err != nil {
		zap.L().Error("list courses", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, errorText)
		return
	}

	if courseIdx < 0 || courseIdx >= len(courses) {
		// The course list changed since the keyboard was rendered.
		h.sendMessage(chatID, "Список курсів змінився. Виконайте /courses ще раз.")
		return
	}
	courseName := courses[courseIdx]

	deadlines, coursework, err := h.service.ListCourseItems(ctx, userID, courseName)
	if err != nil {
		zap.L().Error("list course items", zap.Error(err), zap.Int64("telegram_id", userID), zap.String("course", courseName))
		h.sendMessage(chatID, errorText)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📚 <b>%s</b>\n\n", escapeHTML(courseName)))

	if len(deadlines) == 0 && len(coursework) == 0 {
		sb.WriteString("У цьому курсі немає завдань.")
		h.sendMessage(chatID, sb.String())
		return
	}

	if len(deadlines) > 0 {
		sb.WriteString("<b>З дедлайном:</b>\n")
		for i, deadline := range deadlines {
			sb.WriteString(formatDeadline(i+1, deadline))
		}
	}

	if len(coursework) > 0 {
		sb.WriteString("<b>Без дедлайну:</b>\n")
		for _, work := range coursework {
			sb.WriteString(fmt.Sprintf("• %s\n", escapeHTML(work.Title)))
			if work.Link != "" {
				sb.WriteString(fmt.Sprintf("   🔗 %s\n", work.Link))
			}
		}
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ До списку курсів", fmt.Sprintf("cl_page_%d", backPage)),
	))
	h.sendMessageWithKeyboard(chatID, sb.String(), keyboard)
}

// handleAdd parses "/add курс | назва | 25.12.2026 14:00 | посилання".
// Time and link are optional; a bare date means end of that day.
func (h *TelegramHandler) handleAdd(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if _, err := h.requireUser(ctx, userID, chatID); err != nil {
		return
	}

	usage := `Додати власний дедлайн:

<code>/add Курс | Назва | 25.12.2026 14:00 | https://посилання</code>

Час і посилання необов'язкові. Без часу дедлайн буде о 23:59.`

	args := strings.TrimSpace(update.Message.CommandArguments())
	if args == "" {
		h.sendMessage(chatID, usage)
		return
	}

	parts := strings.Split(args, "|")
	if len(parts) < 3 {
		h.sendMessage(chatID, usage)
		return
	}

	courseName := strings.TrimSpace(parts[0])
	title := strings.TrimSpace(parts[1])
	dueRaw := strings.TrimSpace(parts[2])

	link := ""
	if len(parts) >= 4 {
		link = strings.TrimSpace(parts[3])
	}

	if courseName == "" || title == "" {
		h.sendMessage(chatID, usage)
		return
	}

	dueDate, err := parseDueDate(dueRaw)
	if err != nil {
		h.sendMessage(chatID, "Не вдалося розпізнати дату. Формат: <code>25.12.2026</code> або <code>25.12.2026 14:00</code>")
		return
	}

	deadline, err := h.service.CreateManualDeadline(ctx, userID, courseName, title, dueDate, link)
	if err != nil {
		zap.L().Error("create manual deadline", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, errorText)
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("✅ Дедлайн додано!\n\n📝 %s\n📚 %s\n📅 %s",
		escapeHTML(deadline.Title), escapeHTML(deadline.CourseName), deadline.DueDate.Format("02.01.2006 15:04")))
}

func parseDueDate(raw string) (time.Time, error) {
	if t, err := time.ParseInLocation("02.01.2006 15:04", raw, time.UTC); err == nil {
		return t, nil
	}

	t, err := time.ParseInLocation("02.01.2006", raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse due date (raw: %q): %w", raw, err)
	}
	return t.Add(23*time.Hour + 59*time.Minute), nil
}

func (h *TelegramHandler) handleSettings(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if _, err := h.requireUser(ctx, userID, chatID); err != nil {
		return
	}

	h.showSettings(ctx, userID, chatID, 0)
}

func (h *TelegramHandler) showSettings(ctx context.Context, userID, chatID int64, messageID int) {
	settings, err := h.service.GetSettings(ctx, userID)
	if err != nil {
		zap.L().Error("get settings", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, errorText)
		return
	}

	text := "⚙️ <b>Налаштування</b>\n\nНатисніть, щоб увімкнути чи вимкнути:"

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Автосинхронізація", settings.AutoSyncEnabled), "set_autosync"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Нагадування за день", settings.Remind1Day), "set_r1day"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Нагадування за 3 години", settings.Remind3Hours), "set_r3h"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Нагадування за годину", settings.Remind1Hour), "set_r1h"),
		),
	)

	if messageID != 0 {
		h.editMessage(chatID, messageID, text, &keyboard)
		return
	}
	h.sendMessageWithKeyboard(chatID, text, keyboard)
}

func toggleLabel(name string, enabled bool) string {
	if enabled {
		return "🟢 " + name
	}
	return "🔴 " + name
}

func (h *TelegramHandler) handleHelp(update tgbotapi.Update) {
	text := `📚 <b>Classroom Deadline Bot</b>

Доступні команди:

/start - Почати роботу з ботом
/connect - Підключити Google Classroom
/sync - Синхронізувати завдання
/deadlines - Активні дедлайни
/overdue - Прострочені дедлайни
/courses - Завдання за курсами
/add - Додати власний дедлайн
/settings - Налаштування нагадувань
/help - Довідка

Нагадування приходять за день, за 3 години та за годину до дедлайну.`

	h.sendMessage(update.Message.Chat.ID, text)
}

func (h *TelegramHandler) handleCallback(ctx context.Context, update tgbotapi.Update) {
	callback := update.CallbackQuery
	data := callback.Data
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	switch {
	case strings.HasPrefix(data, "dl_page_"):
		if page, err := strconv.Atoi(strings.TrimPrefix(data, "dl_page_")); err == nil {
			h.showDeadlinePage(ctx, userID, chatID, page, false, messageID)
		}
	case strings.HasPrefix(data, "ov_page_"):
		if page, err := strconv.Atoi(strings.TrimPrefix(data, "ov_page_")); err == nil {
			h.showDeadlinePage(ctx, userID, chatID, page, true, messageID)
		}
	case strings.HasPrefix(data, "cl_page_"):
		if page, err := strconv.Atoi(strings.TrimPrefix(data, "cl_page_")); err == nil {
			h.showCourseList(ctx, userID, chatID, page, messageID)
		}
	case strings.HasPrefix(data, "c_"):
		if courseIdx, page, ok := parsePairPayload(strings.TrimPrefix(data, "c_")); ok {
			h.showCourse(ctx, userID, chatID, courseIdx, page)
		}
	case strings.HasPrefix(data, "done_"):
		h.handleDoneCallback(ctx, callback)
	case strings.HasPrefix(data, "prio_"):
		h.handlePriorityCallback(ctx, callback)
	case strings.HasPrefix(data, "set_"):
		h.handleSettingsToggle(ctx, callback)
	case data == "noop":
		// Page indicator button, nothing to do.
	default:
		zap.L().Warn("unknown callback data", zap.String("data", data), zap.Int64("telegram_id", userID))
	}

	// Always answer the callback to clear the loading indicator.
	callbackConfig := tgbotapi.NewCallback(callback.ID, "")
	if _, err := h.api.Request(callbackConfig); err != nil {
		zap.L().Error("send callback answer", zap.Error(err), zap.String("callback_id", callback.ID))
	}
}

// handleDoneCallback marks a deadline completed and re-renders the list page
// the button came from. Payload: done_<id>_<list>_<page>.
func (h *TelegramHandler) handleDoneCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	deadlineID, overdue, page, ok := parseListItemPayload(strings.TrimPrefix(callback.Data, "done_"))
	if !ok {
		return
	}

	deadline, err := h.service.SetDeadlineCompleted(ctx, userID, deadlineID, true)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			h.sendMessage(chatID, "Дедлайн не знайдено. Можливо, його вже видалено.")
			return
		}
		zap.L().Error("set deadline completed", zap.Error(err), zap.Int64("telegram_id", userID), zap.Int64("deadline_id", deadlineID))
		h.sendMessage(chatID, errorText)
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("✅ Виконано: %s", escapeHTML(deadline.Title)))
	h.showDeadlinePage(ctx, userID, chatID, page, overdue, callback.Message.MessageID)
}

// handlePriorityCallback cycles priority low → medium → high → low and
// redraws the page. Payload: prio_<id>_<list>_<page>.
func (h *TelegramHandler) handlePriorityCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	deadlineID, overdue, page, ok := parseListItemPayload(strings.TrimPrefix(callback.Data, "prio_"))
	if !ok {
		return
	}

	if _, err := h.service.CycleDeadlinePriority(ctx, userID, deadlineID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			h.sendMessage(chatID, "Дедлайн не знайдено. Можливо, його вже видалено.")
			return
		}
		zap.L().Error("set deadline priority", zap.Error(err), zap.Int64("telegram_id", userID), zap.Int64("deadline_id", deadlineID))
		h.sendMessage(chatID, errorText)
		return
	}

	h.showDeadlinePage(ctx, userID, chatID, page, overdue, callback.Message.MessageID)
}

func (h *TelegramHandler) handleSettingsToggle(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	settings, err := h.service.GetSettings(ctx, userID)
	if err != nil {
		zap.L().Error("get settings", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, errorText)
		return
	}

	switch callback.Data {
	case "set_autosync":
		settings.AutoSyncEnabled = !settings.AutoSyncEnabled
	case "set_r1day":
		settings.Remind1Day = !settings.Remind1Day
	case "set_r3h":
		settings.Remind3Hours = !settings.Remind3Hours
	case "set_r1h":
		settings.Remind1Hour = !settings.Remind1Hour
	default:
		zap.L().Warn("unknown settings toggle", zap.String("data", callback.Data))
		return
	}

	if err := h.service.UpdateSettings(ctx, settings); err != nil {
		zap.L().Error("update settings", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, errorText)
		return
	}

	h.showSettings(ctx, userID, chatID, callback.Message.MessageID)
}

// requireUser resolves the sender; an unknown sender gets the registration
// prompt and a models.ErrNotFound back.
func (h *TelegramHandler) requireUser(ctx context.Context, userID, chatID int64) (*models.User, error) {
	user, err := h.service.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			h.sendMessage(chatID, notRegisteredText)
			return nil, err
		}
		zap.L().Error("get user", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, errorText)
		return nil, err
	}
	return user, nil
}

// handleAuthError intercepts a credential failure and prompts reconnection.
func (h *TelegramHandler) handleAuthError(err error, userID, chatID int64) bool {
	var authErr *service.AuthRequiredError
	if !errors.As(err, &authErr) {
		return false
	}

	zap.L().Warn("authentication required", zap.Int64("telegram_id", authErr.TelegramID))
	authURL := h.service.GetAuthURL(userID)
	text := fmt.Sprintf("❌ Доступ до Google Classroom втрачено.\n\nПідключіться знову за посиланням:\n\n%s", authURL)
	h.sendMessage(chatID, text)
	return true
}

func listKey(overdue bool) string {
	if overdue {
		return "ov"
	}
	return "dl"
}

// parsePairPayload splits "<int>_<int>".
func parsePairPayload(payload string) (int, int, bool) {
	parts := strings.SplitN(payload, "_", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	first, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	second, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return first, second, true
}

// parseListItemPayload splits "<id>_<dl|ov>_<page>".
func parseListItemPayload(payload string) (int64, bool, int, bool) {
	parts := strings.SplitN(payload, "_", 3)
	if len(parts) != 3 {
		return 0, false, 0, false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, false, 0, false
	}
	page, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, false, 0, false
	}
	return id, parts[1] == "ov", page, true
}

func paginationRow(listKey string, page, totalPages int) []tgbotapi.InlineKeyboardButton {
	if totalPages <= 1 {
		return nil
	}

	var row []tgbotapi.InlineKeyboardButton
	if page > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️", fmt.Sprintf("%s_page_%d", listKey, page-1)))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d/%d", page+1, totalPages), "noop"))
	if page < totalPages-1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("➡️", fmt.Sprintf("%s_page_%d", listKey, page+1)))
	}
	return row
}

func formatDeadline(n int, deadline *models.Deadline) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d. %s <b>%s</b>\n", n, priorityEmoji(deadline.Priority), escapeHTML(deadline.Title)))
	sb.WriteString(fmt.Sprintf("   📚 %s\n", escapeHTML(deadline.CourseName)))
	sb.WriteString(fmt.Sprintf("   📅 %s (%s)\n", deadline.DueDate.Format("02.01.2006 15:04"), humanUntil(deadline.DueDate)))
	if deadline.Link != "" {
		sb.WriteString(fmt.Sprintf("   🔗 %s\n", deadline.Link))
	}
	sb.WriteString("\n")
	return sb.String()
}

func priorityEmoji(priority models.Priority) string {
	switch priority {
	case models.PriorityHigh:
		return "🔴"
	case models.PriorityLow:
		return "🟢"
	default:
		return "🟡"
	}
}

func humanUntil(due time.Time) string {
	delta := time.Until(due)
	if delta < 0 {
		return "прострочено"
	}

	days := int(delta.Hours()) / 24
	hours := int(delta.Hours()) % 24
	switch {
	case days > 0:
		return fmt.Sprintf("через %d дн. %d год.", days, hours)
	case hours > 0:
		return fmt.Sprintf("через %d год.", hours)
	default:
		return fmt.Sprintf("через %d хв.", int(delta.Minutes()))
	}
}

func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}

// SendMessage delivers one message to one chat; the scheduler uses it for
// reminders and auto-sync summaries.
func (h *TelegramHandler) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.api.Send(msg); err != nil {
		return fmt.Errorf("send message (chat_id: %d): %w", chatID, err)
	}
	return nil
}

func (h *TelegramHandler) sendMessage(chatID int64, text string) {
	if err := h.SendMessage(chatID, text); err != nil {
		zap.L().Error("send message", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (h *TelegramHandler) sendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := h.api.Send(msg); err != nil {
		zap.L().Error("send message with keyboard", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (h *TelegramHandler) editMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := h.api.Send(msg); err != nil {
		zap.L().Error("edit message", zap.Error(err), zap.Int64("chat_id", chatID), zap.Int("message_id", messageID))
	}
}
