package scheduler

import (
	"fmt"

	"github.com/dkravchuk/classroom-deadline-bot/internal/models"
)

const authExpiredText = "⚠️ <b>Термін дії доступу минув!</b>\n\n" +
	"Google вимагає повторного входу.\n" +
	"Будь ласка, підключіться знову: /connect"

func autoSyncDoneText(created, updated int) string {
	return fmt.Sprintf("🔄 Автоматична синхронізація завершена!\n📝 Додано: %d\n🔄 Оновлено: %d", created, updated)
}

var reminderHeaders = map[models.ReminderThreshold]string{
	models.Reminder1Day:   "📅 <b>Нагадування за 1 день!</b>",
	models.Reminder3Hours: "⏰ <b>Нагадування за 3 години!</b>",
	models.Reminder1Hour:  "🚨 <b>НАГАДУВАННЯ ЗА 1 ГОДИНУ!</b>",
}

func reminderText(reminder models.PendingReminder) string {
	deadline := reminder.Deadline

	text := fmt.Sprintf("%s\n\n📖 %s\n📝 %s\n⏰ %s\n",
		reminderHeaders[reminder.Threshold],
		deadline.CourseName,
		deadline.Title,
		deadline.DueDate.Format("02.01.2006 15:04"),
	)

	if deadline.Link != "" {
		text += fmt.Sprintf("\n🔗 <a href='%s'>Відкрити в Classroom</a>", deadline.Link)
	}

	return text
}
