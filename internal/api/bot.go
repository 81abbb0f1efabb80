package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "ocular-torsion/internal/application"
	"ocular-torsion/internal/container"
	"ocular-torsion/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я бот для измерения торсиона глаза по видео.

🎥 Отправьте мне видео глаза, и я посчитаю поворот радужки по кадрам.

📋 Команды:
/torsion — начать новый анализ
/last — последний результат
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте видео глаза (как видео или как файл)
2️⃣ Бот найдёт зрачок и развернёт радужку на каждом кадре
3️⃣ Вы получите сводку, график торсиона и таблицу CSV

💡 Рекомендации:
• Глаз должен быть в центре кадра
• Зрачок тёмный, без бликов
• Первый кадр без моргания, он служит опорным

📋 Команды:
/torsion — начать анализ
/last — последний результат
/cancel — отменить операцию`

	msgAwaitingVideo   = "🎥 Отправьте видео глаза для анализа."
	msgCancelled       = "❌ Операция отменена. Отправьте /torsion для нового анализа."
	msgSendVideo       = "🎥 Пожалуйста, отправьте видео глаза."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Анализирую видео, это может занять несколько минут..."
	msgBusy            = "⏳ Предыдущий анализ ещё не закончен."
	msgNoResult        = "📭 Сохранённых результатов пока нет."
	msgProcessingError = "⚠️ Не удалось обработать видео. Проверьте, что зрачок виден на первом кадре."
)

// Bot представляет Telegram-бота
type Bot struct {
	api       *tgbotapi.BotAPI
	users     *app.UserService
	analysis  *app.AnalysisService
	client    *http.Client
	uploadDir string
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:       api,
		users:     c.UserService,
		analysis:  c.AnalysisService,
		client:    http.DefaultClient,
		uploadDir: os.TempDir(),
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.users.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		log.Printf("Error getting user: %v", err)
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Видео может прийти и как документ
	if fileID, name, ok := videoFile(msg); ok {
		b.handleVideo(ctx, msg, user, fileID, name)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendVideo)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	switch msg.Command() {
	case "start":
		b.setState(ctx, user, entity.StateMainMenu)
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "torsion":
		if user.Busy() {
			b.sendMessage(msg.Chat.ID, msgBusy)
			return
		}
		b.setState(ctx, user, entity.StateAwaitingVideo)
		b.sendMessage(msg.Chat.ID, msgAwaitingVideo)

	case "last":
		result, err := b.analysis.Last(ctx, user.ID, user.ChatID)
		if errors.Is(err, entity.ErrResultNotFound) {
			b.sendMessage(msg.Chat.ID, msgNoResult)
			return
		}
		if err != nil {
			log.Printf("Error loading result: %v", err)
			b.sendMessage(msg.Chat.ID, msgProcessingError)
			return
		}
		b.sendMessage(msg.Chat.ID, Summary(result))

	case "cancel":
		if user.Busy() {
			// анализ уже запущен, состояние сбросит он сам
			b.sendMessage(msg.Chat.ID, msgBusy)
			return
		}
		b.setState(ctx, user, entity.StateMainMenu)
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// handleVideo скачивает видео и запускает анализ в отдельной горутине
func (b *Bot) handleVideo(ctx context.Context, msg *tgbotapi.Message, user *entity.User, fileID, name string) {
	if user.Busy() {
		b.sendMessage(msg.Chat.ID, msgBusy)
		return
	}

	path, err := b.downloadFile(fileID, name)
	if err != nil {
		log.Printf("Error downloading video: %v", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		b.setState(ctx, user, entity.StateMainMenu)
		return
	}

	b.sendMessage(msg.Chat.ID, msgProcessing)

	go func() {
		defer os.Remove(path)

		out, err := b.analysis.AnalyzeForUser(ctx, user.ID, user.ChatID, path)
		if errors.Is(err, app.ErrAnalysisInProgress) {
			b.sendMessage(msg.Chat.ID, msgBusy)
			return
		}
		if err != nil {
			log.Printf("Error analysing video for user %d: %v", user.ID, err)
			b.sendMessage(msg.Chat.ID, msgProcessingError)
			return
		}

		b.sendMessage(msg.Chat.ID, Summary(out.Result))
		if len(out.Chart) > 0 {
			photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileBytes{Name: "torsion.png", Bytes: out.Chart})
			if _, err := b.api.Send(photo); err != nil {
				log.Printf("Error sending chart: %v", err)
			}
		}
		if len(out.Table) > 0 {
			doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{Name: "torsion.csv", Bytes: out.Table})
			if _, err := b.api.Send(doc); err != nil {
				log.Printf("Error sending table: %v", err)
			}
		}
	}()
}

// videoFile возвращает файл видео из сообщения
func videoFile(msg *tgbotapi.Message) (fileID, name string, ok bool) {
	switch {
	case msg.Video != nil:
		return msg.Video.FileID, "video.mp4", true
	case msg.Document != nil:
		return msg.Document.FileID, msg.Document.FileName, true
	}
	return "", "", false
}

// downloadFile скачивает файл из Telegram во временный каталог
func (b *Bot) downloadFile(fileID, name string) (string, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}

	fileURL := file.Link(b.api.Token)

	resp, err := b.client.Get(fileURL)
	if err != nil {
		return "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download file: status %s", resp.Status)
	}

	// OpenCV определяет контейнер по расширению
	tmp, err := os.CreateTemp(b.uploadDir, "eye-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write file: %w", err)
	}

	return tmp.Name(), nil
}

func (b *Bot) setState(ctx context.Context, user *entity.User, state entity.UserState) {
	if _, err := b.users.SetState(ctx, user.ID, user.ChatID, state); err != nil {
		log.Printf("Error saving user %d: %v", user.ID, err)
	}
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
