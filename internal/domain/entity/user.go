package entity

// UserState состояние пользователя в диалоге
type UserState string

const (
	StateMainMenu      UserState = "main_menu"      // В главном меню
	StateAwaitingVideo UserState = "awaiting_video" // Ожидание видео глаза
	StateProcessing    UserState = "processing"     // Идёт анализ торсиона
)

// User представляет пользователя бота
type User struct {
	ID           int64     // Telegram User ID
	ChatID       int64     // Telegram Chat ID
	State        UserState // Текущее состояние пользователя
	LastResultID string    // ID последнего сохранённого анализа
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// Busy сообщает, что для пользователя уже идёт анализ
func (u *User) Busy() bool {
	return u.State == StateProcessing
}
