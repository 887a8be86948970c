package session

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName — имя cookie с зашифрованным идентификатором сессии.
const CookieName = "cc_gateway_session"

// Manager — загрузка, сохранение и удаление сессий.
// Идентификатор сессии шифруется AES-256-GCM перед записью в cookie,
// подделанный или чужой cookie не расшифровывается и даёт новую сессию.
type Manager struct {
	store  Store
	ttl    time.Duration
	gcm    cipher.AEAD
	secure bool
	logger *slog.Logger
	now    func() time.Time
}

// NewManager создаёт менеджер сессий.
// key — base64 32-байтовый ключ либо произвольная строка (хешируется SHA-256).
// Пустой key — случайный ключ: сессии не переживут рестарт процесса.
func NewManager(store Store, key string, ttl time.Duration, secure bool, logger *slog.Logger) (*Manager, error) {
	var keyBytes []byte

	if key == "" {
		keyBytes = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
		logger.Warn("Ключ сессий не задан, сгенерирован случайный: сессии не переживут рестарт")
	} else {
		var err error
		keyBytes, err = base64.StdEncoding.DecodeString(key)
		if err != nil || len(keyBytes) != 32 {
			h := sha256.Sum256([]byte(key))
			keyBytes = h[:]
		}
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	return &Manager{
		store:  store,
		ttl:    ttl,
		gcm:    gcm,
		secure: secure,
		logger: logger.With(slog.String("component", "session_manager")),
		now:    time.Now,
	}, nil
}

// TTL возвращает время жизни сессии.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// New создаёт пустое состояние с новым идентификатором (ещё не сохранённое).
func (m *Manager) New() *State {
	return &State{ID: uuid.NewString(), CreatedAt: m.now()}
}

// Load возвращает состояние сессии запроса.
// Отсутствующий, повреждённый или истёкший cookie даёт новое пустое состояние.
// Ошибка возвращается только при сбое хранилища.
func (m *Manager) Load(r *http.Request) (*State, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return m.New(), nil
	}

	id, err := m.decrypt(cookie.Value)
	if err != nil {
		m.logger.Debug("Cookie сессии не расшифровывается", slog.String("error", err.Error()))
		return m.New(), nil
	}

	s, err := m.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return m.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("загрузка сессии: %w", err)
	}
	return s, nil
}

// Save сохраняет состояние и выставляет cookie. Вызывается до записи тела ответа.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *State) error {
	if err := m.store.Put(ctx, s, m.ttl); err != nil {
		return fmt.Errorf("сохранение сессии: %w", err)
	}
	s.dirty = false

	encrypted, err := m.encrypt(s.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encrypted,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Rotate выдаёт состоянию новый идентификатор и сохраняет его.
// Запись под прежним идентификатором удаляется: cookie, выданный до входа,
// больше не загружает сессию.
func (m *Manager) Rotate(ctx context.Context, w http.ResponseWriter, s *State) error {
	oldID := s.ID
	if oldID != "" {
		if err := m.store.Delete(ctx, oldID); err != nil {
			return fmt.Errorf("удаление прежней сессии: %w", err)
		}
	}
	s.ID = uuid.NewString()
	s.dirty = true
	return m.Save(ctx, w, s)
}

// SaveIfDirty сохраняет состояние, только если оно изменилось.
func (m *Manager) SaveIfDirty(ctx context.Context, w http.ResponseWriter, s *State) error {
	if s == nil || !s.Dirty() {
		return nil
	}
	return m.Save(ctx, w, s)
}

// Destroy удаляет сессию из хранилища и cookie из браузера (logout).
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *State) error {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	if s == nil {
		return nil
	}
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return fmt.Errorf("удаление сессии: %w", err)
	}
	return nil
}

// encrypt шифрует идентификатор сессии (nonce prepended к ciphertext).
func (m *Manager) encrypt(id string) (string, error) {
	nonce := make([]byte, m.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}
	ciphertext := m.gcm.Seal(nonce, nonce, []byte(id), nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// decrypt расшифровывает идентификатор сессии из значения cookie.
func (m *Manager) decrypt(value string) (string, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := m.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", errors.New("зашифрованные данные слишком короткие")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := m.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("ошибка дешифрования: %w", err)
	}
	return string(plaintext), nil
}
