// Пакет session — состояние сессии пользователя шлюза и его хранение.
//
// Состояние — явное значение *State, которое передаётся в компоненты
// (gate, service) вместо неявного глобального объекта сессии.
// Cookie содержит только зашифрованный идентификатор сессии, само
// состояние лежит в Store (память или Redis).
package session

import (
	"time"

	"github.com/bigkaa/control-center-gateway/internal/domain/model"
)

// LoginState — данные незавершённого OAuth-входа: state и PKCE verifier.
type LoginState struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier"`
	StartedAt    time.Time `json:"started_at"`
}

// State — состояние одной сессии.
type State struct {
	// ID — идентификатор сессии (ключ в Store)
	ID string `json:"id"`
	// Identity — профиль пользователя; nil до входа
	Identity *model.Identity `json:"identity,omitempty"`
	// AdminRole — кэшированный результат проверки администратора
	AdminRole *model.AdminRole `json:"admin_role,omitempty"`
	// PendingEdit — черновик редактирования приложения
	PendingEdit *model.PendingEdit `json:"pending_edit,omitempty"`
	// Login — незавершённый OAuth-вход
	Login *LoginState `json:"login,omitempty"`
	// CreatedAt — время создания сессии
	CreatedAt time.Time `json:"created_at"`

	// dirty — состояние изменено и должно быть сохранено
	dirty bool
}

// Authenticated сообщает, выполнен ли вход.
func (s *State) Authenticated() bool {
	return s != nil && s.Identity != nil && s.Identity.Email != ""
}

// SetIdentity сохраняет профиль после успешного входа.
// Кэшированная роль и черновик предыдущего пользователя сбрасываются.
func (s *State) SetIdentity(id model.Identity) {
	s.Identity = &id
	s.AdminRole = nil
	s.PendingEdit = nil
	s.Login = nil
	s.dirty = true
}

// CacheRole сохраняет роль администратора.
func (s *State) CacheRole(role model.AdminRole) {
	s.AdminRole = &role
	s.dirty = true
}

// ForgetRole сбрасывает кэшированную роль; следующий запрос проверит её заново.
func (s *State) ForgetRole() {
	if s.AdminRole != nil {
		s.AdminRole = nil
		s.dirty = true
	}
}

// SetPendingEdit сохраняет черновик редактирования.
func (s *State) SetPendingEdit(p model.PendingEdit) {
	s.PendingEdit = &p
	s.dirty = true
}

// ClearPendingEdit удаляет черновик редактирования.
func (s *State) ClearPendingEdit() {
	if s.PendingEdit != nil {
		s.PendingEdit = nil
		s.dirty = true
	}
}

// BeginLogin сохраняет state и PKCE verifier незавершённого входа.
func (s *State) BeginLogin(l LoginState) {
	s.Login = &l
	s.dirty = true
}

// TakeLogin возвращает и удаляет данные незавершённого входа.
func (s *State) TakeLogin() *LoginState {
	l := s.Login
	if l != nil {
		s.Login = nil
		s.dirty = true
	}
	return l
}

// Dirty сообщает, есть ли несохранённые изменения.
func (s *State) Dirty() bool {
	return s.dirty
}
