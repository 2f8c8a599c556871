package history

import "sync"

// Role роль реплики в диалоге.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn — одна реплика диалога. После создания не изменяется.
type Turn struct {
	Role    Role
	Content string
}

// DefaultMax — размер окна истории по умолчанию.
const DefaultMax = 20

// Store — потокобезопасное хранилище историй по группам.
// Каждая группа хранит не больше max последних реплик, при переполнении удаляются самые старые.
// Группы создаются при первом сообщении и живут до конца процесса.
type Store struct {
	max    int
	mu     sync.Mutex
	groups map[string]*group
}

type group struct {
	turns []Turn
	// busy сериализует цикл append → snapshot → запрос → append внутри одной группы.
	busy sync.Mutex
}

func New(max int) *Store {
	if max <= 0 {
		max = DefaultMax
	}
	return &Store{max: max, groups: make(map[string]*group)}
}

// Max возвращает размер окна.
func (s *Store) Max() int { return s.max }

// get возвращает группу, создавая её при необходимости. Вызывать под s.mu.
func (s *Store) get(groupID string) *group {
	g, ok := s.groups[groupID]
	if !ok {
		g = &group{turns: make([]Turn, 0, s.max)}
		s.groups[groupID] = g
	}
	return g
}

// Append добавляет реплику, при переполнении удаляет самые старые.
func (s *Store) Append(groupID string, t Turn) {
	s.mu.Lock()
	g := s.get(groupID)
	g.turns = append(g.turns, t)
	if over := len(g.turns) - s.max; over > 0 {
		copy(g.turns, g.turns[over:])
		g.turns = g.turns[:s.max]
	}
	s.mu.Unlock()
}

// Snapshot возвращает копию истории группы (старые первыми). Для неизвестной группы — пустой срез.
func (s *Store) Snapshot(groupID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return []Turn{}
	}
	out := make([]Turn, len(g.turns))
	copy(out, g.turns)
	return out
}

func (s *Store) Len(groupID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[groupID]; ok {
		return len(g.turns)
	}
	return 0
}

// Groups возвращает число известных групп.
func (s *Store) Groups() int {
	s.mu.Lock()
	n := len(s.groups)
	s.mu.Unlock()
	return n
}

// Lock захватывает критическую секцию группы и возвращает функцию освобождения.
// Разные группы не блокируют друг друга.
func (s *Store) Lock(groupID string) (unlock func()) {
	s.mu.Lock()
	g := s.get(groupID)
	s.mu.Unlock()

	g.busy.Lock()
	return g.busy.Unlock
}
