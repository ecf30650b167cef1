package inmemory

import (
	"log/slog"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/watchroom/server/internal/repository/connection"
	"github.com/watchroom/server/pkg/wsrouter"
)

type repo struct {
	logger   *slog.Logger
	connList map[*wsrouter.Conn]string
	idList   map[string]*wsrouter.Conn
	mu       sync.RWMutex
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		logger:   logger,
		connList: make(map[*wsrouter.Conn]string),
		idList:   make(map[string]*wsrouter.Conn),
	}
}

func (r *repo) Add(conn *wsrouter.Conn, memberId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("connection.Add", "member_id", memberId)
	if r.connList[conn] != "" || r.idList[memberId] != nil {
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = memberId
	r.idList[memberId] = conn

	return nil
}

func (r *repo) RemoveByConn(conn *wsrouter.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	memberId, ok := r.connList[conn]
	if !ok {
		return connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, memberId)

	r.logger.Debug("connection.RemoveByConn", "member_id", memberId)
	return nil
}

func (r *repo) RemoveByMemberId(memberId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.idList[memberId]
	if !ok {
		return connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, memberId)

	r.logger.Debug("connection.RemoveByMemberId", "member_id", memberId)
	return nil
}

func (r *repo) GetMemberId(conn *wsrouter.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	memberId, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return memberId, nil
}

func (r *repo) GetConn(memberId string) (*wsrouter.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[memberId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetConns() []*wsrouter.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Keys(r.connList)
}
