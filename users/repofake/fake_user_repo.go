package fakeuserrepo

import (
	"sort"
	"strings"
	"sync"

	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/jrsteele09/openlabs-client/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	accounts  map[int64]*users.Account
	usernames map[string]int64 // lowercased username to id
	emails    map[string]int64 // lowercased email to id
	nextID    int64
	lock      sync.RWMutex
}

func NewFakeUserRepo() users.UserRepo {
	return &FakeUserRepo{
		accounts:  make(map[int64]*users.Account),
		usernames: make(map[string]int64),
		emails:    make(map[string]int64),
		nextID:    1,
	}
}

func (ur *FakeUserRepo) Upsert(account *users.Account) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	uname := strings.ToLower(account.Username)
	email := strings.ToLower(account.Email)
	if id, ok := ur.usernames[uname]; ok && id != account.ID {
		return apperrors.Wrapf(apperrors.ErrAlreadyExists, "username %s", account.Username)
	}
	if id, ok := ur.emails[email]; ok && id != account.ID {
		return apperrors.Wrapf(apperrors.ErrAlreadyExists, "email %s", account.Email)
	}

	if account.ID == 0 {
		account.ID = ur.nextID
		ur.nextID++
	}
	if prev, ok := ur.accounts[account.ID]; ok {
		delete(ur.usernames, strings.ToLower(prev.Username))
		delete(ur.emails, strings.ToLower(prev.Email))
	}
	ur.accounts[account.ID] = account
	ur.usernames[uname] = account.ID
	ur.emails[email] = account.ID
	return nil
}

func (ur *FakeUserRepo) GetByLogin(usernameOrEmail string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	key := strings.ToLower(usernameOrEmail)
	id, ok := ur.usernames[key]
	if !ok {
		id, ok = ur.emails[key]
	}
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return ur.accounts[id], nil
}

func (ur *FakeUserRepo) GetByID(id int64) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if _, ok := ur.accounts[id]; !ok {
		return nil, apperrors.ErrNotFound
	}
	return ur.accounts[id], nil
}

func (ur *FakeUserRepo) List(offset, limit int) ([]*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	list := make([]*users.Account, 0, len(ur.accounts))
	for _, v := range ur.accounts {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})

	if offset >= len(list) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(list) {
		end = len(list)
	}
	return list[offset:end], nil
}
