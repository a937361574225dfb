package user

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/davomat/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrUsernameExists     = errors.New("a user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateUser(usr User) (User, error)
		QueryAllUsers() ([]User, error)
		GetUserByID(id string) (User, error)
		GetUserByUsername(username string) (User, error)
		UpdateUser(usr User) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(uname string) error {
	if _, err := svc.repo.GetUserByUsername(uname); err == nil {
		return core.NewValidationError(ErrUsernameExists, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
	} else if err != ErrNotFound {
		return err
	}
	return nil
}

func (svc *Service) Create(nu NewUser) (User, error) {
	now := NowFunc().UTC()
	usr := User{
		ID:             uuid.NewString(),
		Name:           nu.Name,
		Username:       nu.Username,
		Role:           nu.Role,
		AssignedGroups: nu.AssignedGroups,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(usr)
}

func (svc *Service) QueryAll() ([]User, error) {
	return svc.repo.QueryAllUsers()
}

// Teachers lists active teacher accounts sorted by name.
func (svc *Service) Teachers() ([]User, error) {
	users, err := svc.repo.QueryAllUsers()
	if err != nil {
		return nil, err
	}
	teachers := make([]User, 0, len(users))
	for _, u := range users {
		if u.IsActive && u.IsTeacher() {
			teachers = append(teachers, u)
		}
	}
	return teachers, nil
}

func (svc *Service) GetByID(id string) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *Service) GetByUsername(uname string) (User, error) {
	return svc.repo.GetUserByUsername(core.CleanString(uname, true /* lower */))
}

func (svc *Service) Update(id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	usr.Name = uu.Name
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.AssignedGroups != nil && usr.IsTeacher() {
		usr.AssignedGroups = uu.AssignedGroups
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	usr.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateUser(usr)
}

// SetPassword replaces the password of the user identified by uname.
func (svc *Service) SetPassword(uname, pwd string) (User, error) {
	usr, err := svc.GetByUsername(uname)
	if err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateUser(usr)
}

// Authenticate checks the credentials and records the login time.
func (svc *Service) Authenticate(uname, pwd string) (User, error) {
	usr, err := svc.GetByUsername(uname)
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr.LastLogin = NowFunc().UTC()
	return svc.repo.UpdateUser(usr)
}
