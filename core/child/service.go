package child

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("child not found")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateChild(c Child) (Child, error)
		QueryAllChildren() ([]Child, error)
		GetChildByID(id string) (Child, error)
		UpdateChild(c Child) (Child, error)
	}

	// EnrollmentBiller records the first monthly payment of a newly enrolled Child.
	EnrollmentBiller interface {
		BillEnrollment(c Child) error
	}

	Service struct {
		repo   Repository
		biller EnrollmentBiller
	}
)

func NewService(repo Repository, biller EnrollmentBiller) *Service {
	return &Service{repo: repo, biller: biller}
}

// Create enrolls a Child. A positive monthly fee bills the enrollment month right away.
func (svc *Service) Create(scope user.Scope, nc NewChild) (Child, error) {
	if err := scope.AuthorizeAdmin(); err != nil {
		return Child{}, err
	}

	now := NowFunc()
	enrolled := nc.EnrollmentDate
	if enrolled == "" {
		enrolled = now.Format(core.DateLayout)
	}
	c := Child{
		ID:             uuid.NewString(),
		Name:           nc.Name,
		Surname:        nc.Surname,
		BirthDate:      nc.BirthDate,
		Group:          nc.Group,
		ParentName:     nc.ParentName,
		ParentPhone:    nc.ParentPhone,
		ParentTelegram: optionalString(nc.ParentTelegram),
		Address:        nc.Address,
		MedicalInfo:    optionalString(nc.MedicalInfo),
		EnrollmentDate: enrolled,
		MonthlyFee:     nc.MonthlyFee,
		IsActive:       true,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	c, err := svc.repo.CreateChild(c)
	if err != nil {
		return Child{}, pkgerrors.Wrap(err, "creating child")
	}

	if c.MonthlyFee.IsPositive() && svc.biller != nil {
		if err := svc.biller.BillEnrollment(c); err != nil {
			return c, pkgerrors.Wrap(err, "billing enrollment")
		}
	}
	return c, nil
}

// GetByID returns the Child if it is visible to scope.
func (svc *Service) GetByID(scope user.Scope, id string) (Child, error) {
	c, err := svc.repo.GetChildByID(id)
	if err != nil {
		return Child{}, err
	}
	if err := scope.Authorize(c.Group); err != nil {
		return Child{}, err
	}
	return c, nil
}

// Query lists the children visible to scope, sorted by display name.
func (svc *Service) Query(scope user.Scope, filter QueryFilter) ([]Child, error) {
	all, err := svc.repo.QueryAllChildren()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying children")
	}

	children := make([]Child, 0, len(all))
	for _, c := range all {
		if !scope.Allows(c.Group) {
			continue
		}
		if !filter.IncludeInactive && !c.IsActive {
			continue
		}
		if filter.Group != "" && c.Group != filter.Group {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(c.DisplayName()), filter.Search) &&
			!strings.Contains(strings.ToLower(c.ParentName), filter.Search) &&
			!strings.Contains(c.ParentPhone, filter.Search) {
			continue
		}
		children = append(children, c)
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].DisplayName() < children[j].DisplayName()
	})
	return children, nil
}

// Groups lists the distinct groups of active children visible to scope.
func (svc *Service) Groups(scope user.Scope) ([]string, error) {
	children, err := svc.Query(scope, QueryFilter{})
	if err != nil {
		return nil, err
	}
	groups := make([]string, 0)
	for _, c := range children {
		groups = append(groups, c.Group)
	}
	return user.CleanGroups(groups), nil
}

func (svc *Service) Update(scope user.Scope, id string, uc UpdateChild) (Child, error) {
	if err := scope.AuthorizeAdmin(); err != nil {
		return Child{}, err
	}
	c, err := svc.repo.GetChildByID(id)
	if err != nil {
		return Child{}, err
	}

	if uc.Name != "" {
		c.Name = uc.Name
	}
	if uc.Surname != "" {
		c.Surname = uc.Surname
	}
	if uc.BirthDate != "" {
		c.BirthDate = uc.BirthDate
	}
	if uc.Group != "" {
		c.Group = uc.Group
	}
	if uc.ParentName != "" {
		c.ParentName = uc.ParentName
	}
	if uc.ParentPhone != "" {
		c.ParentPhone = uc.ParentPhone
	}
	if uc.ParentTelegram != nil {
		c.ParentTelegram = optionalString(core.CleanString(*uc.ParentTelegram))
	}
	if uc.Address != nil {
		c.Address = core.CleanString(*uc.Address)
	}
	if uc.MedicalInfo != nil {
		c.MedicalInfo = optionalString(core.CleanString(*uc.MedicalInfo))
	}
	if uc.MonthlyFee != nil {
		c.MonthlyFee = *uc.MonthlyFee
	}
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
	c.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateChild(c)
}

// Deactivate soft-deletes a Child: its attendance and payment history is kept.
func (svc *Service) Deactivate(scope user.Scope, id string) (Child, error) {
	no := false
	return svc.Update(scope, id, UpdateChild{IsActive: &no})
}
