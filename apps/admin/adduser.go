package main

import (
	"fmt"
	"strings"

	"github.com/trezcool/davomat/core/user"
)

func splitGroups(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return user.CleanGroups(strings.Split(s, ","))
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, name string, role user.Role, groups []string, pwd string) error {
	usr, err := cli.usrSvc.GetByUsername(uname)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}

		nu := user.NewUser{
			Name:            name,
			Username:        uname,
			Role:            role,
			AssignedGroups:  groups,
			Password:        pwd,
			PasswordConfirm: pwd,
		}
		if err = nu.Validate(cli.validate, cli.usrSvc); err != nil {
			return err
		}
		usr, err = cli.usrSvc.Create(nu)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "created %s %q\n", usr.Role, usr.Username)
		return nil
	}

	active := true
	uu := user.UpdateUser{
		Name:            name,
		IsActive:        &active,
		AssignedGroups:  groups,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err = uu.Validate(usr, cli.validate); err != nil {
		return err
	}
	if usr, err = cli.usrSvc.Update(usr.ID, uu); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "updated %s %q\n", usr.Role, usr.Username)
	return nil
}
