package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/user"
)

// addUser updates or creates an operator. New users are counselors unless `isAdmin`.
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if msg := user.ValidatePassword(pwd, name, uname, email); msg != "" {
		return errors.New(msg)
	}

	lookup := uname
	if lookup == "" {
		lookup = email
	}
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, lookup)
	switch {
	case errors.Cause(err) == user.ErrNotFound:
		roles := []string{user.RoleCounselor}
		if isAdmin {
			roles = user.AllRoles
		}
		if err := cli.usrSvc.CheckUniqueness(ctx, uname, email); err != nil {
			return err
		}
		_, err = cli.usrSvc.Create(ctx, user.NewUser{Name: name, Username: uname, Email: email, Password: pwd, Roles: roles})
		return errors.Wrap(err, "creating user")
	case err != nil:
		return errors.Wrap(err, "finding user")
	}

	usr.Name = name
	usr.IsActive = true
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	if err := usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}
