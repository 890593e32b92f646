package main

import (
	"context"
	"time"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

// addUser updates or creates a user.User. Teacher and admin accounts are
// provisioned here, never through the public API.
func (cli *commandLine) addUser(name, uname, email string, role user.Role, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	lookup := uname
	if lookup == "" {
		lookup = email
	}

	usr, err := cli.usrRepo.GetByUsernameOrEmail(ctx, lookup)
	exists := err == nil
	if err != nil && err != user.ErrNotFound {
		return err
	}

	now := time.Now().UTC()
	if !exists {
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	if name != "" {
		usr.Name = name
	}
	usr.Role = role
	usr.SetActive(true)
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = now

	if exists {
		_, err = cli.usrRepo.Update(ctx, usr)
	} else {
		_, err = cli.usrRepo.Create(ctx, usr)
	}
	return err
}
