package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core/teacher"
)

func (cli *commandLine) addTeacherCmd(args []string) error {
	fs := cli.newFlagSet("addteacher")
	nt := teacher.NewTeacher{}
	fs.StringVar(&nt.Email, "email", "", "The teacher's email, used as employee id.")
	fs.StringVar(&nt.FirstName, "first", "", "First name.")
	fs.StringVar(&nt.MiddleName, "middle", "", "Middle name.")
	fs.StringVar(&nt.LastName, "last", "", "Last name.")
	fs.StringVar(&nt.PositionTitle, "title", "", "Position title.")
	required := map[string]*string{"email": &nt.Email, "first": &nt.FirstName, "last": &nt.LastName}
	if err := cli.parse(fs, args, required); err != nil {
		return err
	}

	pwd, err := cli.readPassword(fs.Usage)
	if err != nil {
		return err
	}
	nt.Password, nt.PasswordConfirm = pwd, pwd
	if err = nt.Validate(cli.validate); err != nil {
		return err
	}

	t, err := cli.teacherSvc.Create(context.Background(), nt)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	_, _ = fmt.Fprintf(cli.out, "created teacher %s (%s)\n", t.FullName(), t.EmployeeID)
	return nil
}

func (cli *commandLine) resetPasswordCmd(args []string) error {
	fs := cli.newFlagSet("resetpassword")
	sp := teacher.SetPassword{}
	fs.StringVar(&sp.Email, "email", "", "The teacher's email. The password will be prompted next.")
	if err := cli.parse(fs, args, map[string]*string{"email": &sp.Email}); err != nil {
		return err
	}

	pwd, err := cli.readPassword(fs.Usage)
	if err != nil {
		return err
	}
	sp.Password, sp.PasswordConfirm = pwd, pwd
	if err = sp.Validate(cli.validate); err != nil {
		return err
	}

	if _, err = cli.teacherSvc.SetPassword(context.Background(), sp); err != nil {
		return errors.Wrap(err, "setting password")
	}
	_, _ = fmt.Fprintf(cli.out, "password of %s has been reset\n", sp.Email)
	return nil
}
