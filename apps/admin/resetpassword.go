package main

func (cli *commandLine) resetPassword(uname, pwd string) error {
	_, err := cli.usrSvc.SetPassword(uname, pwd)
	return err
}
