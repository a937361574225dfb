package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

func (cli *commandLine) export(path string) error {
	data, err := cli.db.Export(time.Now())
	if err != nil {
		return err
	}
	if path == "" {
		_, err = fmt.Fprintln(cli.out, string(data))
		return err
	}
	if err = os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "writing backup")
	}
	fmt.Fprintf(cli.out, "exported to %s\n", path)
	return nil
}

func (cli *commandLine) importBackup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading backup")
	}
	keys, err := cli.db.Import(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "imported: %s\n", strings.Join(keys, ", "))
	return nil
}
