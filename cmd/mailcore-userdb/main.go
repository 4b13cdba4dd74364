// Command mailcore-userdb manages the flat-file user database consumed by
// internal/validator.ScryptValidator, the example credential backend.
package main

import (
	"bytes"
	"fmt"
	"os"
	"syscall"

	"flag"

	"golang.org/x/crypto/ssh/terminal"

	"github.com/chasquid-dev/mailcore/internal/validator"
)

var (
	dbFname  = flag.String("database", "", "database file")
	addUser  = flag.String("add_user", "", "user to add")
	delUser  = flag.String("remove_user", "", "user to remove")
	password = flag.String("password", "",
		"password for the user to add (will prompt if missing)")
	disableChecks = flag.Bool("dangerously_disable_checks", false,
		"disable security checks - DANGEROUS, use for testing only")
)

func main() {
	flag.Parse()

	if *dbFname == "" {
		fmt.Printf("database name missing, forgot --database?\n")
		os.Exit(1)
	}

	db, err := validator.Load(*dbFname)
	if err != nil {
		fmt.Printf("error loading database: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *addUser != "":
		addUserCmd(db)
	case *delUser != "":
		delUserCmd(db)
	default:
		fmt.Printf("database loaded\n")
	}
}

func addUserCmd(db *validator.ScryptValidator) {
	pw := *password
	if pw == "" {
		pw = readPassword()
	}

	if !*disableChecks && len(pw) < 8 {
		fmt.Printf("password is too short\n")
		os.Exit(1)
	}

	if err := db.AddUser(*addUser, pw); err != nil {
		fmt.Printf("error adding user: %v\n", err)
		os.Exit(1)
	}
	if err := db.Write(*dbFname); err != nil {
		fmt.Printf("error writing database: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("added user\n")
}

func delUserCmd(db *validator.ScryptValidator) {
	if !db.RemoveUser(*delUser) {
		fmt.Printf("user %q not found\n", *delUser)
		os.Exit(1)
	}
	if err := db.Write(*dbFname); err != nil {
		fmt.Printf("error writing database: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("removed user\n")
}

func readPassword() string {
	fmt.Printf("Password: ")
	p1, err := terminal.ReadPassword(syscall.Stdin)
	fmt.Printf("\n")
	if err != nil {
		fmt.Printf("error reading password: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Confirm password: ")
	p2, err := terminal.ReadPassword(syscall.Stdin)
	fmt.Printf("\n")
	if err != nil {
		fmt.Printf("error reading password: %v\n", err)
		os.Exit(1)
	}

	if !bytes.Equal(p1, p2) {
		fmt.Printf("passwords don't match\n")
		os.Exit(1)
	}

	return string(p1)
}
