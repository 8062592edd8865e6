// This script is a small convenience tool for manipulating user accounts in
// the configured server database.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/splashsrv/splashsrv/internal/core"
	"github.com/splashsrv/splashsrv/internal/core/auth"
	"github.com/splashsrv/splashsrv/internal/core/data"
)

var (
	configFlag = flag.String("config", "./", "Path to the directory containing the server config file")
	add        = flag.Bool("add", false, "Add an account.")
	softDelete = flag.Bool("delete", false, "Soft delete an account.")
	pd         = flag.Bool("perm-delete", false, "Delete an account permanently.")
	ban        = flag.Bool("ban", false, "Ban an account.")
	help       = flag.Bool("help", false, "Print this usage info.")
)

func main() {
	flag.Parse()

	if help != nil && *help {
		flag.Usage()
		os.Exit(0)
	}
	actions := 0
	for _, set := range []*bool{add, softDelete, pd, ban} {
		if set != nil && *set {
			actions++
		}
	}
	if actions != 1 {
		flag.Usage()
		os.Exit(1)
	}

	config := core.LoadConfig(*configFlag)
	db, err := data.Initialize(config.Database.Path, false)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
	defer func() {
		_ = data.Shutdown(db)
	}()

	// defer so os.Exit doesn't prevent our clean up.
	retCode := 0
	defer func() {
		os.Exit(retCode)
	}()

	switch {
	case add != nil && *add:
		u := scanInput("Username")
		p := scanInput("Password")
		n := scanInput("Display name")
		if err := addAccount(db, u, p, n); err != nil {
			retCode = 1
			fmt.Println(err.Error())
		}
	case softDelete != nil && *softDelete:
		u := scanInput("Username")
		if err := auth.DeleteAccount(db, u); err != nil {
			retCode = 1
			fmt.Println(err.Error())
		} else {
			fmt.Println("deleted account")
		}
	case pd != nil && *pd:
		u := scanInput("Username")
		if err := permanentlyDeleteAccount(db, u); err != nil {
			retCode = 1
			fmt.Println(err.Error())
		}
	case ban != nil && *ban:
		u := scanInput("Username")
		if err := banAccount(db, u); err != nil {
			retCode = 1
			fmt.Println(err.Error())
		}
	default:
		flag.Usage()
		retCode = 1
	}
}

func scanInput(prompt string) string {
	fmt.Printf("%s: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return scanner.Text()
}

func addAccount(db *gorm.DB, username, password, name string) error {
	account, err := auth.CreateAccount(db, username, password, name)
	if err != nil {
		return fmt.Errorf("failed to create account: %v", err)
	}
	fmt.Println("created account with ID:", account.ID)
	return nil
}

func permanentlyDeleteAccount(db *gorm.DB, username string) error {
	account, err := data.FindUnscopedAccount(db, username)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("no account with username %s", username)
	}
	if err := data.PermanentlyDeleteAccount(db, account); err != nil {
		return fmt.Errorf("failed to delete account: %v", err)
	}
	fmt.Println("deleted account")
	return nil
}

func banAccount(db *gorm.DB, username string) error {
	account, err := data.FindAccountByUsername(db, username)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("no account with username %s", username)
	}
	account.Banned = true
	if err := db.Save(account).Error; err != nil {
		return fmt.Errorf("failed to ban account: %v", err)
	}
	fmt.Println("banned account")
	return nil
}
