// Command token mints catalog bearer tokens for local development.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"locallibrary/pkg/access"
	"locallibrary/pkg/auth"
	"locallibrary/pkg/config"
)

func main() {
	var (
		username  = flag.String("user", "", "Username the token is issued to")
		librarian = flag.Bool("librarian", false, "Grant every librarian capability")
		perms     = flag.String("perms", "", "Comma separated capabilities, e.g. catalog.can_loan_book")
	)
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "usage: token -user NAME [-librarian] [-perms a,b]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	who := access.Identity{Username: *username, Capabilities: capabilities(*librarian, *perms)}
	token, expiresAt, err := auth.NewService(cfg.JWT).Issue(who)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Fprintf(os.Stderr, "token for %s expires %s\n", who.Username, expiresAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Println(token)
}

func capabilities(librarian bool, perms string) []access.Capability {
	var caps []access.Capability
	if librarian {
		caps = access.Librarian()
	}
	for _, p := range strings.Split(perms, ",") {
		if p = strings.TrimSpace(p); p != "" {
			caps = append(caps, access.Capability(p))
		}
	}
	return caps
}
