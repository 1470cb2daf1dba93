// Command chatcli is a terminal chat client for the API.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/term"

	"github.com/suPer8Hu/n8n-chat/internal/client"
	"github.com/suPer8Hu/n8n-chat/internal/composer"
	"github.com/suPer8Hu/n8n-chat/internal/log"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "API base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password (prompted when empty)")
	signup := flag.Bool("signup", false, "create the account first")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log.Init(log.Config{Level: *logLevel, Pretty: true, ServiceName: "chatcli"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	in := bufio.NewReader(os.Stdin)
	if *email == "" {
		fmt.Print("email: ")
		line, _ := in.ReadString('\n')
		*email = strings.TrimSpace(line)
	}
	if *password == "" {
		p, err := readPassword(in)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read password:", err)
			os.Exit(1)
		}
		*password = p
	}

	c := client.New(*server, nil)
	auth := c.Login
	if *signup {
		auth = c.Signup
	}
	sess, err := auth(ctx, *email, *password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign in failed:", err)
		os.Exit(1)
	}
	fmt.Printf("signed in as %s\n", sess.Username)

	sh := newShell(composer.New(c, c, ""), in, os.Stdout)
	if err := sh.run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readPassword(in *bufio.Reader) (string, error) {
	fmt.Print("password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		return string(b), err
	}
	line, err := in.ReadString('\n')
	return strings.TrimSpace(line), err
}
